package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"onionbot/internal/fileutil"
)

// Local mirrors artifacts into a directory, for rigs that sync a mounted
// drive instead of talking to a cloud bucket.
type Local struct {
	root string
	dir  string
}

// NewLocal mirrors files under root into dir.
func NewLocal(root, dir string) *Local {
	return &Local{root: root, dir: dir}
}

func (l *Local) Name() string { return "local" }

// Upload copies localPath to the same relative location under the mirror
// directory, verifying the copy.
func (l *Local) Upload(ctx context.Context, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := ObjectName(l.root, localPath)
	if err != nil {
		return err
	}
	dst := filepath.Join(l.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create mirror directory: %w", err)
	}
	if err := fileutil.CopyFileVerified(localPath, dst); err != nil {
		return fmt.Errorf("mirror %s: %w", name, err)
	}
	return nil
}
