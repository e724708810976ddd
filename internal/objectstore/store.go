package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"onionbot/internal/config"
	"onionbot/internal/services"
)

// ErrOutsideRoot reports an artifact that does not live under the local root.
var ErrOutsideRoot = errors.New("path outside local root")

// Store uploads local artifacts.
type Store interface {
	Name() string
	Upload(ctx context.Context, localPath string) error
}

// New returns the store selected by storage.backend.
func New(cfg *config.Config) (Store, error) {
	root := cfg.Telemetry.LocalRoot
	switch cfg.Storage.Backend {
	case "", "none":
		return Noop{}, nil
	case "local":
		return NewLocal(root, cfg.Storage.LocalDir), nil
	case "azblob":
		return NewAzure(AzureOptions{
			Root:             root,
			AccountURL:       cfg.Storage.AccountURL,
			Container:        cfg.Storage.Container,
			ConnectionString: cfg.Storage.ConnectionString,
		})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "objectstore", "new",
			fmt.Sprintf("unsupported backend %q", cfg.Storage.Backend), nil)
	}
}

// ObjectName maps localPath to a slash separated name relative to root.
func ObjectName(root, localPath string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(localPath))
	if err != nil {
		return "", fmt.Errorf("%s: %w", localPath, ErrOutsideRoot)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", localPath, ErrOutsideRoot)
	}
	return filepath.ToSlash(rel), nil
}

// Noop discards uploads.
type Noop struct{}

func (Noop) Name() string                         { return "none" }
func (Noop) Upload(context.Context, string) error { return nil }
