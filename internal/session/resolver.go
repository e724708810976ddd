package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidComponent reports a session name, label or timestamp that cannot
// be used as a single path element.
var ErrInvalidComponent = errors.New("invalid path component")

// Artifact types, used both as directory names and file name infixes.
const (
	KindCamera  = "camera"
	KindThermal = "thermal"
	KindMeta    = "meta"
)

// FilePathSet holds the absolute paths of one measurement's artifacts.
type FilePathSet struct {
	Camera  string
	Thermal string
	Meta    string
}

// Resolver maps (session, measurement, timestamp, label) to artifact paths
// beneath root/logs.
type Resolver struct {
	root string
}

// NewResolver returns a resolver rooted at root.
func NewResolver(root string) *Resolver {
	return &Resolver{root: filepath.Clean(root)}
}

// Root returns the directory that holds the logs tree.
func (r *Resolver) Root() string {
	return r.root
}

// SessionDir returns <root>/logs/<name>.
func (r *Resolver) SessionDir(name string) string {
	return filepath.Join(r.root, "logs", name)
}

// Resolve creates the three artifact directories if needed and returns the
// file paths for the measurement. Calling it twice with the same arguments
// returns the same paths.
func (r *Resolver) Resolve(name string, measurementID int, timestamp, activeLabel string) (FilePathSet, error) {
	components := []struct{ field, value string }{
		{"session name", name},
		{"timestamp", timestamp},
		{"active label", activeLabel},
	}
	for _, c := range components {
		if err := CheckComponent(c.value); err != nil {
			return FilePathSet{}, fmt.Errorf("%s: %w", c.field, err)
		}
	}
	if measurementID < 0 {
		return FilePathSet{}, fmt.Errorf("measurement id %d: %w", measurementID, ErrInvalidComponent)
	}

	paths := FilePathSet{}
	for _, kind := range []string{KindCamera, KindThermal, KindMeta} {
		dir := filepath.Join(r.SessionDir(name), kind, activeLabel)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return FilePathSet{}, fmt.Errorf("create %s directory: %w", kind, err)
		}
		file := filepath.Join(dir, FileName(name, measurementID, timestamp, kind, activeLabel))
		switch kind {
		case KindCamera:
			paths.Camera = file
		case KindThermal:
			paths.Thermal = file
		case KindMeta:
			paths.Meta = file
		}
	}
	return paths, nil
}

// FileName builds <name>_<id:05>_<timestamp>_<kind>_<label>.<ext>.
func FileName(name string, measurementID int, timestamp, kind, activeLabel string) string {
	ext := "jpg"
	if kind == KindMeta {
		ext = "json"
	}
	return fmt.Sprintf("%s_%05d_%s_%s_%s.%s", name, measurementID, timestamp, kind, activeLabel, ext)
}

// CheckComponent reports whether value can be used as a single path
// component: non-empty, without separators, NUL bytes or "..".
func CheckComponent(value string) error {
	switch {
	case strings.TrimSpace(value) == "":
		return fmt.Errorf("empty value: %w", ErrInvalidComponent)
	case value == "." || strings.Contains(value, ".."):
		return fmt.Errorf("%q: %w", value, ErrInvalidComponent)
	case strings.ContainsAny(value, `/\`) || strings.ContainsRune(value, filepath.Separator):
		return fmt.Errorf("%q contains a path separator: %w", value, ErrInvalidComponent)
	case strings.ContainsRune(value, 0):
		return fmt.Errorf("%q contains NUL: %w", value, ErrInvalidComponent)
	}
	return nil
}
