package models

import (
	"errors"
	"fmt"

	"onionbot/internal/services"
)

var (
	// ErrUnknownModel reports a model name absent from the catalog or registry.
	ErrUnknownModel = errors.New("unknown model")
	// ErrArtifactMissing reports a label or model file that could not be opened.
	ErrArtifactMissing = errors.New("model artifact missing")
)

// UnknownModelError names the model that could not be resolved.
type UnknownModelError struct {
	Name string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("model %q not found in catalog", e.Name)
}

// Is matches ErrUnknownModel and the configuration marker.
func (e *UnknownModelError) Is(target error) bool {
	return target == ErrUnknownModel || target == services.ErrConfiguration
}

// ArtifactMissingError describes a label or model file that failed to load.
type ArtifactMissingError struct {
	Name string
	Kind string
	Path string
	Err  error
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("model %q: %s file %s: %v", e.Name, e.Kind, e.Path, e.Err)
}

func (e *ArtifactMissingError) Unwrap() error { return e.Err }

// Is matches ErrArtifactMissing and the configuration marker.
func (e *ArtifactMissingError) Is(target error) bool {
	return target == ErrArtifactMissing || target == services.ErrConfiguration
}
