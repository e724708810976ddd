package models

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Candidate is one ranked inference output.
type Candidate struct {
	Index int
	Score float64
}

// Model is a loaded inference model. Implementations are invoked serially by
// a single consumer and need not be safe for concurrent use.
type Model interface {
	// Classify returns up to topK candidates ranked by descending score. An
	// empty slice means the model produced no candidate for the image.
	Classify(img image.Image, topK int) ([]Candidate, error)
}

// Backend opens model files into executable models.
type Backend interface {
	Name() string
	Open(path string) (Model, error)
}

// NewBackend returns the inference backend registered under name.
func NewBackend(name string) (Backend, error) {
	switch name {
	case "", ColorProfileBackendName:
		return ColorProfileBackend{}, nil
	default:
		return nil, &UnknownBackendError{Name: name}
	}
}

// UnknownBackendError reports an inference backend that is not compiled in.
type UnknownBackendError struct {
	Name string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("inference backend %q is not available", e.Name)
}

// DecodeImage reads a JPEG, PNG, GIF, BMP or WebP file.
func DecodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
