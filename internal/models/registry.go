package models

import (
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"onionbot/internal/logging"
)

// Descriptor is a loaded model together with its label mapping. It is
// immutable once returned by the registry.
type Descriptor struct {
	Name   string
	Labels Labels
	Model  Model
}

// Registry holds the loaded models. Load may be called more than once; names
// already loaded are skipped. After loading completes the registry is only
// read.
type Registry struct {
	dir     string
	backend Backend
	logger  *slog.Logger

	mu     sync.RWMutex
	loaded map[string]Descriptor
}

// NewRegistry builds an empty registry reading artifacts from dir.
func NewRegistry(dir string, backend Backend, logger *slog.Logger) *Registry {
	if backend == nil {
		backend = ColorProfileBackend{}
	}
	return &Registry{
		dir:     dir,
		backend: backend,
		logger:  logging.NewComponentLogger(logger, "models"),
		loaded:  make(map[string]Descriptor),
	}
}

// Load resolves every name against the catalog and opens its artifacts. The
// call is all-or-nothing: on error none of this call's names are added.
func (r *Registry) Load(names ...string) error {
	r.mu.RLock()
	pending := make([]Entry, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := r.loaded[name]; ok {
			continue
		}
		entry, ok := Lookup(name)
		if !ok {
			r.mu.RUnlock()
			return &UnknownModelError{Name: name}
		}
		pending = append(pending, entry)
	}
	r.mu.RUnlock()

	staged := make([]Descriptor, 0, len(pending))
	for _, entry := range pending {
		desc, err := r.open(entry)
		if err != nil {
			return err
		}
		staged = append(staged, desc)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, desc := range staged {
		if _, ok := r.loaded[desc.Name]; ok {
			continue
		}
		r.loaded[desc.Name] = desc
		r.logger.Info("model loaded",
			logging.String(logging.FieldEventType, "model_loaded"),
			logging.String(logging.FieldModel, desc.Name),
			logging.Int("labels", len(desc.Labels)),
			logging.String("backend", r.backend.Name()),
		)
	}
	return nil
}

func (r *Registry) open(entry Entry) (Descriptor, error) {
	labelPath := filepath.Join(r.dir, entry.LabelFile)
	labels, err := ReadLabelFile(labelPath)
	if err != nil {
		return Descriptor{}, &ArtifactMissingError{Name: entry.Name, Kind: "labels", Path: labelPath, Err: err}
	}
	modelPath := filepath.Join(r.dir, entry.ModelFile)
	model, err := r.backend.Open(modelPath)
	if err != nil {
		return Descriptor{}, &ArtifactMissingError{Name: entry.Name, Kind: "model", Path: modelPath, Err: err}
	}
	return Descriptor{Name: entry.Name, Labels: labels, Model: model}, nil
}

// Get returns the descriptor for a loaded model.
func (r *Registry) Get(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.loaded[name]
	if !ok {
		return Descriptor{}, &UnknownModelError{Name: name}
	}
	return desc, nil
}

// Names lists the loaded model names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.loaded))
	for name := range r.loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns the loaded models ordered by name.
func (r *Registry) Descriptors() []Descriptor {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		out = append(out, r.loaded[name])
	}
	return out
}
