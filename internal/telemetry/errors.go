package telemetry

import (
	"fmt"

	"onionbot/internal/services"
)

// ErrPersist marks a composed record that did not reach disk.
var ErrPersist = fmt.Errorf("%w: meta record not persisted", services.ErrPersistence)

// PersistError describes why a meta record was not written.
type PersistError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("meta record %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Is matches ErrPersist and the persistence marker.
func (e *PersistError) Is(target error) bool {
	return target == ErrPersist || target == services.ErrPersistence
}
