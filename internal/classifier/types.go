package classifier

import (
	"fmt"
	"maps"

	"onionbot/internal/services"
)

var (
	// ErrClosed is returned once shutdown has begun.
	ErrClosed = fmt.Errorf("%w: classification worker closed", services.ErrLifecycle)
	// ErrAlreadyRunning is returned by a second Launch.
	ErrAlreadyRunning = fmt.Errorf("%w: classification worker already running", services.ErrLifecycle)
)

// Job is one image waiting for classification.
type Job struct {
	ImagePath string
}

// Result is a single model's top label and its score rendered as a decimal
// string.
type Result struct {
	Label      string `json:"label"`
	Confidence string `json:"confidence"`
}

// Aggregation maps model name to that model's result for one job. Models that
// produced no usable label are absent.
type Aggregation map[string]Result

// Clone returns an independent copy; a nil receiver yields an empty map.
func (a Aggregation) Clone() Aggregation {
	out := make(Aggregation, len(a))
	maps.Copy(out, a)
	return out
}

// State is the worker lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	default:
		return "stopped"
	}
}

// Stats is a point-in-time view of the worker counters.
type Stats struct {
	State      State  `json:"-"`
	StateName  string `json:"state"`
	Submitted  uint64 `json:"submitted"`
	Completed  uint64 `json:"completed"`
	QueueDepth int    `json:"queue_depth"`
	Skips      uint64 `json:"skips"`
}
