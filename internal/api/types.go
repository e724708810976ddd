package api

import (
	"time"

	"onionbot/internal/capture"
	"onionbot/internal/classifier"
	"onionbot/internal/telemetry"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SessionStatus describes the capture session.
type SessionStatus struct {
	Active               bool    `json:"active"`
	Name                 string  `json:"name,omitempty"`
	ActiveLabel          string  `json:"activeLabel,omitempty"`
	MeasurementID        int     `json:"measurementId"`
	FrameIntervalSeconds float64 `json:"frameIntervalSeconds"`
	StartedAt            string  `json:"startedAt,omitempty"`
}

// WorkerStatus mirrors the classification worker counters.
type WorkerStatus struct {
	State      string `json:"state"`
	Submitted  uint64 `json:"submitted"`
	Completed  uint64 `json:"completed"`
	QueueDepth int    `json:"queueDepth"`
	Skips      uint64 `json:"skips"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool          `json:"running"`
	PID            int           `json:"pid"`
	Session        SessionStatus `json:"session"`
	Worker         WorkerStatus  `json:"worker"`
	Models         []string      `json:"models"`
	Storage        string        `json:"storage"`
	PendingUploads int           `json:"pendingUploads"`
	JournalPath    string        `json:"journalPath"`
	LockFilePath   string        `json:"lockFilePath"`
}

// SessionStartRequest opens a session. Both fields are optional.
type SessionStartRequest struct {
	Name        string `json:"name,omitempty"`
	ActiveLabel string `json:"activeLabel,omitempty"`
}

// LabelRequest changes the active label.
type LabelRequest struct {
	ActiveLabel string `json:"activeLabel"`
}

// IntervalRequest changes the pause between captures.
type IntervalRequest struct {
	Seconds float64 `json:"seconds"`
}

// SessionResponse wraps a session snapshot.
type SessionResponse struct {
	Session SessionStatus `json:"session"`
}

// CaptureResponse carries the record of a manual capture. Error is set when
// the record could not be persisted.
type CaptureResponse struct {
	Record telemetry.MetaRecord `json:"record"`
	Error  string               `json:"error,omitempty"`
}

// ClassificationResponse wraps the latest aggregation.
type ClassificationResponse struct {
	Classification classifier.Aggregation `json:"classification"`
}

// ClassificationEntry is one completed classification job.
type ClassificationEntry struct {
	ImagePath      string                 `json:"imagePath"`
	Classification classifier.Aggregation `json:"classification"`
	CompletedAt    string                 `json:"completedAt"`
}

// ClassificationHistoryResponse lists recent classification jobs, newest first.
type ClassificationHistoryResponse struct {
	Entries []ClassificationEntry `json:"entries"`
}

// ModelInfo describes a loaded model.
type ModelInfo struct {
	Name      string `json:"name"`
	Labels    int    `json:"labels"`
	LabelFile string `json:"labelFile"`
	ModelFile string `json:"modelFile"`
}

// ModelsResponse lists loaded models in name order.
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// NotificationResponse reports the outcome of a test notification.
type NotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// FromCaptureStatus converts the pipeline state into its wire form.
func FromCaptureStatus(status capture.Status) SessionStatus {
	out := SessionStatus{
		Active:               status.Active,
		Name:                 status.Session,
		ActiveLabel:          status.ActiveLabel,
		MeasurementID:        status.MeasurementID,
		FrameIntervalSeconds: status.FrameInterval,
	}
	out.StartedAt = FormatTime(status.StartedAt)
	return out
}

// FromWorkerStats converts classification worker counters.
func FromWorkerStats(stats classifier.Stats) WorkerStatus {
	return WorkerStatus{
		State:      stats.StateName,
		Submitted:  stats.Submitted,
		Completed:  stats.Completed,
		QueueDepth: stats.QueueDepth,
		Skips:      stats.Skips,
	}
}

// FormatTime renders t for API payloads; the zero time is empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
