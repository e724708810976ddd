package logging

import (
	"context"
	"log/slog"

	"onionbot/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType names the operational event a log line describes.
	FieldEventType = "event_type"
	// FieldErrorHint carries a short operator hint attached to warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldSession is the standardized structured logging key for cooking session names.
	FieldSession = "session"
	// FieldMeasurementID is the standardized structured logging key for capture measurement identifiers.
	FieldMeasurementID = "measurement_id"
	// FieldModel is the standardized structured logging key for classification model names.
	FieldModel = "model"
	// FieldImagePath is the standardized structured logging key for classified image paths.
	FieldImagePath = "image_path"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldRunID identifies one daemon process run.
	FieldRunID = "run_id"
	// FieldImpact states the operator-visible consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if name, ok := services.SessionFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSession, name))
	}
	if id, ok := services.MeasurementIDFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldMeasurementID, id))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
