package services

import "context"

type contextKey string

const (
	sessionKey     contextKey = "session"
	measurementKey contextKey = "measurement_id"
	requestIDKey   contextKey = "request_id"
)

// WithSession annotates context with the active session name.
func WithSession(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, name)
}

// SessionFromContext returns the session name if present.
func SessionFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(sessionKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithMeasurementID annotates context with the capture measurement identifier.
func WithMeasurementID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, measurementKey, id)
}

// MeasurementIDFromContext extracts the measurement identifier if present.
func MeasurementIDFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(measurementKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(requestIDKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
