// Package services defines shared utilities consumed by the capture pipeline,
// the classification worker and the daemon surfaces.
//
// Key responsibilities:
//   - Context helpers that stamp session names, measurement identifiers and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (configuration, persistence, lifecycle, transient) so callers can decide
//     whether to retry, degrade or surface the error.
//
// Use these helpers when wiring new components so operational behaviour stays
// uniform across the controller.
package services
