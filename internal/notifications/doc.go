// Package notifications pushes rig events to an ntfy topic.
//
// When no topic is configured NewService returns a no-op implementation, so
// callers never check whether notifications are enabled.
package notifications
