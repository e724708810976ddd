// Package api defines the wire-format types of the daemon's HTTP API and a
// client for it.
//
// # Key Types
//
// DaemonStatus: daemon running state, session state, classification worker
// counters, loaded models and upload backlog.
//
// SessionStatus: the active cooking session as seen by API consumers.
//
// Client: typed access to the daemon API for the CLI.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for dashboard consumers. Meta records, label
// catalogues and classification aggregations are passed through in their
// storage format (snake_case) so the portal reads the same documents it finds
// in the bucket.
package api
