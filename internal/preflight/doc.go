// Package preflight provides readiness checks for the filesystem paths and
// model artifacts the controller depends on.
//
// The daemon runs RunAll before it starts capturing and refuses to start when
// a required check fails; the CLI "doctor" command prints the same results.
// Optional features (spool directory, local mirror) are only checked when
// configured.
package preflight
