// Package daemon coordinates the long-running controller process and its
// system integration points.
//
// It wires the classification worker, the capture pipeline, the spool
// watcher, the udev camera monitor and the upload retry loop into a single
// lifecycle with flock-based locking to prevent multiple instances, and
// serves the HTTP API the dashboard and CLI talk to.
//
// Keep orchestration logic here: capture and classification behaviour live
// in their own packages while the daemon focuses on startup, shutdown, and
// high level coordination.
package daemon
