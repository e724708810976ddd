// Command onionbot runs the cooking rig controller and talks to a running
// controller over its HTTP API.
//
// `onionbot run` starts the daemon in the foreground. Session, capture and
// status commands are thin API clients; `classify`, `doctor`, `labels` and
// the config and meta utilities work offline against the local configuration.
package main
