// Package logs reads the controller log file for the `onionbot logs`
// command: the last N lines, then optionally every line appended after them.
//
// Reads are bounded: Last keeps a ring of N lines and Follow only reads from
// the last offset forward, reopening the file when it is truncated.
package logs
