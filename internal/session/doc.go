// Package session derives the on-disk layout of a cooking session.
//
// Every measurement produces three artifacts (camera frame, thermal frame and
// meta record) stored under
//
//	<root>/logs/<session>/<camera|thermal|meta>/<label>/
//
// with file names built from the session name, the zero padded measurement
// id, the capture timestamp, the artifact type and the active label. The
// Resolver is deterministic and safe to call concurrently.
package session
