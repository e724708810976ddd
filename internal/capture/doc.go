// Package capture drives the measurement loop of a cooking session.
//
// Each capture advances the session's measurement id, resolves artifact
// paths, grabs the camera and thermal frames, hands the camera frame to the
// classification worker, composes the meta record with the latest
// classification snapshot, indexes it in the journal and uploads the
// artifacts. Camera and sensor access sit behind small interfaces; the
// spool-based camera and static sensors shipped here are enough to run the
// rig without hardware drivers.
package capture
