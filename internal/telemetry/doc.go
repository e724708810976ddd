// Package telemetry assembles the meta records the portal consumes.
//
// A Composer belongs to one session. Each Compose call measures the interval
// since the previous capture, maps local artifact paths to public URLs, and
// writes the record next to the camera and thermal frames it references.
package telemetry
