// Package objectstore uploads capture artifacts to remote storage.
//
// Object names are the artifact path relative to the telemetry local root,
// which keeps them aligned with the public URLs written into meta records.
package objectstore
