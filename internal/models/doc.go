// Package models owns the on-device classification models.
//
// The catalog is a closed set of model names (pasta, sauce, pan_on_off), each
// pointing at a label file and a model file inside the models directory. The
// Registry loads a requested subset once, failing fast when a name is not in
// the catalog or an artifact cannot be opened, and is read-only afterwards so
// the classification worker can use it without locking.
//
// Inference runs through the Backend interface. The colorprofile backend
// ships with the repository; accelerator runtimes plug in behind the same
// interface.
package models
