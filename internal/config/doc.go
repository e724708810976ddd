// Package config loads, normalizes, and validates onionbot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a local .env file and honours
// environment fallbacks such as AZURE_STORAGE_CONNECTION_STRING. The Config
// type centralizes every knob the daemon and CLI need so data, model and log
// directories plus external service credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
