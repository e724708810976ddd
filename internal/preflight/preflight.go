package preflight

import (
	"context"

	"onionbot/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Free space", cfg.Paths.DataDir, cfg.Capture.MinFreeMiB),
	}
	results = append(results, CheckModelFiles(cfg.Paths.ModelsDir, cfg.Models.Enabled)...)

	if cfg.Capture.SpoolDir != "" {
		results = append(results, CheckDirectoryAccess("Spool directory", cfg.Capture.SpoolDir))
	}
	if cfg.Storage.Backend == "local" {
		results = append(results, CheckDirectoryAccess("Mirror directory", cfg.Storage.LocalDir))
	}
	if err := ctx.Err(); err != nil {
		results = append(results, Result{Name: "Preflight", Detail: err.Error()})
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
