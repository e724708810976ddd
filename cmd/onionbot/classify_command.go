package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"onionbot/internal/classifier"
	"onionbot/internal/models"
)

const classifyTimeout = 2 * time.Minute

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var modelNames []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "classify <image>...",
		Short: "Classify image files with the configured models, without a daemon",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			names := cfg.Models.Enabled
			if len(modelNames) > 0 {
				names = modelNames
			}
			results, err := classifyImages(cmd.Context(), cfg.Paths.ModelsDir, cfg.Models.Backend, names, args)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, results)
			}
			rows := make([][]string, 0, len(args))
			for _, path := range args {
				agg := results[path]
				if len(agg) == 0 {
					rows = append(rows, []string{filepath.Base(path), "-", "-", "-"})
					continue
				}
				for _, model := range sortedKeys(agg) {
					rows = append(rows, []string{filepath.Base(path), model, agg[model].Label, agg[model].Confidence})
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Image", "Model", "Label", "Confidence"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&modelNames, "model", "m", nil, "Models to run (defaults to models.enabled)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON keyed by image path")
	return cmd
}

// classifyImages runs every image through a private worker and returns the
// aggregation per image path.
func classifyImages(ctx context.Context, modelsDir, backendName string, modelNames, images []string) (map[string]classifier.Aggregation, error) {
	backend, err := models.NewBackend(backendName)
	if err != nil {
		return nil, err
	}
	registry := models.NewRegistry(modelsDir, backend, nil)
	if err := registry.Load(modelNames...); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make(map[string]classifier.Aggregation, len(images))
	worker := classifier.New(registry, classifier.Options{
		OnResult: func(job classifier.Job, agg classifier.Aggregation) {
			mu.Lock()
			results[job.ImagePath] = agg
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()
	for _, path := range images {
		if err := worker.Submit(path); err != nil {
			return nil, err
		}
	}
	if err := worker.Launch(ctx); err != nil {
		return nil, err
	}
	if err := worker.Shutdown(ctx); err != nil {
		return nil, fmt.Errorf("classification did not finish: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return results, nil
}
