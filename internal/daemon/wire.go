package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"onionbot/internal/capture"
	"onionbot/internal/classifier"
	"onionbot/internal/config"
	"onionbot/internal/journal"
	"onionbot/internal/logging"
	"onionbot/internal/metrics"
	"onionbot/internal/models"
	"onionbot/internal/notifications"
	"onionbot/internal/objectstore"
	"onionbot/internal/session"
	"onionbot/internal/telemetry"
)

// Build constructs the daemon and every component it coordinates from cfg.
// Models are loaded eagerly so a missing artifact fails here rather than on
// the first frame.
func Build(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(promRegistry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	backend, err := models.NewBackend(cfg.Models.Backend)
	if err != nil {
		return nil, err
	}
	registry := models.NewRegistry(cfg.Paths.ModelsDir, backend, logger)
	if err := registry.Load(cfg.Models.Enabled...); err != nil {
		return nil, err
	}

	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return nil, err
	}
	store, err := objectstore.New(cfg)
	if err != nil {
		_ = j.Close()
		return nil, err
	}
	notifier := notifications.NewService(cfg)

	journalLogger := logging.NewComponentLogger(logger, "journal")
	worker := classifier.New(registry, classifier.Options{
		PollInterval: cfg.PollInterval(),
		Logger:       logger,
		Metrics:      m,
		OnResult: func(job classifier.Job, agg classifier.Aggregation) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := j.RecordClassification(ctx, job.ImagePath, agg); err != nil {
				journalLogger.Debug("classification not journaled", logging.Error(err))
			}
		},
	})

	pipeline, err := capture.New(capture.Options{
		Resolver:      session.NewResolver(cfg.Paths.DataDir),
		Worker:        worker,
		Camera:        capture.SpoolCamera{Source: cfg.Capture.CameraSource, SpoolDir: cfg.Capture.SpoolDir},
		Store:         store,
		Journal:       j,
		Notifier:      notifier,
		PublicBaseURL: cfg.Telemetry.PublicBaseURL,
		LocalRoot:     cfg.Telemetry.LocalRoot,
		FrameInterval: cfg.FrameInterval(),
		DefaultLabel:  cfg.Capture.DefaultLabel,
		KnownLabels:   telemetry.KnownLabels(),
		Logger:        logger,
		Metrics:       m,
	})
	if err != nil {
		_ = j.Close()
		return nil, err
	}

	d, err := New(cfg, Deps{
		Registry: registry,
		Worker:   worker,
		Pipeline: pipeline,
		Journal:  j,
		Store:    store,
		Notifier: notifier,
		Gatherer: promRegistry,
	}, logger)
	if err != nil {
		_ = j.Close()
		return nil, err
	}
	return d, nil
}
