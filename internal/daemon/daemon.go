package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"

	"onionbot/internal/capture"
	"onionbot/internal/classifier"
	"onionbot/internal/config"
	"onionbot/internal/journal"
	"onionbot/internal/logging"
	"onionbot/internal/models"
	"onionbot/internal/notifications"
	"onionbot/internal/objectstore"
	"onionbot/internal/preflight"
	"onionbot/internal/services"
)

const (
	shutdownTimeout     = 10 * time.Second
	uploadRetryInterval = time.Minute
)

// Deps are the components the daemon coordinates.
type Deps struct {
	Registry *models.Registry
	Worker   *classifier.Worker
	Pipeline *capture.Pipeline
	Journal  *journal.Journal
	Store    objectstore.Store
	Notifier notifications.Service
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *models.Registry
	worker   *classifier.Worker
	pipeline *capture.Pipeline
	journal  *journal.Journal
	store    objectstore.Store
	notifier notifications.Service
	gatherer prometheus.Gatherer

	lockPath string
	lock     *flock.Flock

	api     *apiServer
	monitor *cameraMonitor

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	Session        capture.Status
	Worker         classifier.Stats
	Models         []string
	Storage        string
	PendingUploads int
	JournalPath    string
	LockFilePath   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || deps.Registry == nil || deps.Worker == nil || deps.Pipeline == nil || deps.Journal == nil {
		return nil, errors.New("daemon requires config, registry, worker, pipeline, and journal")
	}
	if deps.Store == nil {
		deps.Store = objectstore.Noop{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		registry: deps.Registry,
		worker:   deps.Worker,
		pipeline: deps.Pipeline,
		journal:  deps.Journal,
		store:    deps.Store,
		notifier: deps.Notifier,
		gatherer: deps.Gatherer,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	if cfg.Capture.MonitorCamera {
		d.monitor = newCameraMonitor(logger, d.handleCameraEvent)
	}
	return d, nil
}

// Start acquires the daemon lock, runs preflight checks and launches the
// worker, the capture loop, optional watchers and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return fmt.Errorf("%w: daemon already running", services.ErrLifecycle)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: another onionbot daemon instance is already running", services.ErrLifecycle)
	}

	if failed := preflight.Failed(preflight.RunAll(ctx, d.cfg)); len(failed) > 0 {
		_ = d.lock.Unlock()
		details := make([]string, 0, len(failed))
		for _, r := range failed {
			details = append(details, r.Name+": "+r.Detail)
		}
		return services.Wrap(services.ErrConfiguration, "daemon", "preflight", strings.Join(details, "; "), nil)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.worker.Launch(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start classification worker: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.abortStart()
		return err
	}

	d.goBackground(d.pipeline.Run)
	d.goBackground(d.retryUploads)
	if d.cfg.Capture.WatchSpool {
		watcher := capture.NewSpoolWatcher(d.cfg.Capture.SpoolDir, d.handleSpoolFrame, 0, d.logger)
		d.goBackground(watcher.Run)
	}
	if err := d.monitor.Start(d.ctx); err != nil {
		d.logger.Debug("camera monitor not started", logging.Error(err))
	}

	d.running.Store(true)
	d.logger.Info("onionbot daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Any("models", d.registry.Names()),
		logging.String("storage", d.store.Name()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	d.cancel()
	d.api.stop()
	d.wg.Wait()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = d.worker.Shutdown(shutdownCtx)
	_ = d.lock.Unlock()
	d.ctx = nil
	d.cancel = nil
}

func (d *Daemon) goBackground(run func(context.Context) error) {
	ctx := d.ctx
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.WarnWithContext(d.logger, "background task exited", "background_task_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "part of the controller stopped until restart"),
			)
		}
	}()
}

// Stop closes any active session, drains the classification worker and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if d.pipeline.Active() {
		if _, err := d.pipeline.Stop(shutdownCtx); err != nil {
			d.logger.Warn("failed to close active session", logging.Error(err))
		}
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.monitor.Stop()
	d.wg.Wait()
	if err := d.worker.Shutdown(shutdownCtx); err != nil {
		logging.WarnWithContext(d.logger, "classification worker did not drain", "worker_drain_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "queued frames were not classified"),
		)
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("onionbot daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not run.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddress returns the address the API server listens on, or "" when it
// is not running.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Session:      d.pipeline.Status(),
		Worker:       d.worker.Stats(),
		Models:       d.registry.Names(),
		Storage:      d.store.Name(),
		JournalPath:  d.journal.Path(),
		LockFilePath: d.lockPath,
	}
	if pending, err := d.journal.PendingUploads(ctx, 1000); err == nil {
		status.PendingUploads = len(pending)
	}
	return status
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func (d *Daemon) handleSpoolFrame(ctx context.Context, path string) error {
	if !d.pipeline.Active() {
		d.logger.Debug("spool frame ignored without an active session", logging.String(logging.FieldImagePath, path))
		return nil
	}
	_, err := d.pipeline.CaptureFrom(ctx, path)
	return err
}

func (d *Daemon) handleCameraEvent(ctx context.Context, device, action string) {
	if err := d.notifier.NotifyCameraChanged(ctx, device, action); err != nil {
		d.logger.Debug("camera notification failed", logging.Error(err))
	}
}
