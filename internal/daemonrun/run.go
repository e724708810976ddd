package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/google/uuid"

	"onionbot/internal/config"
	"onionbot/internal/daemon"
	"onionbot/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Ready, when set, is called with the API address once the daemon is up.
	Ready func(apiAddress string)
}

// Run starts the onionbot daemon and blocks until ctx ends or the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := newLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	runID := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldRunID, runID))

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := daemon.Build(cfg, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "daemon build failed", "daemon_build_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check model files, journal path and storage settings"),
		)
		return err
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `onionbot doctor` to see failing checks"),
		)
		return err
	}
	if opts.Ready != nil {
		opts.Ready(d.APIAddress())
	}

	<-signalCtx.Done()
	logger.Info("onionbot daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	d.Stop()
	return nil
}

// PIDPath is where a running daemon records its process id.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "onionbot.pid")
}

func newLogger(cfg *config.Config, opts Options) (*slog.Logger, error) {
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	outputs := []string{"stdout"}
	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		outputs = append(outputs, filepath.Join(cfg.Paths.LogDir, "onionbot.log"))
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		Development: opts.Development,
	})
}

func writePIDFile(path string) error {
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
