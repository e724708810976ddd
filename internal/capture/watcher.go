package capture

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"onionbot/internal/logging"
)

// DefaultSettleDelay is how long a spool file must stay quiet before it is
// treated as a complete frame.
const DefaultSettleDelay = 50 * time.Millisecond

// FrameHandler consumes a complete frame file.
type FrameHandler func(ctx context.Context, path string) error

// SpoolWatcher calls a handler for every frame file written into a spool
// directory. Writes are debounced so a frame is handled once its writer has
// gone quiet; frames settling together are handled in name order.
type SpoolWatcher struct {
	dir     string
	handler FrameHandler
	settle  time.Duration
	logger  *slog.Logger
}

// NewSpoolWatcher returns a watcher for dir. A non-positive settle uses
// DefaultSettleDelay.
func NewSpoolWatcher(dir string, handler FrameHandler, settle time.Duration, logger *slog.Logger) *SpoolWatcher {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &SpoolWatcher{
		dir:     dir,
		handler: handler,
		settle:  settle,
		logger:  logging.NewComponentLogger(logger, "spool-watcher"),
	}
}

// Run watches until ctx is cancelled.
func (w *SpoolWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("spool watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch spool %s: %w", w.dir, err)
	}
	w.logger.Info("watching spool directory", logging.String("dir", w.dir))

	pending := make(map[string]struct{})
	var (
		settleTimer *time.Timer
		settleCh    <-chan time.Time
	)
	resetSettle := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(w.settle)
		} else {
			settleTimer.Reset(w.settle)
		}
		settleCh = settleTimer.C
	}
	defer func() {
		if settleTimer != nil {
			settleTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !IsFrameFile(filepath.Base(ev.Name)) {
				continue
			}
			pending[ev.Name] = struct{}{}
			resetSettle()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "spool watcher error", "spool_watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "frames may be missed until the watcher recovers"),
			)
		case <-settleCh:
			settleCh = nil
			frames := make([]string, 0, len(pending))
			for path := range pending {
				frames = append(frames, path)
			}
			clear(pending)
			slices.Sort(frames)
			for _, path := range frames {
				if err := w.handler(ctx, path); err != nil {
					w.logger.Debug("frame handler failed",
						logging.String(logging.FieldImagePath, path),
						logging.Error(err),
					)
				}
			}
		}
	}
}
