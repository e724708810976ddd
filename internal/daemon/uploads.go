package daemon

import (
	"context"
	"time"

	"onionbot/internal/logging"
)

const uploadBatchSize = 50

// retryUploads re-uploads journaled records whose upload failed, oldest
// first, until ctx ends.
func (d *Daemon) retryUploads(ctx context.Context) error {
	if d.store.Name() == "none" {
		return nil
	}
	ticker := time.NewTicker(uploadRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.flushPendingUploads(ctx)
		}
	}
}

// flushPendingUploads makes one pass over the upload backlog and returns the
// number of records uploaded.
func (d *Daemon) flushPendingUploads(ctx context.Context) int {
	pending, err := d.journal.PendingUploads(ctx, uploadBatchSize)
	if err != nil {
		d.logger.Debug("list pending uploads failed", logging.Error(err))
		return 0
	}
	uploaded := 0
	for _, entry := range pending {
		if ctx.Err() != nil {
			return uploaded
		}
		failed := false
		for _, path := range []string{entry.CameraPath, entry.ThermalPath, entry.MetaPath} {
			if path == "" {
				continue
			}
			if err := d.store.Upload(ctx, path); err != nil {
				logging.WarnWithContext(d.logger, "upload retry failed", "upload_retry_failed",
					logging.String("record", entry.ID),
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldImpact, "record stays in the upload backlog"),
				)
				failed = true
				break
			}
		}
		if failed {
			// Keep order: later records wait for this one.
			return uploaded
		}
		if err := d.journal.MarkUploaded(ctx, entry.ID); err != nil {
			d.logger.Debug("mark uploaded failed", logging.String("record", entry.ID), logging.Error(err))
			continue
		}
		uploaded++
	}
	if uploaded > 0 {
		d.logger.Info("upload backlog flushed",
			logging.String(logging.FieldEventType, "upload_backlog_flushed"),
			logging.Int("records", uploaded),
		)
	}
	return uploaded
}
