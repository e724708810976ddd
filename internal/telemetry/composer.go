package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"onionbot/internal/classifier"
	"onionbot/internal/fileutil"
	"onionbot/internal/logging"
	"onionbot/internal/metrics"
	"onionbot/internal/session"
)

// DefaultPublicBaseURL is where uploaded artifacts are served from.
const DefaultPublicBaseURL = "https://storage.googleapis.com/onionbucket"

// Options configures a Composer.
type Options struct {
	// PublicBaseURL replaces LocalRoot in artifact URLs.
	PublicBaseURL string
	LocalRoot     string
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// Composer builds meta records for one session. It is not safe for
// concurrent use; the capture loop is its only caller.
type Composer struct {
	baseURL string
	root    string
	logger  *slog.Logger
	metrics *metrics.Metrics

	lastCapture time.Time
	hasLast     bool
}

// NewComposer returns a composer with no previous capture.
func NewComposer(opts Options) *Composer {
	base := strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/")
	if base == "" {
		base = DefaultPublicBaseURL
	}
	return &Composer{
		baseURL: base,
		root:    filepath.Clean(opts.LocalRoot),
		logger:  logging.NewComponentLogger(opts.Logger, "telemetry"),
		metrics: opts.Metrics,
	}
}

// LastCapture returns the timestamp of the previous Compose call.
func (c *Composer) LastCapture() (time.Time, bool) {
	return c.lastCapture, c.hasLast
}

// Compose assembles the record for one measurement and writes it to
// paths.Meta. The record is returned even when writing fails; in that case
// the error is a *PersistError. Empty camera or thermal paths are emitted as
// null, and any non-empty one must already exist on disk.
func (c *Composer) Compose(
	sess session.Session,
	ts time.Time,
	paths session.FilePathSet,
	thermal ThermalSnapshot,
	control ControlSnapshot,
	classification classifier.Aggregation,
) (MetaRecord, error) {
	var interval *float64
	if c.hasLast {
		interval = Float(math.Round(ts.Sub(c.lastCapture).Seconds()*10) / 10)
	}
	c.lastCapture = ts
	c.hasLast = true

	stamp := session.FormatTimestamp(ts)
	record := MetaRecord{
		Type: RecordTypeMeta,
		ID:   fmt.Sprintf("%s_%d_%s", sess.Name, sess.MeasurementID, stamp),
		Attributes: MetaAttributes{
			SessionName:     sess.Name,
			Interval:        interval,
			ActiveLabel:     sess.ActiveLabel,
			MeasurementID:   sess.MeasurementID,
			TimeStamp:       stamp,
			CameraFilepath:  c.PublicURL(paths.Camera),
			ThermalFilepath: c.PublicURL(paths.Thermal),
			ThermalSnapshot: thermal,
			ControlSnapshot: control,
		},
	}
	if len(classification) > 0 {
		record.Attributes.Classification = classification.Clone()
	}

	err := c.persist(record, paths)
	c.metrics.MetaRecord(err == nil)
	if err != nil {
		logging.ErrorWithContext(c.logger, "meta record not persisted", "meta_persist_failed",
			logging.String(logging.FieldSession, sess.Name),
			logging.Int(logging.FieldMeasurementID, sess.MeasurementID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions under the data directory"),
		)
		return record, err
	}
	c.logger.Debug("meta record written",
		logging.String(logging.FieldEventType, "meta_written"),
		logging.String(logging.FieldSession, sess.Name),
		logging.Int(logging.FieldMeasurementID, sess.MeasurementID),
		logging.String("path", paths.Meta),
	)
	return record, nil
}

func (c *Composer) persist(record MetaRecord, paths session.FilePathSet) error {
	if paths.Meta == "" {
		return &PersistError{Op: "write", Path: "", Err: errors.New("no meta path")}
	}
	for _, artifact := range []string{paths.Camera, paths.Thermal} {
		if artifact == "" {
			continue
		}
		if _, err := os.Stat(artifact); err != nil {
			return &PersistError{Op: "verify artifact", Path: artifact, Err: err}
		}
	}
	data, err := json.Marshal(record)
	if err != nil {
		return &PersistError{Op: "encode", Path: paths.Meta, Err: err}
	}
	if err := fileutil.WriteFileAtomic(paths.Meta, data, 0o644); err != nil {
		return &PersistError{Op: "write", Path: paths.Meta, Err: err}
	}
	return nil
}

// PublicURL maps a local artifact path beneath the local root to its public
// URL. Empty paths and paths outside the root map to nil.
func (c *Composer) PublicURL(local string) *string {
	if local == "" {
		return nil
	}
	rel, err := filepath.Rel(c.root, filepath.Clean(local))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		logging.WarnWithContext(c.logger, "artifact outside local root; public url omitted", "public_url_unmapped",
			logging.String("path", local),
			logging.String("local_root", c.root),
			logging.String(logging.FieldImpact, "portal cannot display this artifact"),
		)
		return nil
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	public := c.baseURL + "/" + strings.Join(segments, "/")
	return &public
}
