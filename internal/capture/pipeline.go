package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"onionbot/internal/classifier"
	"onionbot/internal/logging"
	"onionbot/internal/metrics"
	"onionbot/internal/objectstore"
	"onionbot/internal/services"
	"onionbot/internal/session"
	"onionbot/internal/telemetry"
)

const (
	// DefaultFrameInterval is the pause between captures of a running session.
	DefaultFrameInterval = time.Second
	// DefaultActiveLabel labels sessions started without one.
	DefaultActiveLabel = "Discard"
)

var (
	// ErrNoSession reports an operation that needs an active session.
	ErrNoSession = fmt.Errorf("%w: no active session", services.ErrLifecycle)
	// ErrSessionActive reports Start while a session is running.
	ErrSessionActive = fmt.Errorf("%w: session already active", services.ErrLifecycle)
	// ErrInvalidInterval reports a non-positive frame interval.
	ErrInvalidInterval = fmt.Errorf("%w: frame interval must be positive", services.ErrConfiguration)
)

// Classifier accepts camera frames and exposes the latest aggregation.
type Classifier interface {
	Submit(imagePath string) error
	LatestResult() classifier.Aggregation
}

// Journal indexes composed records and their upload state.
type Journal interface {
	RecordMeta(ctx context.Context, record telemetry.MetaRecord, paths session.FilePathSet, persisted bool) error
	MarkUploaded(ctx context.Context, id string) error
}

// Notifier receives operator-facing session events.
type Notifier interface {
	NotifySessionStarted(ctx context.Context, sessionName, activeLabel string) error
	NotifySessionStopped(ctx context.Context, sessionName string, measurements int, duration time.Duration) error
	NotifyPersistFailed(ctx context.Context, sessionName string, measurementID int, err error) error
	NotifyUploadFailed(ctx context.Context, path string, err error) error
}

// Options wires a Pipeline. Resolver and Worker are required; missing devices
// fall back to a rig with no thermal camera and idle sensors.
type Options struct {
	Resolver *session.Resolver
	Worker   Classifier
	Camera   Camera
	Thermal  ThermalCamera
	Sensor   SensorReader
	Control  ControlLoop
	Store    objectstore.Store
	Journal  Journal
	Notifier Notifier

	PublicBaseURL string
	LocalRoot     string
	FrameInterval time.Duration
	DefaultLabel  string
	// KnownLabels are the canonical spellings active labels normalize to.
	KnownLabels []string

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Status describes the pipeline for the API.
type Status struct {
	Active        bool      `json:"active"`
	Session       string    `json:"session,omitempty"`
	ActiveLabel   string    `json:"active_label,omitempty"`
	MeasurementID int       `json:"measurement_id"`
	FrameInterval float64   `json:"frame_interval_seconds"`
	StartedAt     time.Time `json:"started_at,omitzero"`
}

// Pipeline runs the capture loop of one session at a time. Captures are
// serialized; state accessors never wait for an in-flight capture.
type Pipeline struct {
	resolver *session.Resolver
	worker   Classifier
	camera   Camera
	thermal  ThermalCamera
	sensor   SensorReader
	control  ControlLoop
	store    objectstore.Store
	journal  Journal
	notifier Notifier

	composerOpts telemetry.Options
	defaultLabel string
	knownLabels  []string
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time

	captureMu sync.Mutex

	mu       sync.RWMutex
	sess     *session.Session
	composer *telemetry.Composer
	started  time.Time
	latest   *telemetry.MetaRecord
	interval time.Duration
	wake     chan struct{}
}

// New validates opts and returns an idle pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Resolver == nil {
		return nil, services.Wrap(services.ErrConfiguration, "capture", "new", "resolver required", nil)
	}
	if opts.Worker == nil {
		return nil, services.Wrap(services.ErrConfiguration, "capture", "new", "classification worker required", nil)
	}
	interval := opts.FrameInterval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	p := &Pipeline{
		resolver: opts.Resolver,
		worker:   opts.Worker,
		camera:   opts.Camera,
		thermal:  opts.Thermal,
		sensor:   opts.Sensor,
		control:  opts.Control,
		store:    opts.Store,
		journal:  opts.Journal,
		notifier: opts.Notifier,
		composerOpts: telemetry.Options{
			PublicBaseURL: opts.PublicBaseURL,
			LocalRoot:     opts.LocalRoot,
			Logger:        opts.Logger,
			Metrics:       opts.Metrics,
		},
		knownLabels: append([]string(nil), opts.KnownLabels...),
		logger:      logging.NewComponentLogger(opts.Logger, "capture"),
		metrics:     opts.Metrics,
		now:         opts.Now,
		interval:    interval,
		wake:        make(chan struct{}, 1),
	}
	if p.composerOpts.LocalRoot == "" {
		p.composerOpts.LocalRoot = opts.Resolver.Root()
	}
	p.defaultLabel = session.NormalizeLabel(opts.DefaultLabel, p.knownLabels...)
	if p.defaultLabel == "" {
		p.defaultLabel = DefaultActiveLabel
	}
	if p.camera == nil {
		p.camera = SpoolCamera{}
	}
	if p.thermal == nil {
		p.thermal = NoThermal{}
	}
	if p.sensor == nil {
		p.sensor = &StaticSensor{}
	}
	if p.control == nil {
		p.control = &StaticControl{}
	}
	if p.store == nil {
		p.store = objectstore.Noop{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Start opens a session. An empty name is generated and an empty label falls
// back to the configured default.
func (p *Pipeline) Start(ctx context.Context, name, activeLabel string) (session.Session, error) {
	p.captureMu.Lock()
	defer p.captureMu.Unlock()

	label := session.NormalizeLabel(activeLabel, p.knownLabels...)
	if label == "" {
		label = p.defaultLabel
	}

	p.mu.Lock()
	if p.sess != nil {
		p.mu.Unlock()
		return session.Session{}, ErrSessionActive
	}
	sess := session.New(name, label)
	if err := validateSession(sess); err != nil {
		p.mu.Unlock()
		return session.Session{}, err
	}
	p.sess = sess
	p.composer = telemetry.NewComposer(p.composerOpts)
	p.started = p.now()
	p.latest = nil
	snapshot := *sess
	p.mu.Unlock()
	p.signal()

	p.logger.Info("session started",
		logging.String(logging.FieldEventType, "session_started"),
		logging.String(logging.FieldSession, snapshot.Name),
		logging.String("active_label", snapshot.ActiveLabel),
	)
	if p.notifier != nil {
		if err := p.notifier.NotifySessionStarted(ctx, snapshot.Name, snapshot.ActiveLabel); err != nil {
			p.logger.Debug("session start notification failed", logging.Error(err))
		}
	}
	return snapshot, nil
}

func validateSession(sess *session.Session) error {
	if err := session.CheckComponent(sess.Name); err != nil {
		return services.Wrap(services.ErrConfiguration, "capture", "start", "session name", err)
	}
	if err := session.CheckComponent(sess.ActiveLabel); err != nil {
		return services.Wrap(services.ErrConfiguration, "capture", "start", "active label", err)
	}
	return nil
}

// Stop closes the active session after any in-flight capture finishes.
func (p *Pipeline) Stop(ctx context.Context) (session.Session, error) {
	p.captureMu.Lock()
	defer p.captureMu.Unlock()

	p.mu.Lock()
	if p.sess == nil {
		p.mu.Unlock()
		return session.Session{}, ErrNoSession
	}
	final := *p.sess
	duration := p.now().Sub(p.started)
	p.sess = nil
	p.composer = nil
	p.mu.Unlock()

	p.logger.Info("session stopped",
		logging.String(logging.FieldEventType, "session_stopped"),
		logging.String(logging.FieldSession, final.Name),
		logging.Int("measurements", final.MeasurementID),
		logging.Duration("duration", duration),
	)
	if p.notifier != nil {
		if err := p.notifier.NotifySessionStopped(ctx, final.Name, final.MeasurementID, duration); err != nil {
			p.logger.Debug("session stop notification failed", logging.Error(err))
		}
	}
	return final, nil
}

// Active reports whether a session is running.
func (p *Pipeline) Active() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sess != nil
}

// Status returns the current session state.
func (p *Pipeline) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	status := Status{FrameInterval: p.interval.Seconds()}
	if p.sess != nil {
		status.Active = true
		status.Session = p.sess.Name
		status.ActiveLabel = p.sess.ActiveLabel
		status.MeasurementID = p.sess.MeasurementID
		status.StartedAt = p.started
	}
	return status
}

// SetActiveLabel changes the label of subsequent captures and returns the
// normalized label.
func (p *Pipeline) SetActiveLabel(label string) (string, error) {
	normalized := session.NormalizeLabel(label, p.knownLabels...)
	if err := session.CheckComponent(normalized); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "capture", "set label", "active label", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return "", ErrNoSession
	}
	p.sess.ActiveLabel = normalized
	return normalized, nil
}

// FrameInterval returns the pause between captures.
func (p *Pipeline) FrameInterval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.interval
}

// SetFrameInterval changes the pause between captures. A running loop picks
// it up immediately.
func (p *Pipeline) SetFrameInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidInterval
	}
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()
	p.signal()
	return nil
}

// LatestMeta returns the last composed record of the active session.
func (p *Pipeline) LatestMeta() (telemetry.MetaRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return telemetry.MetaRecord{}, false
	}
	return *p.latest, true
}

func (p *Pipeline) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Capture takes one measurement from the configured camera.
func (p *Pipeline) Capture(ctx context.Context) (telemetry.MetaRecord, error) {
	return p.capture(ctx, p.camera)
}

// CaptureFrom takes one measurement using src as the camera frame.
func (p *Pipeline) CaptureFrom(ctx context.Context, src string) (telemetry.MetaRecord, error) {
	return p.capture(ctx, SpoolCamera{Source: src})
}

// capture runs one measurement end to end. A persistence failure still
// returns the composed record alongside the *telemetry.PersistError.
func (p *Pipeline) capture(ctx context.Context, camera Camera) (telemetry.MetaRecord, error) {
	p.captureMu.Lock()
	defer p.captureMu.Unlock()

	p.mu.Lock()
	if p.sess == nil {
		p.mu.Unlock()
		return telemetry.MetaRecord{}, ErrNoSession
	}
	p.sess.Next()
	sess := *p.sess
	composer := p.composer
	p.mu.Unlock()

	ctx = services.WithSession(ctx, sess.Name)
	ctx = services.WithMeasurementID(ctx, sess.MeasurementID)
	logger := logging.WithContext(ctx, p.logger)

	ts := p.now()
	paths, err := p.resolver.Resolve(sess.Name, sess.MeasurementID, session.FormatTimestamp(ts), sess.ActiveLabel)
	if err != nil {
		return telemetry.MetaRecord{}, err
	}

	if err := camera.Capture(ctx, paths.Camera); err != nil {
		logging.WarnWithContext(logger, "camera frame unavailable", "camera_capture_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "measurement recorded without a camera frame"),
			logging.String(logging.FieldErrorHint, "check the camera spool directory"),
		)
		_ = os.Remove(paths.Camera)
		paths.Camera = ""
	}
	if ok, err := p.thermal.Capture(ctx, paths.Thermal); err != nil || !ok {
		if err != nil {
			logging.WarnWithContext(logger, "thermal frame unavailable", "thermal_capture_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "measurement recorded without a thermal frame"),
			)
		}
		_ = os.Remove(paths.Thermal)
		paths.Thermal = ""
	}

	if paths.Camera != "" {
		if err := p.worker.Submit(paths.Camera); err != nil {
			logging.WarnWithContext(logger, "frame not queued for classification", "classification_submit_failed",
				logging.Error(err),
				logging.String(logging.FieldImagePath, paths.Camera),
				logging.String(logging.FieldImpact, "classification snapshot goes stale"),
			)
		}
	}

	record, persistErr := composer.Compose(sess, ts, paths, p.sensor.Snapshot(), p.control.Snapshot(), p.worker.LatestResult())
	persisted := persistErr == nil
	if !persisted && p.notifier != nil {
		if err := p.notifier.NotifyPersistFailed(ctx, sess.Name, sess.MeasurementID, persistErr); err != nil {
			logger.Debug("persist failure notification failed", logging.Error(err))
		}
	}
	if p.journal != nil {
		if err := p.journal.RecordMeta(ctx, record, paths, persisted); err != nil {
			logging.WarnWithContext(logger, "meta record not journaled", "journal_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "record missing from session history"),
			)
		}
	}

	p.mu.Lock()
	if p.sess != nil && p.sess.Name == sess.Name {
		p.latest = &record
	}
	p.mu.Unlock()

	if persisted {
		p.upload(ctx, logger, record.ID, paths)
	}

	logger.Debug("measurement captured",
		logging.String(logging.FieldEventType, "measurement_captured"),
		logging.Bool("persisted", persisted),
		logging.Int("classification_models", len(record.Attributes.Classification)),
	)
	return record, persistErr
}

// upload pushes the artifacts of one record to the object store in parallel.
// Failures are logged and notified; the record stays pending in the journal.
func (p *Pipeline) upload(ctx context.Context, logger *slog.Logger, id string, paths session.FilePathSet) {
	if _, disabled := p.store.(objectstore.Noop); disabled {
		return
	}
	var g errgroup.Group
	for _, artifact := range []string{paths.Camera, paths.Thermal, paths.Meta} {
		if artifact == "" {
			continue
		}
		g.Go(func() error {
			err := p.store.Upload(ctx, artifact)
			p.metrics.Upload(err == nil)
			if err == nil {
				return nil
			}
			logging.WarnWithContext(logger, "artifact upload failed", "upload_failed",
				logging.String("path", artifact),
				logging.String("store", p.store.Name()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "portal link unavailable until the next upload"),
			)
			if p.notifier != nil {
				if nerr := p.notifier.NotifyUploadFailed(ctx, artifact, err); nerr != nil {
					logger.Debug("upload failure notification failed", logging.Error(nerr))
				}
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return
	}
	if p.journal != nil {
		if err := p.journal.MarkUploaded(ctx, id); err != nil {
			logger.Debug("mark uploaded failed", logging.Error(err))
		}
	}
}

// Run captures every frame interval while a session is active until ctx is
// cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	timer := time.NewTimer(p.FrameInterval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.wake:
			timer.Reset(p.FrameInterval())
		case <-timer.C:
			if p.Active() {
				if _, err := p.Capture(ctx); err != nil && !errors.Is(err, ErrNoSession) {
					p.logger.Debug("capture failed", logging.Error(err))
				}
			}
			timer.Reset(p.FrameInterval())
		}
	}
}
