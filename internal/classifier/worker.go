package classifier

import (
	"context"
	"image"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"onionbot/internal/logging"
	"onionbot/internal/metrics"
	"onionbot/internal/models"
)

// DefaultPollInterval bounds how long the idle consumer waits before it
// re-checks the shutdown flag.
const DefaultPollInterval = 100 * time.Millisecond

// ModelSource supplies the models to run, in iteration order.
type ModelSource interface {
	Descriptors() []models.Descriptor
}

// Options configures a Worker.
type Options struct {
	PollInterval time.Duration
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	// OnResult, when set, is called on the consumer goroutine after each
	// job's aggregation has been published.
	OnResult func(Job, Aggregation)
	// Decode loads an image; defaults to models.DecodeImage.
	Decode func(path string) (image.Image, error)
}

// Worker is the background classification consumer.
type Worker struct {
	models   ModelSource
	poll     time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	onResult func(Job, Aggregation)
	decode   func(string) (image.Image, error)

	wake    chan struct{}
	stopped chan struct{}
	latest  atomic.Pointer[Aggregation]
	skips   atomic.Uint64

	mu        sync.Mutex
	queue     []Job
	state     State
	launched  bool
	closing   bool
	shutdown  bool
	submitted uint64
	completed uint64
	progress  chan struct{}
}

// New builds a stopped worker over the given models.
func New(source ModelSource, opts Options) *Worker {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	decode := opts.Decode
	if decode == nil {
		decode = models.DecodeImage
	}
	w := &Worker{
		models:   source,
		poll:     poll,
		logger:   logging.NewComponentLogger(opts.Logger, "classifier"),
		metrics:  opts.Metrics,
		onResult: opts.OnResult,
		decode:   decode,
		wake:     make(chan struct{}, 1),
		stopped:  make(chan struct{}),
		progress: make(chan struct{}),
	}
	empty := Aggregation{}
	w.latest.Store(&empty)
	return w
}

// Launch starts the consumer goroutine. When ctx ends the worker stops
// accepting jobs and exits after draining the queue, as if Shutdown had been
// called.
func (w *Worker) Launch(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closing {
		return ErrClosed
	}
	if w.launched {
		return ErrAlreadyRunning
	}
	w.launched = true
	w.state = StateRunning
	go w.run(ctx)

	w.logger.Info("classification worker started",
		logging.String(logging.FieldEventType, "worker_started"),
		logging.Int("queued", len(w.queue)),
		logging.Duration("poll_interval", w.poll),
	)
	return nil
}

// Submit appends a job to the queue. It never blocks on queue depth and may
// be called before Launch.
func (w *Worker) Submit(imagePath string) error {
	w.mu.Lock()
	if w.closing {
		w.mu.Unlock()
		return ErrClosed
	}
	w.queue = append(w.queue, Job{ImagePath: imagePath})
	w.submitted++
	depth := len(w.queue)
	w.mu.Unlock()

	w.metrics.JobSubmitted(depth)
	w.signal()
	return nil
}

// AwaitDrain blocks until every job submitted before the call has completed,
// or ctx ends.
func (w *Worker) AwaitDrain(ctx context.Context) error {
	w.mu.Lock()
	target := w.submitted
	for w.completed < target {
		progress := w.progress
		w.mu.Unlock()
		select {
		case <-progress:
		case <-ctx.Done():
			return ctx.Err()
		}
		w.mu.Lock()
	}
	w.mu.Unlock()
	return nil
}

// Shutdown stops accepting jobs, lets the consumer finish everything already
// queued, and waits for it to exit. A worker that was never launched gets a
// consumer started here so jobs submitted before Launch still run. Later
// calls wait for the same consumer under their own ctx.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if w.shutdown {
		w.mu.Unlock()
		return w.waitStopped(ctx)
	}
	w.shutdown = true
	w.beginCloseLocked()
	if !w.launched {
		w.launched = true
		w.state = StateDraining
		go w.run(context.WithoutCancel(ctx))
	}
	pending := len(w.queue)
	w.mu.Unlock()

	w.logger.Info("classification worker draining",
		logging.String(logging.FieldEventType, "worker_draining"),
		logging.Int("pending", pending),
	)
	w.signal()
	return w.waitStopped(ctx)
}

func (w *Worker) waitStopped(ctx context.Context) error {
	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LatestResult returns a copy of the most recent aggregation. It is empty
// until the first job completes.
func (w *Worker) LatestResult() Aggregation {
	return (*w.latest.Load()).Clone()
}

// State reports the lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Stats returns the worker counters.
func (w *Worker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		State:      w.state,
		StateName:  w.state.String(),
		Submitted:  w.submitted,
		Completed:  w.completed,
		QueueDepth: len(w.queue),
		Skips:      w.skips.Load(),
	}
}

func (w *Worker) beginCloseLocked() {
	w.closing = true
	if w.state == StateRunning {
		w.state = StateDraining
	}
}

func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.stopped)
	logger := logging.WithContext(ctx, w.logger)

	timer := time.NewTimer(w.poll)
	defer timer.Stop()
	ctxDone := ctx.Done()

	for {
		if job, ok := w.dequeue(); ok {
			w.process(logger, job)
			continue
		}

		timer.Reset(w.poll)
		select {
		case <-w.wake:
		case <-ctxDone:
			ctxDone = nil
			w.mu.Lock()
			w.beginCloseLocked()
			w.mu.Unlock()
			if w.exitIfIdle(logger) {
				return
			}
		case <-timer.C:
			if w.exitIfIdle(logger) {
				return
			}
		}
	}
}

func (w *Worker) dequeue() (Job, bool) {
	w.mu.Lock()
	if len(w.queue) == 0 {
		w.mu.Unlock()
		return Job{}, false
	}
	job := w.queue[0]
	w.queue[0] = Job{}
	w.queue = w.queue[1:]
	depth := len(w.queue)
	w.mu.Unlock()

	w.metrics.JobDequeued(depth)
	return job, true
}

// exitIfIdle moves the worker to Stopped when shutdown has begun and nothing
// is queued.
func (w *Worker) exitIfIdle(logger *slog.Logger) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closing || len(w.queue) > 0 {
		return false
	}
	w.state = StateStopped
	logger.Info("classification worker stopped",
		logging.String(logging.FieldEventType, "worker_stopped"),
		logging.Uint64("completed", w.completed),
	)
	return true
}

func (w *Worker) process(logger *slog.Logger, job Job) {
	agg := make(Aggregation)
	descriptors := w.models.Descriptors()

	img, err := w.decode(job.ImagePath)
	if err != nil {
		logging.WarnWithContext(logger, "image could not be decoded; all models skipped", "image_decode_failed",
			logging.String(logging.FieldImagePath, job.ImagePath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the camera frame written for this measurement"),
			logging.String(logging.FieldImpact, "classification result for this frame is empty"),
		)
		for _, desc := range descriptors {
			w.recordSkip(desc.Name)
		}
	} else {
		for _, desc := range descriptors {
			if result, ok := w.classify(logger, desc, job, img); ok {
				agg[desc.Name] = result
			}
		}
	}

	w.latest.Store(&agg)
	w.complete()
	w.metrics.JobCompleted()

	logger.Debug("classification job complete",
		logging.String(logging.FieldEventType, "classification_complete"),
		logging.String(logging.FieldImagePath, job.ImagePath),
		logging.Int("results", len(agg)),
	)
	if w.onResult != nil {
		w.onResult(job, agg.Clone())
	}
}

func (w *Worker) classify(logger *slog.Logger, desc models.Descriptor, job Job, img image.Image) (Result, bool) {
	start := time.Now()
	candidates, err := desc.Model.Classify(img, 1)
	w.metrics.ObserveInference(desc.Name, time.Since(start).Seconds())
	if err != nil {
		logging.WarnWithContext(logger, "inference failed; model omitted from result", "inference_failed",
			logging.String(logging.FieldModel, desc.Name),
			logging.String(logging.FieldImagePath, job.ImagePath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "result for this frame lacks the model"),
		)
		w.recordSkip(desc.Name)
		return Result{}, false
	}
	if len(candidates) == 0 {
		w.skipDebug(logger, desc.Name, job, "no candidate")
		return Result{}, false
	}
	top := candidates[0]
	label, ok := desc.Labels.Lookup(top.Index)
	if !ok {
		w.skipDebug(logger, desc.Name, job, "index "+strconv.Itoa(top.Index)+" has no label")
		return Result{}, false
	}
	return Result{Label: label, Confidence: strconv.FormatFloat(top.Score, 'f', -1, 64)}, true
}

func (w *Worker) skipDebug(logger *slog.Logger, model string, job Job, reason string) {
	logger.Debug("inference skipped",
		logging.String(logging.FieldEventType, "inference_skip"),
		logging.String(logging.FieldModel, model),
		logging.String(logging.FieldImagePath, job.ImagePath),
		logging.String("reason", reason),
	)
	w.recordSkip(model)
}

func (w *Worker) recordSkip(model string) {
	w.skips.Add(1)
	w.metrics.InferenceSkipped(model)
}

func (w *Worker) complete() {
	w.mu.Lock()
	w.completed++
	close(w.progress)
	w.progress = make(chan struct{})
	w.mu.Unlock()
}
