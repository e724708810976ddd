// Package metrics defines the prometheus collectors exported on /metrics.
//
// All recording methods are safe on a nil *Metrics so components can run
// without a registry in tests and CLI one-shots.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values for meta records and uploads.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics holds the controller collectors.
type Metrics struct {
	jobsSubmitted    prometheus.Counter
	jobsCompleted    prometheus.Counter
	inferenceSkips   *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	inferenceSeconds *prometheus.HistogramVec
	metaRecords      *prometheus.CounterVec
	uploads          *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onionbot_classification_jobs_submitted_total",
			Help: "Images submitted to the classification worker.",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onionbot_classification_jobs_completed_total",
			Help: "Classification jobs fully processed by the worker.",
		}),
		inferenceSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onionbot_inference_skips_total",
			Help: "Per-model results omitted because inference produced no usable label.",
		}, []string{"model"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "onionbot_classification_queue_depth",
			Help: "Jobs waiting in the classification queue.",
		}),
		inferenceSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onionbot_inference_seconds",
			Help:    "Time spent in a single model inference call.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"model"}),
		metaRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onionbot_meta_records_total",
			Help: "Meta records composed, by persistence result.",
		}, []string{"result"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onionbot_uploads_total",
			Help: "Artifact uploads to the object store, by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		collectors := []prometheus.Collector{
			m.jobsSubmitted, m.jobsCompleted, m.inferenceSkips, m.queueDepth,
			m.inferenceSeconds, m.metaRecords, m.uploads,
		}
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// JobSubmitted counts a submit and records the resulting queue depth.
func (m *Metrics) JobSubmitted(depth int) {
	if m == nil {
		return
	}
	m.jobsSubmitted.Inc()
	m.queueDepth.Set(float64(depth))
}

// JobDequeued records the queue depth after the consumer took a job.
func (m *Metrics) JobDequeued(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// JobCompleted counts a finished job.
func (m *Metrics) JobCompleted() {
	if m == nil {
		return
	}
	m.jobsCompleted.Inc()
}

// InferenceSkipped counts an omitted model result.
func (m *Metrics) InferenceSkipped(model string) {
	if m == nil {
		return
	}
	m.inferenceSkips.WithLabelValues(model).Inc()
}

// ObserveInference records one inference call duration in seconds.
func (m *Metrics) ObserveInference(model string, seconds float64) {
	if m == nil {
		return
	}
	m.inferenceSeconds.WithLabelValues(model).Observe(seconds)
}

// MetaRecord counts a composed meta record.
func (m *Metrics) MetaRecord(persisted bool) {
	if m == nil {
		return
	}
	m.metaRecords.WithLabelValues(result(persisted)).Inc()
}

// Upload counts an artifact upload.
func (m *Metrics) Upload(ok bool) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return ResultOK
	}
	return ResultFailed
}
