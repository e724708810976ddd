package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m.JobSubmitted(3)
	m.JobSubmitted(4)
	if got := testutil.ToFloat64(m.jobsSubmitted); got != 2 {
		t.Fatalf("expected 2 submitted, got %f", got)
	}
	if got := testutil.ToFloat64(m.queueDepth); got != 4 {
		t.Fatalf("expected depth 4, got %f", got)
	}
	m.JobDequeued(1)
	if got := testutil.ToFloat64(m.queueDepth); got != 1 {
		t.Fatalf("expected depth 1, got %f", got)
	}

	m.JobCompleted()
	if got := testutil.ToFloat64(m.jobsCompleted); got != 1 {
		t.Fatalf("expected 1 completed, got %f", got)
	}

	m.InferenceSkipped("sauce")
	m.InferenceSkipped("sauce")
	if got := testutil.ToFloat64(m.inferenceSkips.WithLabelValues("sauce")); got != 2 {
		t.Fatalf("expected 2 sauce skips, got %f", got)
	}

	m.ObserveInference("pasta", 0.02)
	if samples := testutil.CollectAndCount(m.inferenceSeconds); samples != 1 {
		t.Fatalf("expected one inference series, got %d", samples)
	}

	m.MetaRecord(true)
	m.MetaRecord(false)
	m.Upload(false)
	if got := testutil.ToFloat64(m.metaRecords.WithLabelValues(ResultFailed)); got != 1 {
		t.Fatalf("expected 1 failed meta record, got %f", got)
	}
	if got := testutil.ToFloat64(m.uploads.WithLabelValues(ResultFailed)); got != 1 {
		t.Fatalf("expected 1 failed upload, got %f", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.JobSubmitted(1)
	m.JobDequeued(0)
	m.JobCompleted()
	m.InferenceSkipped("pasta")
	m.ObserveInference("pasta", 1)
	m.MetaRecord(true)
	m.Upload(true)
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
