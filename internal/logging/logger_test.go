package logging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"onionbot/internal/config"
	"onionbot/internal/logging"
	"onionbot/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("controller ready")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "onionbot.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "controller ready") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersComponentPrefix(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "component.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "classifier").Info("job complete", logging.String(logging.FieldModel, "pasta"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "classifier: job complete") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "model=pasta") {
		t.Fatalf("expected model field, got %q", line)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(content, &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload["ts"] == nil || payload["level"] != "info" || payload["k"] != "v" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

type recordingHandler struct {
	records []slog.Record
	attrs   []slog.Attr
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.attrs = append(h.attrs, attrs...)
	return h
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSession(ctx, "sess1")
	ctx = services.WithMeasurementID(ctx, 7)
	ctx = services.WithRequestID(ctx, "req-xyz")

	handler := &recordingHandler{}
	logging.WithContext(ctx, slog.New(handler)).Info("contextual log")

	if len(handler.records) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(handler.records))
	}
	got := make(map[string]string, len(handler.attrs))
	for _, attr := range handler.attrs {
		got[attr.Key] = attr.Value.String()
	}
	want := map[string]string{
		logging.FieldSession:       "sess1",
		logging.FieldMeasurementID: "7",
		logging.FieldCorrelationID: "req-xyz",
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("field %s = %q, want %q", key, got[key], value)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	handler := &recordingHandler{}
	logging.WarnWithContext(slog.New(handler), "upload failed", "upload_failed")

	if len(handler.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(handler.records))
	}
	keys := map[string]bool{}
	handler.records[0].Attrs(func(a slog.Attr) bool {
		keys[a.Key] = true
		return true
	})
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if !keys[key] {
			t.Fatalf("expected %s attribute", key)
		}
	}
}
