package testsupport

import (
	"path/filepath"
	"testing"

	"onionbot/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a fresh temp directory. The API binds
// to an ephemeral loopback port and uploads are disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.ModelsDir = filepath.Join(base, "models")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Telemetry.LocalRoot = cfgVal.Paths.DataDir
	cfgVal.Classifier.PollIntervalMS = 10
	cfgVal.Capture.MinFreeMiB = 0

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithModels overrides the enabled model list.
func WithModels(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Models.Enabled = append([]string(nil), names...)
	}
}

// WithSpool points the spool camera at a spool directory under the base dir.
func WithSpool(watch bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.SpoolDir = filepath.Join(b.baseDir, "spool")
		b.cfg.Capture.WatchSpool = watch
	}
}

// WithLocalStorage mirrors uploads into a directory under the base dir.
func WithLocalStorage() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Backend = "local"
		b.cfg.Storage.LocalDir = filepath.Join(b.baseDir, "bucket")
	}
}

// WithNtfyTopic enables notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
