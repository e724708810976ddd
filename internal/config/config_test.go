package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"onionbot/internal/config"
	"onionbot/internal/services"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "onionbot")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Telemetry.LocalRoot != wantData {
		t.Fatalf("expected local root to default to data dir, got %q", cfg.Telemetry.LocalRoot)
	}
	if cfg.Telemetry.PublicBaseURL != "https://storage.googleapis.com/onionbucket" {
		t.Fatalf("unexpected public base url: %q", cfg.Telemetry.PublicBaseURL)
	}
	if got := strings.Join(cfg.Models.Enabled, ","); got != "pasta,sauce,pan_on_off" {
		t.Fatalf("unexpected enabled models: %q", got)
	}
	if cfg.PollInterval().Milliseconds() != 100 {
		t.Fatalf("unexpected poll interval: %v", cfg.PollInterval())
	}
	if cfg.Storage.Backend != "none" {
		t.Fatalf("expected storage disabled by default, got %q", cfg.Storage.Backend)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	t.Chdir(tempDir)
	configPath := filepath.Join(tempDir, "onionbot.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Models struct {
			Enabled []string `toml:"enabled"`
		} `toml:"models"`
		Telemetry struct {
			PublicBaseURL string `toml:"public_base_url"`
		} `toml:"telemetry"`
		Classifier struct {
			PollIntervalMS int `toml:"poll_interval_ms"`
		} `toml:"classifier"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Models.Enabled = []string{" Pan_On_Off ", "pan_on_off", ""}
	custom.Telemetry.PublicBaseURL = "https://example.com/bucket/"
	custom.Classifier.PollIntervalMS = 25
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if len(cfg.Models.Enabled) != 1 || cfg.Models.Enabled[0] != "pan_on_off" {
		t.Fatalf("expected normalized model list, got %v", cfg.Models.Enabled)
	}
	if cfg.Telemetry.PublicBaseURL != "https://example.com/bucket" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Telemetry.PublicBaseURL)
	}
	if cfg.Telemetry.LocalRoot != custom.Paths.DataDir {
		t.Fatalf("expected local root %q, got %q", custom.Paths.DataDir, cfg.Telemetry.LocalRoot)
	}
	if cfg.Classifier.PollIntervalMS != 25 {
		t.Fatalf("expected poll interval 25, got %d", cfg.Classifier.PollIntervalMS)
	}
}

func TestLoadReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	envFile := "AZURE_STORAGE_CONNECTION_STRING=from-dotenv\nONIONBOT_NTFY_TOPIC=https://ntfy.example/dotenv\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(envFile), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("ONIONBOT_NTFY_TOPIC", "https://ntfy.example/env")
	t.Setenv("AZURE_STORAGE_CONNECTION_STRING", "")
	os.Unsetenv("AZURE_STORAGE_CONNECTION_STRING")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.ConnectionString != "from-dotenv" {
		t.Fatalf("expected connection string from .env, got %q", cfg.Storage.ConnectionString)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/env" {
		t.Fatalf("expected environment to win over .env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSample(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Models.Backend != "colorprofile" {
		t.Fatalf("unexpected backend from sample: %q", cfg.Models.Backend)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"no models", func(c *config.Config) { c.Models.Enabled = nil }, "models.enabled"},
		{"unknown backend", func(c *config.Config) { c.Models.Backend = "edgetpu" }, "models.backend"},
		{"relative base url", func(c *config.Config) { c.Telemetry.PublicBaseURL = "bucket" }, "public_base_url"},
		{"label with separator", func(c *config.Config) { c.Capture.DefaultLabel = "a/b" }, "default_label"},
		{"watch without spool", func(c *config.Config) { c.Capture.WatchSpool = true }, "spool_dir"},
		{"local without dir", func(c *config.Config) { c.Storage.Backend = "local" }, "local_dir"},
		{"azblob without account", func(c *config.Config) { c.Storage.Backend = "azblob" }, "account_url"},
		{"unknown storage", func(c *config.Config) { c.Storage.Backend = "ftp" }, "storage.backend"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration marker, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}
