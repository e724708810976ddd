package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeModels()
	if err := c.normalizeTelemetry(); err != nil {
		return err
	}
	if err := c.normalizeCapture(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ModelsDir) == "" {
		c.Paths.ModelsDir = defaultModelsDir
	}
	if c.Paths.ModelsDir, err = expandPath(c.Paths.ModelsDir); err != nil {
		return fmt.Errorf("paths.models_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if value, ok := os.LookupEnv("ONIONBOT_API_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIToken = value
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeModels() {
	names := make([]string, 0, len(c.Models.Enabled))
	seen := make(map[string]struct{}, len(c.Models.Enabled))
	for _, name := range c.Models.Enabled {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		names = append(names, normalized)
	}
	c.Models.Enabled = names
	c.Models.Backend = strings.ToLower(strings.TrimSpace(c.Models.Backend))
	if c.Models.Backend == "" {
		c.Models.Backend = defaultModelBackend
	}
	if c.Classifier.PollIntervalMS <= 0 {
		c.Classifier.PollIntervalMS = defaultPollIntervalMS
	}
}

func (c *Config) normalizeTelemetry() error {
	c.Telemetry.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Telemetry.PublicBaseURL), "/")
	if c.Telemetry.PublicBaseURL == "" {
		c.Telemetry.PublicBaseURL = defaultPublicBaseURL
	}
	if strings.TrimSpace(c.Telemetry.LocalRoot) == "" {
		c.Telemetry.LocalRoot = c.Paths.DataDir
		return nil
	}
	var err error
	if c.Telemetry.LocalRoot, err = expandPath(c.Telemetry.LocalRoot); err != nil {
		return fmt.Errorf("telemetry.local_root: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() error {
	var err error
	if c.Capture.SpoolDir, err = expandPath(strings.TrimSpace(c.Capture.SpoolDir)); err != nil {
		return fmt.Errorf("capture.spool_dir: %w", err)
	}
	if c.Capture.CameraSource, err = expandPath(strings.TrimSpace(c.Capture.CameraSource)); err != nil {
		return fmt.Errorf("capture.camera_source: %w", err)
	}
	if c.Capture.FrameIntervalSeconds <= 0 {
		c.Capture.FrameIntervalSeconds = defaultFrameIntervalSeconds
	}
	c.Capture.DefaultLabel = strings.TrimSpace(c.Capture.DefaultLabel)
	if c.Capture.DefaultLabel == "" {
		c.Capture.DefaultLabel = defaultActiveLabel
	}
	if c.Capture.MinFreeMiB < 0 {
		c.Capture.MinFreeMiB = 0
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	var err error
	if c.Storage.LocalDir, err = expandPath(strings.TrimSpace(c.Storage.LocalDir)); err != nil {
		return fmt.Errorf("storage.local_dir: %w", err)
	}
	c.Storage.AccountURL = strings.TrimRight(strings.TrimSpace(c.Storage.AccountURL), "/")
	c.Storage.Container = strings.TrimSpace(c.Storage.Container)
	if c.Storage.Container == "" {
		c.Storage.Container = defaultStorageContainer
	}
	if value, ok := os.LookupEnv("AZURE_STORAGE_CONNECTION_STRING"); ok && strings.TrimSpace(value) != "" {
		c.Storage.ConnectionString = strings.TrimSpace(value)
	}
	c.Storage.ConnectionString = strings.TrimSpace(c.Storage.ConnectionString)
	return nil
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("ONIONBOT_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
