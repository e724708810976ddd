package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"onionbot/internal/services"
)

// Validate ensures the configuration is usable. Every returned error is
// tagged with services.ErrConfiguration.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateModels,
		c.validateTelemetry,
		c.validateCapture,
		c.validateStorage,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", services.ErrConfiguration, err)
		}
	}
	return nil
}

func (c *Config) validateModels() error {
	if len(c.Models.Enabled) == 0 {
		return errors.New("models.enabled must list at least one model")
	}
	switch c.Models.Backend {
	case "colorprofile":
	default:
		return fmt.Errorf("models.backend %q is not supported", c.Models.Backend)
	}
	return nil
}

func (c *Config) validateTelemetry() error {
	parsed, err := url.Parse(c.Telemetry.PublicBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("telemetry.public_base_url %q must be an absolute URL", c.Telemetry.PublicBaseURL)
	}
	return nil
}

func (c *Config) validateCapture() error {
	if strings.ContainsAny(c.Capture.DefaultLabel, `/\`) {
		return errors.New("capture.default_label must not contain path separators")
	}
	if c.Capture.WatchSpool && c.Capture.SpoolDir == "" {
		return errors.New("capture.spool_dir is required when capture.watch_spool is enabled")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "none":
		return nil
	case "local":
		if c.Storage.LocalDir == "" {
			return errors.New("storage.local_dir is required for the local backend")
		}
		return nil
	case "azblob":
		if c.Storage.ConnectionString == "" && c.Storage.AccountURL == "" {
			return errors.New("storage.account_url or AZURE_STORAGE_CONNECTION_STRING is required for the azblob backend")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
}
