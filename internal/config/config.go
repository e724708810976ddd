package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	ModelsDir string `toml:"models_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
	// APIToken, when set, is required as a bearer token on API requests.
	APIToken string `toml:"api_token"`
}

// Models selects which catalog models are loaded at startup and the runtime
// that executes them.
type Models struct {
	Enabled []string `toml:"enabled"`
	Backend string   `toml:"backend"`
}

// Classifier tunes the background classification worker.
type Classifier struct {
	PollIntervalMS int `toml:"poll_interval_ms"`
}

// Telemetry controls how local artifact paths map to public URLs.
type Telemetry struct {
	PublicBaseURL string `toml:"public_base_url"`
	// LocalRoot is stripped from artifact paths before the public base URL is
	// prepended. Defaults to paths.data_dir.
	LocalRoot string `toml:"local_root"`
}

// Capture configures the capture loop and the spool-backed camera.
type Capture struct {
	FrameIntervalSeconds float64 `toml:"frame_interval_seconds"`
	SpoolDir             string  `toml:"spool_dir"`
	CameraSource         string  `toml:"camera_source"`
	WatchSpool           bool    `toml:"watch_spool"`
	MonitorCamera        bool    `toml:"monitor_camera"`
	DefaultLabel         string  `toml:"default_label"`
	MinFreeMiB           int     `toml:"min_free_mib"`
}

// Storage selects the object store artifacts are uploaded to.
type Storage struct {
	Backend          string `toml:"backend"`
	LocalDir         string `toml:"local_dir"`
	AccountURL       string `toml:"account_url"`
	Container        string `toml:"container"`
	ConnectionString string `toml:"connection_string"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Metrics toggles the prometheus endpoint on the API server.
type Metrics struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the controller.
//
// Configuration sections by subsystem:
//   - Paths: data, model and log directories plus the API bind address
//   - Models: enabled catalog models and the inference backend
//   - Classifier: worker poll interval
//   - Telemetry: public URL mapping for meta records
//   - Capture: frame interval, spool camera, hotplug monitoring
//   - Storage: object store backend for artifact uploads
//   - Notifications: ntfy push notification settings
//   - Metrics: prometheus endpoint
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Models        Models        `toml:"models"`
	Classifier    Classifier    `toml:"classifier"`
	Telemetry     Telemetry     `toml:"telemetry"`
	Capture       Capture       `toml:"capture"`
	Storage       Storage       `toml:"storage"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/onionbot/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv imports variables from a .env file without overriding values
// already present in the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("onionbot.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if strings.TrimSpace(c.Capture.SpoolDir) != "" {
		dirs = append(dirs, c.Capture.SpoolDir)
	}
	if c.Storage.Backend == "local" {
		dirs = append(dirs, c.Storage.LocalDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PollInterval returns the classifier poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Classifier.PollIntervalMS) * time.Millisecond
}

// JournalPath is the SQLite journal indexing composed meta records.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.DataDir, "journal.db")
}

// LockPath is the single-instance lock held by the daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "onionbot.lock")
}

// FrameInterval returns the capture loop period as a duration.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Capture.FrameIntervalSeconds * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
