package config

const (
	defaultDataDir              = "~/.local/share/onionbot"
	defaultModelsDir            = "~/.local/share/onionbot/models"
	defaultLogDir               = "~/.local/share/onionbot/logs"
	defaultAPIBind              = "0.0.0.0:5000"
	defaultModelBackend         = "colorprofile"
	defaultPollIntervalMS       = 100
	defaultPublicBaseURL        = "https://storage.googleapis.com/onionbucket"
	defaultFrameIntervalSeconds = 1.0
	defaultActiveLabel          = "Discard"
	defaultMinFreeMiB           = 256
	defaultStorageBackend       = "none"
	defaultStorageContainer     = "onionbucket"
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

var defaultModels = []string{"pasta", "sauce", "pan_on_off"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			ModelsDir: defaultModelsDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Models: Models{
			Enabled: append([]string(nil), defaultModels...),
			Backend: defaultModelBackend,
		},
		Classifier: Classifier{
			PollIntervalMS: defaultPollIntervalMS,
		},
		Telemetry: Telemetry{
			PublicBaseURL: defaultPublicBaseURL,
		},
		Capture: Capture{
			FrameIntervalSeconds: defaultFrameIntervalSeconds,
			DefaultLabel:         defaultActiveLabel,
			MinFreeMiB:           defaultMinFreeMiB,
		},
		Storage: Storage{
			Backend:   defaultStorageBackend,
			Container: defaultStorageContainer,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Metrics: Metrics{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
