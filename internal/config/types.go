package config

// Config is the full greetd configuration.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// Unknown keys are rejected at load time so typos surface immediately
// instead of silently falling back to defaults.
type Config struct {
	Greeting  GreetingConfig  `json:"greeting"`
	Outputs   OutputsConfig   `json:"outputs"`
	Logging   LoggingConfig   `json:"logging"`
	Lifecycle LifecycleConfig `json:"lifecycle"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
}

// GreetingConfig controls what is sent and how often.
type GreetingConfig struct {
	// Template renders the greeting; "{name}" is replaced with the
	// greeted name. Empty means the built-in "Hello, {name}!".
	Template string `json:"template,omitempty"`

	// Name is the default greeting target when the command line does
	// not provide one.
	Name string `json:"name,omitempty"`

	// Schedule switches to repeat mode: a cron expression
	// ("*/5 * * * *", "@hourly", "cron:0 9 * * *") or an interval
	// ("10s", "interval:2h30m", "every:1m"). Empty means greet once
	// and exit.
	Schedule string `json:"schedule,omitempty"`

	// Count stops repeat mode after that many deliveries. 0 means
	// until shutdown.
	Count int `json:"count,omitempty"`

	// RatePerSec caps delivery rate in repeat mode. 0 keeps the
	// default of 1/s.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// OutputsConfig selects the delivery sinks. With nothing configured,
// delivery falls back to console so a greeting always has somewhere
// to go.
type OutputsConfig struct {
	Console  bool                  `json:"console"`
	File     *FileOutputConfig     `json:"file,omitempty"`
	Telegram *TelegramOutputConfig `json:"telegram,omitempty"`
}

// FileOutputConfig tunes the buffered file sink. Profile picks a
// preset ("high_throughput", "low_latency"); the explicit fields
// override whatever the preset chose.
type FileOutputConfig struct {
	Path           string `json:"path"`
	Profile        string `json:"profile,omitempty"`
	QueueSize      int    `json:"queue_size,omitempty"`
	FlushInterval  string `json:"flush_interval,omitempty"`
	FlushThreshold int    `json:"flush_threshold,omitempty"`
	BufferSize     int    `json:"buffer_size,omitempty"`
	CloseTimeout   string `json:"close_timeout,omitempty"`
}

// TelegramOutputConfig configures the optional chat sink (send-only).
type TelegramOutputConfig struct {
	Token   string `json:"token"` // do not log
	ChatID  int64  `json:"chat_id"`
	Timeout string `json:"timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LifecycleConfig tunes shutdown behavior.
type LifecycleConfig struct {
	// GracePeriod is how long a signalled shutdown waits for the
	// workload before forcing termination. Default "5s".
	GracePeriod string `json:"grace_period,omitempty"`

	// CleanupTimeout bounds the post-workload cleanup. Default "2s".
	CleanupTimeout string `json:"cleanup_timeout,omitempty"`

	// MaxSignals is how many termination signals are tolerated before
	// the process exits immediately. Default 3.
	MaxSignals int `json:"max_signals,omitempty"`

	// SystemdNotify enables sd_notify READY/STOPPING messages. Safe to
	// leave on outside systemd units; without NOTIFY_SOCKET it is a
	// no-op.
	SystemdNotify bool `json:"systemd_notify,omitempty"`
}

// StorageConfig controls the optional delivery journal.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./greetd_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// Default returns the configuration used when no config file is given:
// greet once, console only, info logging.
func Default() *Config {
	return &Config{
		Greeting: GreetingConfig{Template: "Hello, {name}!", Name: "World"},
		Outputs:  OutputsConfig{Console: true},
		Logging:  LoggingConfig{Level: "INFO", Console: true},
		Lifecycle: LifecycleConfig{
			GracePeriod:    "5s",
			CleanupTimeout: "2s",
		},
	}
}
