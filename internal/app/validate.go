package app

import (
	"fmt"
	"strings"

	"greetd/internal/config"
	"greetd/internal/exitcode"
	"greetd/internal/greet"
	"greetd/internal/output"
)

// validateConfig checks a config snapshot before it is committed or
// applied. Everything it rejects is a usage problem, so errors carry
// the configuration exit class.
func validateConfig(cfg *config.Config) error {
	bad := func(format string, args ...any) error {
		return exitcode.Wrap(exitcode.Config, fmt.Errorf(format, args...))
	}

	if cfg == nil {
		return bad("config is empty")
	}

	if cfg.Greeting.Count < 0 {
		return bad("greeting.count must not be negative, got %d", cfg.Greeting.Count)
	}
	if cfg.Greeting.RatePerSec < 0 {
		return bad("greeting.rate_per_sec must not be negative, got %v", cfg.Greeting.RatePerSec)
	}
	if s := strings.TrimSpace(cfg.Greeting.Schedule); s != "" {
		if _, err := greet.ParseSchedule(s); err != nil {
			return bad("greeting.schedule: %v", err)
		}
	}

	if fc := cfg.Outputs.File; fc != nil {
		if strings.TrimSpace(fc.Path) == "" {
			return bad("outputs.file.path is required when the file output is configured")
		}
		if _, err := output.Preset(fc.Profile, fc.Path); err != nil {
			return bad("outputs.file.profile: %v", err)
		}
		if fc.QueueSize < 0 {
			return bad("outputs.file.queue_size must not be negative, got %d", fc.QueueSize)
		}
		if fc.FlushThreshold < 0 {
			return bad("outputs.file.flush_threshold must not be negative, got %d", fc.FlushThreshold)
		}
		if fc.BufferSize < 0 {
			return bad("outputs.file.buffer_size must not be negative, got %d", fc.BufferSize)
		}
		if _, err := config.ParseDurationField("outputs.file.flush_interval", fc.FlushInterval); err != nil {
			return bad("%v", err)
		}
		if _, err := config.ParseDurationField("outputs.file.close_timeout", fc.CloseTimeout); err != nil {
			return bad("%v", err)
		}
	}

	if tc := cfg.Outputs.Telegram; tc != nil {
		if strings.TrimSpace(tc.Token) == "" {
			return bad("outputs.telegram.token is required when the telegram output is configured")
		}
		if tc.ChatID == 0 {
			return bad("outputs.telegram.chat_id is required when the telegram output is configured")
		}
		if _, err := config.ParseDurationField("outputs.telegram.timeout", tc.Timeout); err != nil {
			return bad("%v", err)
		}
	}

	if _, err := config.ParseDurationField("lifecycle.grace_period", cfg.Lifecycle.GracePeriod); err != nil {
		return bad("%v", err)
	}
	if _, err := config.ParseDurationField("lifecycle.cleanup_timeout", cfg.Lifecycle.CleanupTimeout); err != nil {
		return bad("%v", err)
	}
	if cfg.Lifecycle.MaxSignals < 0 {
		return bad("lifecycle.max_signals must not be negative, got %d", cfg.Lifecycle.MaxSignals)
	}

	if _, _, err := mapStorageConfig(cfg); err != nil {
		return bad("%v", err)
	}
	return nil
}
