package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greetd/internal/config"
	"greetd/internal/exitcode"
	logx "greetd/pkg/logx"
)

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()

	t.Run("absent section disables", func(t *testing.T) {
		t.Parallel()
		_, enabled, err := mapStorageConfig(config.Default())
		require.NoError(t, err)
		assert.False(t, enabled)
	})

	t.Run("driver none disables", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Storage = &config.StorageConfig{Driver: "none"}
		_, enabled, err := mapStorageConfig(cfg)
		require.NoError(t, err)
		assert.False(t, enabled)
	})

	t.Run("file driver", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Storage = &config.StorageConfig{Driver: "file", Path: "journal.jsonl"}
		sc, enabled, err := mapStorageConfig(cfg)
		require.NoError(t, err)
		assert.True(t, enabled)
		assert.Equal(t, "file", sc.Driver)
		assert.Equal(t, "journal.jsonl", sc.Path)
	})

	t.Run("file driver requires path", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Storage = &config.StorageConfig{Driver: "file"}
		_, _, err := mapStorageConfig(cfg)
		require.Error(t, err)
	})

	t.Run("sqlite busy timeout default", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Storage = &config.StorageConfig{Driver: "sqlite", Path: "journal.db"}
		sc, enabled, err := mapStorageConfig(cfg)
		require.NoError(t, err)
		assert.True(t, enabled)
		assert.Equal(t, time.Second, sc.BusyTimeout)
	})

	t.Run("sqlite busy timeout explicit", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Storage = &config.StorageConfig{Driver: "sqlite", Path: "journal.db", BusyTimeout: "250ms"}
		sc, _, err := mapStorageConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, 250*time.Millisecond, sc.BusyTimeout)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Storage = &config.StorageConfig{Driver: "redis", Path: "x"}
		_, _, err := mapStorageConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.driver")
	})
}

func TestApplyInvocation(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Greeting.Name = "ConfigName"
	cfg.Greeting.Count = 7

	applyInvocation(cfg, Invocation{Name: "  CLIName ", Schedule: "every:5s", Count: 2})
	assert.Equal(t, "CLIName", cfg.Greeting.Name)
	assert.Equal(t, "every:5s", cfg.Greeting.Schedule)
	assert.Equal(t, 2, cfg.Greeting.Count)

	// Empty overrides leave the config untouched.
	applyInvocation(cfg, Invocation{})
	assert.Equal(t, "CLIName", cfg.Greeting.Name)
	assert.Equal(t, "every:5s", cfg.Greeting.Schedule)
	assert.Equal(t, 2, cfg.Greeting.Count)
}

func TestEmitterOptionsMapping(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Greeting.Template = "Hi, {name}."
	cfg.Greeting.Name = "Ada"
	cfg.Greeting.Schedule = "every:1m"
	cfg.Greeting.Count = 4
	cfg.Greeting.RatePerSec = 2.5

	opts := emitterOptions(cfg)
	assert.Equal(t, "Hi, {name}.", opts.Template)
	assert.Equal(t, "Ada", opts.Name)
	assert.Equal(t, "every:1m", opts.Schedule)
	assert.Equal(t, 4, opts.Count)
	assert.Equal(t, 2.5, opts.RatePerSec)
}

func TestFileOptionsMapping(t *testing.T) {
	t.Parallel()

	t.Run("close drain defaults to cleanup budget", func(t *testing.T) {
		t.Parallel()
		opts, err := fileOptions(&config.FileOutputConfig{Path: "out.txt"}, 2*time.Second, logx.Nop())
		require.NoError(t, err)
		assert.Equal(t, "out.txt", opts.Path)
		assert.Equal(t, 2*time.Second, opts.CloseTimeout)
		// Everything else stays zero so the sink picks its own defaults.
		assert.Zero(t, opts.QueueSize)
		assert.Zero(t, opts.FlushInterval)
	})

	t.Run("explicit fields win", func(t *testing.T) {
		t.Parallel()
		opts, err := fileOptions(&config.FileOutputConfig{
			Path:           "out.txt",
			QueueSize:      9,
			FlushInterval:  "1s",
			FlushThreshold: 3,
			BufferSize:     512,
			CloseTimeout:   "7s",
		}, 2*time.Second, logx.Nop())
		require.NoError(t, err)
		assert.Equal(t, 9, opts.QueueSize)
		assert.Equal(t, time.Second, opts.FlushInterval)
		assert.Equal(t, 3, opts.FlushThreshold)
		assert.Equal(t, 512, opts.BufferSize)
		assert.Equal(t, 7*time.Second, opts.CloseTimeout)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Parallel()
		_, err := fileOptions(&config.FileOutputConfig{Path: "out.txt", FlushInterval: "fast"}, 0, logx.Nop())
		require.Error(t, err)
		assert.Equal(t, exitcode.Config, exitcode.FromError(err))
	})

	t.Run("unknown profile", func(t *testing.T) {
		t.Parallel()
		_, err := fileOptions(&config.FileOutputConfig{Path: "out.txt", Profile: "warp"}, 0, logx.Nop())
		require.Error(t, err)
		assert.Equal(t, exitcode.Config, exitcode.FromError(err))
	})
}

func TestNewAppMissingConfigFile(t *testing.T) {
	t.Parallel()

	_, err := NewApp(Invocation{ConfigPath: filepath.Join(t.TempDir(), "absent.json")}, logx.Nop())
	require.Error(t, err)
	assert.Equal(t, exitcode.Config, exitcode.FromError(err))
}

func TestNewAppFallsBackToConsole(t *testing.T) {
	t.Parallel()

	path := writeAppConfig(t, `{"outputs": {"console": false}}`)
	a, err := NewApp(Invocation{ConfigPath: path}, logx.Nop())
	require.NoError(t, err)
	defer a.closePartial()

	assert.Equal(t, 1, a.sinks.SinkCount())
}
