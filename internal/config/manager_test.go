package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseStrictJSON(t *testing.T) {
	path := writeConfig(t, "greetd.json", `{
		"greeting": {"name": "Ada", "schedule": "10s"},
		"outputs": {"console": true},
		"logging": {"level": "DEBUG", "console": true, "file": {"enabled": false, "path": ""}},
		"lifecycle": {"grace_period": "2s"}
	}`)

	cfg, err := NewManager(path).Parse()
	require.NoError(t, err)
	assert.Equal(t, "Ada", cfg.Greeting.Name)
	assert.Equal(t, "10s", cfg.Greeting.Schedule)
	assert.True(t, cfg.Outputs.Console)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "2s", cfg.Lifecycle.GracePeriod)
	assert.Nil(t, cfg.Storage)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "greetd.json", `{"greeting": {"naem": "typo"}}`)

	_, err := NewManager(path).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestParseRejectsTrailingData(t *testing.T) {
	path := writeConfig(t, "greetd.json", `{"greeting": {"name": "Ada"}} {"extra": true}`)

	_, err := NewManager(path).Parse()
	require.Error(t, err)
}

func TestParseYAMLMatchesJSON(t *testing.T) {
	jsonPath := writeConfig(t, "greetd.json", `{
		"greeting": {"name": "Ada", "count": 3},
		"outputs": {"console": true, "file": {"path": "./out.log", "profile": "low_latency"}},
		"storage": {"driver": "file", "path": "./store"}
	}`)
	yamlPath := writeConfig(t, "greetd.yaml", `
greeting:
  name: Ada
  count: 3
outputs:
  console: true
  file:
    path: ./out.log
    profile: low_latency
storage:
  driver: file
  path: ./store
`)

	fromJSON, err := NewManager(jsonPath).Parse()
	require.NoError(t, err)
	fromYAML, err := NewManager(yamlPath).Parse()
	require.NoError(t, err)
	assert.Equal(t, fromJSON, fromYAML)
}

func TestLoadCommitsAndGetReturnsSnapshot(t *testing.T) {
	path := writeConfig(t, "greetd.json", `{"greeting": {"name": "Ada"}}`)

	m := NewManager(path)
	assert.Nil(t, m.Get())

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Same(t, cfg, m.Get())
}

func TestHashConfigStableAndContentSensitive(t *testing.T) {
	a := &Config{Greeting: GreetingConfig{Name: "Ada"}}
	b := &Config{Greeting: GreetingConfig{Name: "Ada"}}
	c := &Config{Greeting: GreetingConfig{Name: "Bob"}}

	assert.Equal(t, hashConfig(a), hashConfig(b))
	assert.NotEqual(t, hashConfig(a), hashConfig(c))
	assert.Zero(t, hashConfig(nil))
}

func TestPublishDropsOldestForSlowSubscriber(t *testing.T) {
	m := NewManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	first := &Config{Greeting: GreetingConfig{Name: "first"}}
	second := &Config{Greeting: GreetingConfig{Name: "second"}}
	third := &Config{Greeting: GreetingConfig{Name: "third"}}
	m.publish(first)
	m.publish(second)
	m.publish(third)

	select {
	case got := <-ch:
		assert.Equal(t, "third", got.Greeting.Name)
	default:
		t.Fatal("expected a pending config update")
	}
	select {
	case got := <-ch:
		t.Fatalf("unexpected second update: %+v", got)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	m := NewManager("unused")
	ch := m.Subscribe(1)

	m.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)

	// repeated and nil unsubscribes are no-ops
	m.Unsubscribe(ch)
	m.Unsubscribe(nil)

	// publishing after unsubscribe must not panic
	m.publish(&Config{})
}

func TestParseDurationField(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty means unset", raw: "", want: 0},
		{name: "spaces only", raw: "   ", want: 0},
		{name: "valid", raw: "1500ms", want: 1500 * time.Millisecond},
		{name: "valid with spaces", raw: " 2s ", want: 2 * time.Second},
		{name: "negative", raw: "-1s", wantErr: true},
		{name: "garbage", raw: "soon", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDurationField("lifecycle.grace_period", tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "lifecycle.grace_period")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	got, err := ParseDurationOrDefault("x", "", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, got)

	got, err = ParseDurationOrDefault("x", "250ms", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, got)

	_, err = ParseDurationOrDefault("x", "nope", 5*time.Second)
	require.Error(t, err)
}

func TestSummarizeConfigChange(t *testing.T) {
	oldCfg := Default()
	newCfg := Default()
	newCfg.Greeting.Schedule = "1m"
	newCfg.Outputs.File = &FileOutputConfig{Path: "./out.log"}
	newCfg.Outputs.Telegram = &TelegramOutputConfig{Token: "secret-token", ChatID: 42}
	newCfg.Logging.Level = "DEBUG"
	newCfg.Storage = &StorageConfig{Driver: "file", Path: "./store"}

	changed, attrs, restart := SummarizeConfigChange(oldCfg, newCfg)
	assert.Equal(t, []string{"greeting", "logging", "outputs", "storage"}, changed)
	assert.Equal(t, []string{"outputs", "storage"}, restart)
	assert.NotEmpty(t, attrs)
}

func TestSummarizeConfigChangeNoChanges(t *testing.T) {
	changed, attrs, restart := SummarizeConfigChange(Default(), Default())
	assert.Empty(t, changed)
	assert.Empty(t, attrs)
	assert.Empty(t, restart)
}

func TestSummarizeConfigChangeNilSafe(t *testing.T) {
	changed, _, _ := SummarizeConfigChange(nil, Default())
	assert.Contains(t, changed, "outputs")
	assert.Contains(t, changed, "logging")
}

func TestDefaultIsOneShotConsole(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Greeting.Schedule)
	assert.True(t, cfg.Outputs.Console)
	assert.Equal(t, "5s", cfg.Lifecycle.GracePeriod)
	assert.Equal(t, "2s", cfg.Lifecycle.CleanupTimeout)
}
