package config

import (
	"reflect"
	"sort"
	"strings"

	logx "greetd/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections,
// (2) safe structured attrs for logging (never includes the telegram
// token), and (3) the subset of changed sections that only take effect
// after a restart.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 16)
	restart := make([]string, 0, 2)

	// Greeting (applies live; the emitter re-reads pacing)
	if !reflect.DeepEqual(oldCfg.Greeting, newCfg.Greeting) {
		changed = append(changed, "greeting")
		attrs = append(attrs,
			logx.String("greeting.name", strings.TrimSpace(newCfg.Greeting.Name)),
			logx.String("greeting.schedule", strings.TrimSpace(newCfg.Greeting.Schedule)),
			logx.Int("greeting.count", newCfg.Greeting.Count),
			logx.Int("greeting.rate_per_sec", newCfg.Greeting.RatePerSec),
			logx.Bool("greeting.template_set", strings.TrimSpace(newCfg.Greeting.Template) != ""),
		)
	}

	// Outputs (sink set is built at startup; never log token)
	if outputsChanged(oldCfg.Outputs, newCfg.Outputs) {
		changed = append(changed, "outputs")
		restart = append(restart, "outputs")
		attrs = append(attrs,
			logx.Bool("outputs.console", newCfg.Outputs.Console),
			logx.Bool("outputs.file", newCfg.Outputs.File != nil),
			logx.Bool("outputs.telegram", newCfg.Outputs.Telegram != nil),
		)
		if f := newCfg.Outputs.File; f != nil {
			attrs = append(attrs,
				logx.String("outputs.file_profile", strings.TrimSpace(f.Profile)),
				logx.Bool("outputs.file_path_set", strings.TrimSpace(f.Path) != ""),
			)
		}
		if t := newCfg.Outputs.Telegram; t != nil {
			attrs = append(attrs,
				logx.Bool("outputs.telegram_token_set", strings.TrimSpace(t.Token) != ""),
			)
		}
	}

	// Logging (applies live)
	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Lifecycle (the coordinator takes its options at startup)
	if oldCfg.Lifecycle != newCfg.Lifecycle {
		changed = append(changed, "lifecycle")
		restart = append(restart, "lifecycle")
		attrs = append(attrs,
			logx.String("lifecycle.grace_period", strings.TrimSpace(newCfg.Lifecycle.GracePeriod)),
			logx.String("lifecycle.cleanup_timeout", strings.TrimSpace(newCfg.Lifecycle.CleanupTimeout)),
			logx.Int("lifecycle.max_signals", newCfg.Lifecycle.MaxSignals),
			logx.Bool("lifecycle.systemd_notify", newCfg.Lifecycle.SystemdNotify),
		)
	}

	// Storage (journal is opened at startup; nil means disabled)
	oldS, newS := oldCfg.Storage, newCfg.Storage
	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	if oldS != nil {
		oDriver = strings.TrimSpace(oldS.Driver)
		oBusy = strings.TrimSpace(oldS.BusyTimeout)
		oPathSet = strings.TrimSpace(oldS.Path) != ""
	}
	if newS != nil {
		nDriver = strings.TrimSpace(newS.Driver)
		nBusy = strings.TrimSpace(newS.BusyTimeout)
		nPathSet = strings.TrimSpace(newS.Path) != ""
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet {
		changed = append(changed, "storage")
		restart = append(restart, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPathSet),
			logx.String("storage.busy_timeout", nBusy),
		)
	}

	sort.Strings(changed)
	sort.Strings(restart)
	return changed, attrs, restart
}

func outputsChanged(o, n OutputsConfig) bool {
	if o.Console != n.Console {
		return true
	}
	if (o.File == nil) != (n.File == nil) {
		return true
	}
	if o.File != nil && *o.File != *n.File {
		return true
	}
	if (o.Telegram == nil) != (n.Telegram == nil) {
		return true
	}
	if o.Telegram != nil && *o.Telegram != *n.Telegram {
		return true
	}
	return false
}
