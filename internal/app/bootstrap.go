package app

import (
	"fmt"
	"strings"
	"time"

	"greetd/internal/config"
	"greetd/internal/eventbus"
	"greetd/internal/exitcode"
	"greetd/internal/greet"
	"greetd/internal/output"
	"greetd/internal/runtime/lifecycle"
	"greetd/internal/runtime/supervisor"
	"greetd/internal/storage"
	logx "greetd/pkg/logx"
)

// App owns the wired components for one process run.
type App struct {
	inv Invocation

	cfgm *config.Manager // nil without a config file
	cfg  *config.Config  // startup snapshot; not mutated after Run starts

	log  logx.Logger
	logs *logx.Service // nil when the logger was injected

	bus     eventbus.Bus
	store   storage.Store
	sinks   *output.FanOut
	emitter *greet.Emitter

	sup   *supervisor.Supervisor
	coord *lifecycle.Coordinator

	gracePeriod     time.Duration
	cleanupTimeout  time.Duration
	sdNotifyEnabled bool
}

// NewApp loads config, applies CLI overrides, and wires every
// component. Construction is fail-loud: anything broken aborts startup
// with a classified error instead of limping along.
func NewApp(inv Invocation, logger logx.Logger) (*App, error) {
	a := &App{inv: inv}

	if strings.TrimSpace(inv.ConfigPath) != "" {
		a.cfgm = config.NewManager(inv.ConfigPath)
		cfg, err := a.cfgm.Load()
		if err != nil {
			return nil, exitcode.Wrap(exitcode.Config, fmt.Errorf("load config %s: %w", inv.ConfigPath, err))
		}
		a.cfg = cfg
	} else {
		a.cfg = config.Default()
	}
	applyInvocation(a.cfg, inv)

	if err := validateConfig(a.cfg); err != nil {
		return nil, err
	}

	// Logging: build the service from config unless a logger was
	// injected (tests, embedding).
	if logger.IsZero() {
		logSvc, log := logx.New(logx.Config{
			Level:   a.cfg.Logging.Level,
			Console: a.cfg.Logging.Console,
			File: logx.FileConfig{
				Enabled: a.cfg.Logging.File.Enabled,
				Path:    a.cfg.Logging.File.Path,
			},
		})
		a.logs = logSvc
		a.log = log.With(logx.String("comp", "app"))
	} else {
		a.log = logger.With(logx.String("comp", "app"))
	}

	// validated above; defaults cover unset fields
	a.gracePeriod, _ = config.ParseDurationOrDefault("lifecycle.grace_period", a.cfg.Lifecycle.GracePeriod, lifecycle.DefaultGracePeriod)
	a.cleanupTimeout, _ = config.ParseDurationOrDefault("lifecycle.cleanup_timeout", a.cfg.Lifecycle.CleanupTimeout, lifecycle.DefaultCleanupTimeout)
	a.sdNotifyEnabled = a.cfg.Lifecycle.SystemdNotify

	a.bus = eventbus.New()

	if sc, enabled, err := mapStorageConfig(a.cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, a.log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		a.store = st
		a.log.Info("delivery journal enabled", logx.String("driver", sc.Driver))
	}

	sinks, err := a.buildSinks()
	if err != nil {
		a.closePartial()
		return nil, err
	}
	fan, err := output.NewFanOut(a.log.With(logx.String("comp", "output")), sinks...)
	if err != nil {
		for _, s := range sinks {
			_ = s.Close()
		}
		a.closePartial()
		return nil, err
	}
	a.sinks = fan

	em, err := greet.NewEmitter(fan, emitterOptions(a.cfg), a.log.With(logx.String("comp", "greeter")))
	if err != nil {
		a.closePartial()
		return nil, err
	}
	em.SetBus(a.bus)
	em.SetJournal(a.store)
	a.emitter = em

	return a, nil
}

// closePartial releases what bootstrap already opened when a later
// step fails.
func (a *App) closePartial() {
	if a.sinks != nil {
		_ = a.sinks.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// buildSinks maps the outputs config to sink instances. With no
// outputs configured at all, console is used so a greeting always has
// somewhere to go.
func (a *App) buildSinks() ([]output.Sink, error) {
	cfg := a.cfg.Outputs
	log := a.log.With(logx.String("comp", "output"))

	var sinks []output.Sink
	fail := func(err error) ([]output.Sink, error) {
		for _, s := range sinks {
			_ = s.Close()
		}
		return nil, err
	}

	if cfg.Console {
		sinks = append(sinks, output.NewConsole(nil))
	}
	if cfg.File != nil {
		opts, err := fileOptions(cfg.File, a.cleanupTimeout, log)
		if err != nil {
			return fail(err)
		}
		f, err := output.NewBufferedFile(opts)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, f)
	}
	if cfg.Telegram != nil {
		timeout, err := config.ParseDurationOrDefault("outputs.telegram.timeout", cfg.Telegram.Timeout, 10*time.Second)
		if err != nil {
			return fail(exitcode.Wrap(exitcode.Config, err))
		}
		tg, err := output.NewTelegram(output.TelegramOptions{
			Token:   cfg.Telegram.Token,
			ChatID:  cfg.Telegram.ChatID,
			Timeout: timeout,
		})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, tg)
	}

	if len(sinks) == 0 {
		log.Warn("no outputs configured; falling back to console")
		sinks = append(sinks, output.NewConsole(nil))
	}
	return sinks, nil
}

// fileOptions maps the file output section onto a preset, with the
// explicit fields overriding whatever the preset chose. The close
// drain defaults to the cleanup budget so shutdown stays bounded.
func fileOptions(fc *config.FileOutputConfig, closeBudget time.Duration, log logx.Logger) (output.FileOptions, error) {
	opts, err := output.Preset(fc.Profile, fc.Path)
	if err != nil {
		return output.FileOptions{}, err
	}
	if fc.QueueSize > 0 {
		opts.QueueSize = fc.QueueSize
	}
	if fc.FlushThreshold > 0 {
		opts.FlushThreshold = fc.FlushThreshold
	}
	if fc.BufferSize > 0 {
		opts.BufferSize = fc.BufferSize
	}
	d, err := config.ParseDurationField("outputs.file.flush_interval", fc.FlushInterval)
	if err != nil {
		return output.FileOptions{}, exitcode.Wrap(exitcode.Config, err)
	}
	if d > 0 {
		opts.FlushInterval = d
	}
	d, err = config.ParseDurationField("outputs.file.close_timeout", fc.CloseTimeout)
	if err != nil {
		return output.FileOptions{}, exitcode.Wrap(exitcode.Config, err)
	}
	switch {
	case d > 0:
		opts.CloseTimeout = d
	case closeBudget > 0:
		opts.CloseTimeout = closeBudget
	}
	opts.Log = log
	return opts, nil
}

// applyInvocation lays CLI overrides over the config.
func applyInvocation(cfg *config.Config, inv Invocation) {
	if n := strings.TrimSpace(inv.Name); n != "" {
		cfg.Greeting.Name = n
	}
	if s := strings.TrimSpace(inv.Schedule); s != "" {
		cfg.Greeting.Schedule = s
	}
	if inv.Count != 0 {
		cfg.Greeting.Count = inv.Count
	}
}

func emitterOptions(cfg *config.Config) greet.EmitterOptions {
	return greet.EmitterOptions{
		Template:   cfg.Greeting.Template,
		Name:       cfg.Greeting.Name,
		Schedule:   cfg.Greeting.Schedule,
		Count:      cfg.Greeting.Count,
		RatePerSec: cfg.Greeting.RatePerSec,
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=file")
		}
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}
