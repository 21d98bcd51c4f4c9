package app

import (
	"context"
	"os"
	"strings"
	"time"

	"greetd/internal/config"
	"greetd/internal/exitcode"
	"greetd/internal/greet"
	"greetd/internal/runtime/lifecycle"
	"greetd/internal/runtime/signals"
	"greetd/internal/runtime/supervisor"
	logx "greetd/pkg/logx"
)

// Run executes the workload under the lifecycle coordinator and
// returns the process exit code. It blocks until the process is fully
// unwound: workload settled, cleanup done, logs flushed.
func (a *App) Run(ctx context.Context, src signals.Source) exitcode.Code {
	if src == nil {
		src = signals.Nop()
	}

	a.sup = supervisor.NewSupervisor(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	a.coord = lifecycle.New(lifecycle.Options{
		GracePeriod:    a.gracePeriod,
		CleanupTimeout: a.cleanupTimeout,
		Cleanup:        a.cleanupSteps(),
		OnShutdown:     func(lifecycle.StopReason) { a.notifyStopping() },
		RunningNames:   a.sup.Running,
		Log:            a.log.With(logx.String("comp", "lifecycle")),
	})

	if mc, ok := src.(interface{ SetMaxCount(int) }); ok {
		mc.SetMaxCount(a.cfg.Lifecycle.MaxSignals)
	}
	src.Install(func(sig os.Signal) {
		a.coord.Interrupt(sig)
	})
	defer src.Close()

	if a.repeatMode() {
		a.startWatchers()
	}

	// A fatal supervisor error (watcher panic etc.) becomes a shutdown
	// trigger. On a normal stop the supervisor context ends with no
	// error and this is a no-op.
	supCtx := a.sup.Context()
	supWatch := make(chan struct{})
	go func() {
		defer close(supWatch)
		<-supCtx.Done()
		if err := a.sup.Err(); err != nil {
			a.coord.Shutdown(lifecycle.StopFatalError, exitcode.FromError(err))
		}
	}()

	a.notifyReady()
	a.log.Info("greetd started",
		logx.Bool("repeat", a.repeatMode()),
		logx.Int("outputs", a.sinks.SinkCount()),
		logx.String("version", Version),
	)

	code := a.coord.Run(ctx, a.workload)
	<-supWatch
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return code
}

func (a *App) repeatMode() bool {
	return strings.TrimSpace(a.cfg.Greeting.Schedule) != ""
}

func (a *App) workload(ctx context.Context) error {
	if a.repeatMode() {
		return a.emitter.Run(ctx)
	}
	return a.emitter.RunOnce(ctx)
}

// cleanupSteps is the bounded shutdown sequence: stop the watchers,
// drain the outputs, close the journal. Order matters: nothing may
// touch the emitter or sinks once outputs start draining.
func (a *App) cleanupSteps() []lifecycle.CleanupStep {
	return []lifecycle.CleanupStep{
		{Name: "watchers", Max: 500 * time.Millisecond, Fn: func(c context.Context) error {
			a.sup.Cancel()
			return a.sup.Wait(c)
		}},
		{Name: "outputs", Fn: func(c context.Context) error {
			return a.sinks.Close()
		}},
		{Name: "journal", Max: 300 * time.Millisecond, Fn: func(c context.Context) error {
			if a.store != nil {
				return a.store.Close()
			}
			return nil
		}},
	}
}

// startWatchers runs the repeat-mode support loops under the
// supervisor: event visibility, config watch, and hot reload.
func (a *App) startWatchers() {
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	if a.cfgm == nil {
		return
	}
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		return validateConfig(cfg)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})
}

// applyConfig applies a validated config change. Logging and greeting
// settings take effect live; sink topology, storage and lifecycle
// tuning only apply on restart.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs, restart := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)

	for _, s := range sections {
		switch s {
		case "logging":
			if a.logs != nil {
				a.logs.Apply(logx.Config{
					Level:   newCfg.Logging.Level,
					Console: newCfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: newCfg.Logging.File.Enabled,
						Path:    newCfg.Logging.File.Path,
					},
				})
			}
		case "greeting":
			if err := a.emitter.Retune(emitterOptions(newCfg)); err != nil {
				a.log.Warn("greeting retune rejected; keeping previous settings", logx.Err(err))
			}
		}
	}
	if len(restart) > 0 {
		a.log.Warn("config changes need a restart to apply",
			logx.String("sections", strings.Join(restart, ",")))
	}
}

// Emitter exposes the greeter for operational queries.
func (a *App) Emitter() *greet.Emitter { return a.emitter }
