package greet

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"greetd/internal/eventbus"
	"greetd/internal/exitcode"
	"greetd/internal/output"
	"greetd/internal/storage"
	logx "greetd/pkg/logx"
)

// Event types published by the emitter.
const (
	EventDelivered = "greet.delivered"
	EventFailed    = "greet.failed"
	EventSkipped   = "greet.skipped"
)

// defaultRatePerSec caps repeat-mode deliveries when the config does
// not set a rate.
const defaultRatePerSec = 1

// Sender delivers one rendered greeting to every configured output.
// *output.FanOut is the production implementation.
type Sender interface {
	Send(ctx context.Context, msg string) error
	SinkCount() int
}

// EmitterOptions selects what is greeted and how often.
type EmitterOptions struct {
	Template string
	Name     string

	// Schedule enables repeat mode when set; see ParseSchedule for the
	// accepted forms.
	Schedule string

	// Count stops repeat mode after that many delivery attempts.
	// 0 means until shutdown.
	Count int

	// RatePerSec caps repeat-mode delivery rate. 0 means the default.
	RatePerSec int
}

// Emitter renders and delivers greetings. RunOnce is the one-shot
// workload, Run the repeat-mode workload; exactly one of them runs per
// process.
type Emitter struct {
	sink    Sender
	log     logx.Logger
	bus     eventbus.Bus  // optional
	journal storage.Store // optional

	mu      sync.Mutex
	opts    EmitterOptions
	sched   *Schedule // nil in one-shot mode
	limiter *rate.Limiter

	delivered atomic.Int64
}

func NewEmitter(sink Sender, opts EmitterOptions, log logx.Logger) (*Emitter, error) {
	if sink == nil {
		return nil, exitcode.Errorf(exitcode.Config, "emitter requires an output")
	}
	e := &Emitter{sink: sink, log: log}
	if err := e.apply(opts); err != nil {
		return nil, err
	}
	return e, nil
}

// SetBus attaches an event bus; delivery outcomes are announced on it.
func (e *Emitter) SetBus(bus eventbus.Bus) { e.bus = bus }

// SetJournal attaches a delivery journal. Journal failures degrade to
// warnings and never fail a delivery.
func (e *Emitter) SetJournal(store storage.Store) { e.journal = store }

// Delivered reports how many deliveries have been attempted.
func (e *Emitter) Delivered() int64 { return e.delivered.Load() }

// Retune applies new options while running. Template, name, count and
// rate take effect on the next delivery; a schedule change takes
// effect after the currently armed tick fires.
func (e *Emitter) Retune(opts EmitterOptions) error {
	if err := e.apply(opts); err != nil {
		return err
	}
	e.mu.Lock()
	sched := e.sched
	e.mu.Unlock()
	schedStr := "one-shot"
	if sched != nil {
		schedStr = sched.String()
	}
	e.log.Debug("greeter retuned",
		logx.String("schedule", schedStr),
		logx.Int("count", opts.Count),
		logx.Int("rate_per_sec", opts.RatePerSec),
	)
	return nil
}

func (e *Emitter) apply(opts EmitterOptions) error {
	var sched *Schedule
	if strings.TrimSpace(opts.Schedule) != "" {
		s, err := ParseSchedule(opts.Schedule)
		if err != nil {
			return exitcode.Wrap(exitcode.Config, err)
		}
		sched = &s
	}
	if opts.Count < 0 {
		return exitcode.Errorf(exitcode.Config, "greeting.count must be >= 0")
	}
	perSec := opts.RatePerSec
	if perSec <= 0 {
		perSec = defaultRatePerSec
	}

	e.mu.Lock()
	e.opts = opts
	e.sched = sched
	e.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	e.mu.Unlock()
	return nil
}

// RunOnce delivers a single greeting and returns the delivery error,
// if any, for exit classification.
func (e *Emitter) RunOnce(ctx context.Context) error {
	return e.deliverOnce(ctx)
}

// Run is the repeat-mode loop: wait for the next schedule activation,
// honor the rate limit, deliver. Individual delivery failures are
// logged and journaled but do not stop the loop; Run returns when the
// configured count is reached or ctx ends.
func (e *Emitter) Run(ctx context.Context) error {
	e.mu.Lock()
	first := e.sched
	e.mu.Unlock()
	if first == nil {
		return exitcode.Errorf(exitcode.Config, "repeat mode requires a schedule")
	}
	e.log.Info("greeter started",
		logx.String("schedule", first.String()),
		logx.Int("outputs", e.sink.SinkCount()),
	)

	for {
		e.mu.Lock()
		sched := e.sched
		count := e.opts.Count
		lim := e.limiter
		e.mu.Unlock()

		if sched == nil {
			e.log.Warn("schedule removed; stopping greeter")
			return nil
		}
		if count > 0 && e.delivered.Load() >= int64(count) {
			e.log.Info("delivery count reached; stopping greeter", logx.Int("count", count))
			return nil
		}

		timer := time.NewTimer(time.Until(sched.Next(time.Now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if err := lim.Wait(ctx); err != nil {
			// The tick fired but the greeting never went out.
			e.announceSkipped("shutdown during rate wait")
			return err
		}
		_ = e.deliverOnce(ctx)
	}
}

func (e *Emitter) deliverOnce(ctx context.Context) error {
	e.mu.Lock()
	name := strings.TrimSpace(e.opts.Name)
	if name == "" {
		name = DefaultName
	}
	msg := Format(e.opts.Template, name)
	e.mu.Unlock()

	id := uuid.NewString()
	sinks := e.sink.SinkCount()
	start := time.Now()
	err := e.sink.Send(ctx, msg)
	took := time.Since(start)
	e.delivered.Add(1)

	entry := storage.DeliveryEntry{
		ID:      id,
		At:      start,
		Name:    name,
		Message: msg,
		Sinks:   sinks,
		TookMS:  took.Milliseconds(),
	}

	if err != nil {
		failed := sinks
		var sendErr *output.SendError
		if errors.As(err, &sendErr) {
			failed = sendErr.Failed
		}
		entry.Failed = failed
		entry.Error = err.Error()
		e.log.Warn("greeting delivery failed",
			logx.String("id", id),
			logx.Int("failed", failed),
			logx.Int("outputs", sinks),
			logx.Err(err),
		)
		e.announce(EventFailed, id, sinks, failed, took)
	} else {
		e.log.Debug("greeting delivered",
			logx.String("id", id),
			logx.Int("outputs", sinks),
			logx.Duration("took", took),
		)
		e.announce(EventDelivered, id, sinks, 0, took)
	}

	e.journalWrite(ctx, id, entry)
	return err
}

func (e *Emitter) announce(typ, id string, sinks, failed int, took time.Duration) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.Event{Type: typ, Data: map[string]any{
		"id":      id,
		"outputs": sinks,
		"failed":  failed,
		"took_ms": took.Milliseconds(),
	}})
}

func (e *Emitter) announceSkipped(reason string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.Event{Type: EventSkipped, Data: map[string]any{
		"reason": reason,
	}})
}

func (e *Emitter) journalWrite(ctx context.Context, id string, entry storage.DeliveryEntry) {
	if e.journal == nil {
		return
	}
	if err := e.journal.AppendDelivery(ctx, entry); err != nil {
		e.log.Warn("delivery journal write failed", logx.String("id", id), logx.Err(err))
	}
}
