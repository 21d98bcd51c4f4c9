package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"sync/atomic"
	"time"

	"greetd/internal/exitcode"
	logx "greetd/pkg/logx"
)

const (
	DefaultGracePeriod    = 5 * time.Second
	DefaultCleanupTimeout = 2 * time.Second
)

// CleanupStep is one bounded piece of the shutdown sequence.
type CleanupStep struct {
	Name string
	// Max bounds this step; 0 means whatever remains of the overall
	// cleanup budget.
	Max time.Duration
	Fn  func(context.Context) error
}

// Options tune a Coordinator. The zero value is usable: default grace
// period and cleanup budget, no logging, no cleanup steps.
type Options struct {
	// GracePeriod is how long an externally triggered shutdown waits
	// for the workload before abandoning it.
	GracePeriod time.Duration

	// CleanupTimeout bounds the whole cleanup sequence.
	CleanupTimeout time.Duration

	// Cleanup runs in order after the workload ended or was abandoned.
	// It runs on every path, including forced termination.
	Cleanup []CleanupStep

	// OnShutdown is invoked exactly once, by whichever trigger wins.
	OnShutdown func(reason StopReason)

	// RunningNames, when set, names still-running workers for the leak
	// log when the grace period expires.
	RunningNames func() []string

	Log logx.Logger
}

// Coordinator owns the shutdown state machine. Shutdown and Interrupt
// may be called from any goroutine, any number of times; the transition
// happens once.
//
// Exit code policy: the code moves monotonically toward worse outcomes
// (Escalate). A signal by itself does not decide the code; it is held
// as the pending cancellation code and applies only if the workload
// unwinds with context.Canceled. A workload that still finishes its
// work after a signal keeps its own result.
type Coordinator struct {
	opts Options

	state  atomic.Int32
	code   atomic.Int32
	reason atomic.Value // StopReason

	// cancelCode is the code a cancelled unwind maps to; set by the
	// first Interrupt, zero otherwise.
	cancelCode atomic.Int32

	shutdownCh chan struct{}
}

func New(opts Options) *Coordinator {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.CleanupTimeout <= 0 {
		opts.CleanupTimeout = DefaultCleanupTimeout
	}
	if opts.Log.IsZero() {
		opts.Log = logx.Nop()
	}
	c := &Coordinator{opts: opts, shutdownCh: make(chan struct{})}
	c.state.Store(int32(StateRunning))
	c.reason.Store(StopUnknown)
	return c
}

// State reports the current lifecycle phase.
func (c *Coordinator) State() State { return State(c.state.Load()) }

// Reason reports what triggered shutdown; StopUnknown while running.
func (c *Coordinator) Reason() StopReason { return c.reason.Load().(StopReason) }

// ExitCode reports the exit code proposed so far.
func (c *Coordinator) ExitCode() exitcode.Code { return exitcode.Code(c.code.Load()) }

// Done is closed once shutdown has been triggered.
func (c *Coordinator) Done() <-chan struct{} { return c.shutdownCh }

// Shutdown proposes a shutdown for an observed failure (or a clean
// stop). The first caller wins the transition and records the reason;
// every caller escalates the exit code. It reports whether this call
// performed the transition.
func (c *Coordinator) Shutdown(reason StopReason, code exitcode.Code) bool {
	c.Escalate(code)
	return c.transition(reason, code)
}

// Interrupt proposes a shutdown for a termination signal. The signal's
// code is recorded as the pending cancellation code rather than
// escalated: it becomes the exit code only if the workload unwinds as
// cancelled. The first signal wins both the transition and the pending
// code.
func (c *Coordinator) Interrupt(sig os.Signal) bool {
	code := exitcode.FromSignal(sig)
	c.cancelCode.CompareAndSwap(0, int32(code))
	return c.transition(ReasonForSignal(sig), code)
}

func (c *Coordinator) transition(reason StopReason, code exitcode.Code) bool {
	if !c.state.CompareAndSwap(int32(StateRunning), int32(StateShuttingDown)) {
		return false
	}
	c.reason.Store(reason)
	c.opts.Log.Info("shutdown triggered",
		logx.String("reason", string(reason)),
		logx.Int("code", int(code)),
	)
	if c.opts.OnShutdown != nil {
		c.opts.OnShutdown(reason)
	}
	close(c.shutdownCh)
	return true
}

// Escalate raises the proposed exit code. Codes at the same or lower
// severity are ignored, so the final code only moves toward worse
// outcomes and the first trigger of a given severity sticks.
func (c *Coordinator) Escalate(code exitcode.Code) {
	for {
		cur := exitcode.Code(c.code.Load())
		if code.Severity() <= cur.Severity() {
			return
		}
		if c.code.CompareAndSwap(int32(cur), int32(code)) {
			return
		}
	}
}

// Run executes workload until it finishes or a shutdown trigger wins,
// then runs cleanup and reports the final exit code. The workload ctx
// is canceled as soon as shutdown starts; a workload that ignores it
// past the grace period is abandoned with the forced-termination code.
func (c *Coordinator) Run(ctx context.Context, workload func(context.Context) error) exitcode.Code {
	start := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.opts.Log.Error("panic in workload",
					logx.Any("panic", r),
					logx.Stack(string(debug.Stack())),
				)
				done <- exitcode.Errorf(exitcode.Software, "panic in workload: %v", r)
			}
		}()
		done <- workload(runCtx)
	}()

	var (
		werr      error
		abandoned bool
	)
	select {
	case werr = <-done:
	case <-ctx.Done():
		c.Shutdown(StopUnknown, exitcode.OK)
		werr, abandoned = c.awaitWorkload(done, cancel)
	case <-c.shutdownCh:
		werr, abandoned = c.awaitWorkload(done, cancel)
	}

	if !abandoned {
		c.settleWorkload(werr)
	}

	c.cleanup()
	c.state.Store(int32(StateTerminated))
	code := c.ExitCode()
	c.opts.Log.Info("terminated",
		logx.String("reason", string(c.Reason())),
		logx.Int("code", int(code)),
		logx.Duration("uptime", time.Since(start)),
	)
	return code
}

// awaitWorkload gives the workload the grace period to unwind after an
// external trigger.
func (c *Coordinator) awaitWorkload(done <-chan error, cancel context.CancelFunc) (error, bool) {
	cancel()
	grace := time.NewTimer(c.opts.GracePeriod)
	defer grace.Stop()
	select {
	case err := <-done:
		return err, false
	case <-grace.C:
		c.Escalate(exitcode.Killed)
		fields := []logx.Field{logx.Duration("grace_period", c.opts.GracePeriod)}
		if c.opts.RunningNames != nil {
			fields = append(fields, logx.Any("running", c.opts.RunningNames()))
		}
		c.opts.Log.Error("grace period expired; abandoning workload", fields...)
		// Leak signal: observe when/if the workload eventually returns.
		go func() {
			<-done
			c.opts.Log.Warn("workload finished after being abandoned")
		}()
		return nil, true
	}
}

// settleWorkload folds the workload result into reason and exit code.
// context.Canceled is the expected unwind during shutdown, not a
// failure: it maps to the pending cancellation code (the signal's, if
// one arrived). A nil result keeps the workload's own success even when
// a signal cut the run short.
func (c *Coordinator) settleWorkload(err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		code := exitcode.FromError(err)
		msg := "workload failed"
		if !c.Shutdown(StopFatalError, code) {
			msg = "workload failed during shutdown"
		}
		c.opts.Log.Error(msg, logx.Err(err), logx.Int("code", int(code)))
		return
	}
	if err != nil {
		c.Escalate(exitcode.Code(c.cancelCode.Load()))
	}
	c.Shutdown(StopWorkloadDone, exitcode.OK)
}

func (c *Coordinator) cleanup() {
	if len(c.opts.Cleanup) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.CleanupTimeout)
	defer cancel()
	for _, s := range c.opts.Cleanup {
		c.runStep(ctx, s)
	}
}

// runStep bounds one cleanup step so a stuck component cannot stall
// the whole stop. The step may shrink to the remaining overall budget
// but never extends it.
func (c *Coordinator) runStep(ctx context.Context, s CleanupStep) {
	start := time.Now()
	c.opts.Log.Debug("cleanup step begin", logx.String("name", s.Name), logx.Duration("max", s.Max))

	stepCtx := ctx
	var cancel context.CancelFunc
	max := s.Max
	if max > 0 {
		if dl, ok := ctx.Deadline(); ok {
			rem := time.Until(dl)
			if rem <= 0 {
				max = 0
			} else if rem < max {
				max = rem
			}
		}
		if max > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in cleanup step %s: %v", s.Name, r)
			}
		}()
		done <- s.Fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			// ctx sentinels just mean the bound kicked in; real step
			// failures (lost data, failed closes) escalate the exit.
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				c.Escalate(exitcode.FromError(err))
			}
			c.opts.Log.Warn("cleanup step error", logx.String("name", s.Name), logx.Err(err))
		}
		c.opts.Log.Debug("cleanup step end", logx.String("name", s.Name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		// Contract: Fn must honor stepCtx and return promptly. If it
		// does not, log a leak signal and observe the late finish.
		c.opts.Log.Warn("cleanup step deadline reached (continuing)",
			logx.String("name", s.Name),
			logx.Duration("elapsed", time.Since(start)),
		)
		go func() {
			err := <-done
			if err != nil {
				c.opts.Log.Warn("cleanup step finished after deadline", logx.String("name", s.Name), logx.Err(err))
			} else {
				c.opts.Log.Info("cleanup step finished after deadline", logx.String("name", s.Name), logx.Duration("took", time.Since(start)))
			}
		}()
	}
}
