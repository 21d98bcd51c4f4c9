// Package signals abstracts where termination requests come from.
//
// The lifecycle coordinator consumes a Source instead of calling
// signal.Notify itself, so tests can drive shutdown deterministically
// and embedders can wire their own trigger. OS() is the production
// source; Nop() never delivers anything.
package signals

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"greetd/internal/exitcode"
	"greetd/pkg/logx"
)

// Handler receives one call per delivered termination request. It must
// be safe to call multiple times: repeated Ctrl+C keeps delivering.
type Handler func(sig os.Signal)

// Source begins delivering termination requests on Install and stops on
// Close. Close releases the underlying registration and waits for the
// delivery goroutine to finish.
type Source interface {
	Install(h Handler)
	Close()
}

var defaultSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

const defaultMaxCount = 3

// Options tunes the OS source.
type Options struct {
	// Signals to subscribe to. Defaults to SIGINT, SIGTERM, SIGHUP.
	Signals []os.Signal

	// MaxCount is the number of signals tolerated before the process is
	// terminated immediately, so a wedged shutdown can always be cut
	// short from the keyboard. <= 0 keeps the default of 3; escalation
	// cannot be disabled on the OS source.
	MaxCount int

	// ExitFn is called on escalation. Defaults to os.Exit.
	ExitFn func(code int)

	Log logx.Logger
}

// OS returns a source backed by signal.Notify. Registration cannot
// fail, so construction always succeeds; there is no degraded path.
func OS(opts Options) Source {
	if len(opts.Signals) == 0 {
		opts.Signals = defaultSignals
	}
	if opts.MaxCount <= 0 {
		opts.MaxCount = defaultMaxCount
	}
	if opts.ExitFn == nil {
		opts.ExitFn = os.Exit
	}
	return &osSource{
		opts: opts,
		ch:   make(chan os.Signal, opts.MaxCount),
		done: make(chan struct{}),
	}
}

type osSource struct {
	opts Options

	ch   chan os.Signal
	done chan struct{}
	wg   sync.WaitGroup

	installOnce sync.Once
	closeOnce   sync.Once
}

// SetMaxCount retunes the escalation threshold from config. It only
// takes effect before Install.
func (s *osSource) SetMaxCount(n int) {
	if n > 0 {
		s.opts.MaxCount = n
	}
}

func (s *osSource) Install(h Handler) {
	s.installOnce.Do(func() {
		signal.Notify(s.ch, s.opts.Signals...)
		s.wg.Add(1)
		go s.forward(h)
	})
}

func (s *osSource) forward(h Handler) {
	defer s.wg.Done()
	received := 0
	// Keep receiving so sends to the buffered channel never back up
	// while a shutdown is in flight.
	for {
		select {
		case sig := <-s.ch:
			received++
			s.opts.Log.Info("signal received",
				logx.String("signal", sig.String()),
				logx.Int("count", received))
			if received >= s.opts.MaxCount {
				s.opts.Log.Error("too many signals, terminating immediately",
					logx.Int("max", s.opts.MaxCount))
				s.opts.ExitFn(int(exitcode.Killed))
			}
			if h != nil {
				h(sig)
			}
		case <-s.done:
			return
		}
	}
}

func (s *osSource) Close() {
	s.closeOnce.Do(func() {
		signal.Stop(s.ch)
		close(s.done)
		s.wg.Wait()
	})
}

// Nop returns a source that never delivers. Handy default for tests and
// for embedding the runtime where the host owns signal handling.
func Nop() Source { return nopSource{} }

type nopSource struct{}

func (nopSource) Install(Handler) {}
func (nopSource) Close()          {}
