package output

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"greetd/internal/exitcode"
	"greetd/pkg/logx"
)

// FanOut broadcasts one greeting to every configured sink.
type FanOut struct {
	sinks []Sink
	log   logx.Logger
}

// NewFanOut requires at least one sink: a greeting with nowhere to go
// is a configuration error, not a silent success.
func NewFanOut(log logx.Logger, sinks ...Sink) (*FanOut, error) {
	if len(sinks) == 0 {
		return nil, exitcode.Errorf(exitcode.Config, "no output sinks configured")
	}
	return &FanOut{sinks: sinks, log: log}, nil
}

func (f *FanOut) Name() string { return "fanout" }

// SinkCount reports how many sinks the broadcast covers.
func (f *FanOut) SinkCount() int { return len(f.sinks) }

// Send attempts every sink exactly once, concurrently, and joins all
// attempts before returning. It never stops early: one failing sink
// must not cost the others their delivery.
func (f *FanOut) Send(ctx context.Context, msg string) error {
	results := make([]error, len(f.sinks))
	var wg sync.WaitGroup
	for i, s := range f.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.Send(ctx, msg)
		}()
	}
	wg.Wait()

	var failed []error
	for i, err := range results {
		if err == nil {
			continue
		}
		f.log.Warn("sink delivery failed",
			logx.String("sink", f.sinks[i].Name()),
			logx.Err(err))
		failed = append(failed, fmt.Errorf("%s: %w", f.sinks[i].Name(), err))
	}
	if len(failed) == 0 {
		return nil
	}
	return &SendError{Failed: len(failed), Total: len(f.sinks), Errors: failed}
}

// Close closes every sink, joining their errors.
func (f *FanOut) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// SendError reports a partial or total broadcast failure: how many
// sinks failed out of how many were attempted, with every sink's own
// error preserved.
type SendError struct {
	Failed int
	Total  int
	Errors []error // one per failing sink, prefixed with its name
}

func (e *SendError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("failed to send to %d of %d outputs: %s", e.Failed, e.Total, strings.Join(parts, "; "))
}

// Unwrap exposes the per-sink errors to errors.Is and errors.As.
func (e *SendError) Unwrap() []error { return e.Errors }
