package output

import (
	"context"
	"errors"
)

// Sink is a single greeting destination.
//
// Send delivers one message. Implementations must be safe for
// concurrent use: FanOut calls every sink from its own goroutine.
// Close releases resources; for buffered sinks it also drains.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg string) error
	Close() error
}

var (
	// ErrQueueFull is returned by bounded sinks instead of blocking.
	ErrQueueFull = errors.New("output queue full")

	// ErrClosed is returned for sends after Close started.
	ErrClosed = errors.New("output closed")
)
