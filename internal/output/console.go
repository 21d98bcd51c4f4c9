package output

import (
	"context"
	"io"
	"os"
	"sync"
)

// Console writes each greeting as one line to a writer, stdout by
// default. It is the sink of last resort: always constructible, no
// buffering, no background work.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole returns a console sink over w. A nil w means os.Stdout.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Send(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, msg+"\n")
	return err
}

func (c *Console) Close() error { return nil }
