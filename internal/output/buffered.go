package output

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"greetd/internal/exitcode"
	"greetd/pkg/logx"
)

// FileOptions tunes the buffered file sink.
type FileOptions struct {
	Path string

	// QueueSize bounds accepted-but-unwritten messages. A full queue
	// makes Send return ErrQueueFull instead of blocking.
	QueueSize int

	// FlushInterval is the background flush cadence.
	FlushInterval time.Duration

	// FlushThreshold forces a flush once that many messages are queued,
	// without waiting for the interval. A threshold above QueueSize
	// disables the size trigger (interval-only flushing).
	FlushThreshold int

	// BufferSize is the in-memory write buffer in bytes.
	BufferSize int

	// CloseTimeout bounds how long Close waits for the drain.
	CloseTimeout time.Duration

	Log logx.Logger
}

func (o FileOptions) withDefaults() (FileOptions, error) {
	if strings.TrimSpace(o.Path) == "" {
		return o, exitcode.Errorf(exitcode.Config, "output file path is empty")
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 250 * time.Millisecond
	}
	if o.FlushThreshold <= 0 {
		o.FlushThreshold = 32
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 16 << 10
	}
	if o.CloseTimeout <= 0 {
		o.CloseTimeout = 5 * time.Second
	}
	return o, nil
}

// HighThroughput favors batching for bulk runs: large write buffer,
// relaxed flush cadence, deep queue.
func HighThroughput(path string) FileOptions {
	return FileOptions{
		Path:           path,
		QueueSize:      4096,
		FlushInterval:  time.Second,
		FlushThreshold: 256,
		BufferSize:     64 << 10,
	}
}

// LowLatency favors freshness for interactive runs: small write buffer,
// tight flush cadence, shallow queue.
func LowLatency(path string) FileOptions {
	return FileOptions{
		Path:           path,
		QueueSize:      256,
		FlushInterval:  50 * time.Millisecond,
		FlushThreshold: 16,
		BufferSize:     4 << 10,
	}
}

// Preset maps a config profile name to file options.
func Preset(name, path string) (FileOptions, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return FileOptions{Path: path}, nil
	case "high_throughput", "throughput":
		return HighThroughput(path), nil
	case "low_latency", "latency":
		return LowLatency(path), nil
	default:
		return FileOptions{}, exitcode.Errorf(exitcode.Config, "unknown output profile %q", name)
	}
}

type entry struct {
	msg string
	at  time.Time
}

// BufferedFile appends greetings to a file through a bounded queue and
// a single background flush goroutine, so slow disks never stall the
// caller. Construction opens the file and fails loudly on any problem;
// the caller can then knowingly fall back to console-only delivery.
type BufferedFile struct {
	opts FileOptions
	log  logx.Logger

	f  *os.File
	bw *bufio.Writer

	mu        sync.Mutex
	accepting bool
	sendWG    sync.WaitGroup

	queue chan entry
	wake  chan struct{}
	stop  chan struct{}
	done  chan struct{}

	// First write failure, set only by the flush goroutine and read
	// after <-done, so closing the done channel orders the access.
	werr error

	closeOnce sync.Once
	closeErr  error
}

func NewBufferedFile(opts FileOptions) (*BufferedFile, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	w := &BufferedFile{
		opts:      opts,
		log:       opts.Log,
		f:         f,
		bw:        bufio.NewWriterSize(f, opts.BufferSize),
		accepting: true,
		queue:     make(chan entry, opts.QueueSize),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *BufferedFile) Name() string { return "file" }

// QueueLen reports how many accepted messages are still queued.
func (w *BufferedFile) QueueLen() int { return len(w.queue) }

// Send queues msg without blocking. A full queue surfaces ErrQueueFull
// immediately; the caller decides whether to drop, retry, or slow down.
func (w *BufferedFile) Send(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	if !w.accepting {
		w.mu.Unlock()
		return ErrClosed
	}
	w.sendWG.Add(1)
	w.mu.Unlock()
	defer w.sendWG.Done()

	select {
	case w.queue <- entry{msg: msg, at: time.Now()}:
	default:
		return ErrQueueFull
	}

	if len(w.queue) >= w.opts.FlushThreshold {
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

func (w *BufferedFile) run() {
	defer close(w.done)
	t := time.NewTicker(w.opts.FlushInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			w.flush()
		case <-w.wake:
			w.flush()
		case <-w.stop:
			// Intake stopped before the signal, so this drain is final.
			w.flush()
			return
		}
	}
}

// flush moves everything currently queued into one batched write.
func (w *BufferedFile) flush() {
	var batch []entry
	for {
		select {
		case e := <-w.queue:
			batch = append(batch, e)
		default:
			w.writeBatch(batch)
			return
		}
	}
}

func (w *BufferedFile) writeBatch(batch []entry) {
	if len(batch) == 0 {
		return
	}
	for _, e := range batch {
		if _, err := w.bw.WriteString(e.msg); err != nil {
			w.noteWriteErr(err)
			return
		}
		if err := w.bw.WriteByte('\n'); err != nil {
			w.noteWriteErr(err)
			return
		}
	}
	if err := w.bw.Flush(); err != nil {
		w.noteWriteErr(err)
		return
	}
	w.log.Debug("flushed output batch",
		logx.Int("messages", len(batch)),
		logx.Duration("oldest", time.Since(batch[0].at)))
}

func (w *BufferedFile) noteWriteErr(err error) {
	if w.werr == nil {
		w.werr = err
	}
	w.log.Error("output write failed", logx.Err(err), logx.String("path", w.opts.Path))
}

// Close stops intake, waits for every accepted message to reach disk,
// and closes the file. Idempotent; repeated calls return the first
// result. The drain wait is bounded by CloseTimeout so a stuck disk
// cannot hang shutdown, at the cost of reporting an error instead.
func (w *BufferedFile) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.accepting = false
		w.mu.Unlock()

		// Let in-flight Sends land or bounce before the final drain.
		w.sendWG.Wait()
		close(w.stop)

		select {
		case <-w.done:
		case <-time.After(w.opts.CloseTimeout):
			w.closeErr = exitcode.Errorf(exitcode.IOErr,
				"output close timed out after %s with %d messages queued",
				w.opts.CloseTimeout, len(w.queue))
			return
		}

		err := w.bw.Flush()
		if serr := w.f.Sync(); serr != nil && err == nil {
			err = serr
		}
		if cerr := w.f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if w.werr != nil {
			err = w.werr
		}
		w.closeErr = err
	})
	return w.closeErr
}
