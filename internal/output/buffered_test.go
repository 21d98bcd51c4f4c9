package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greetd/internal/exitcode"
	"greetd/pkg/logx"
)

func tmpPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "greetings.log")
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s := strings.TrimRight(string(data), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestBufferedFileWritesAllInOrder(t *testing.T) {
	path := tmpPath(t)
	opts := LowLatency(path)
	opts.Log = logx.Nop()
	w, err := NewBufferedFile(opts)
	require.NoError(t, err)

	const n = 100
	for i := 0; i < n; i++ {
		require.NoError(t, w.Send(context.Background(), fmt.Sprintf("msg %03d", i)))
	}
	require.NoError(t, w.Close())

	lines := readLines(t, path)
	require.Len(t, lines, n)
	for i, line := range lines {
		assert.Equal(t, fmt.Sprintf("msg %03d", i), line)
	}
}

func TestBufferedFileCloseDrainsQueue(t *testing.T) {
	// Flush triggers are effectively disabled; only Close may drain.
	path := tmpPath(t)
	w, err := NewBufferedFile(FileOptions{
		Path:           path,
		QueueSize:      1000,
		FlushInterval:  time.Hour,
		FlushThreshold: 1000,
		Log:            logx.Nop(),
	})
	require.NoError(t, err)

	const n = 50
	for i := 0; i < n; i++ {
		require.NoError(t, w.Send(context.Background(), fmt.Sprintf("queued %d", i)))
	}
	require.NoError(t, w.Close())
	require.Len(t, readLines(t, path), n)
}

func TestBufferedFileQueueFullFailsFast(t *testing.T) {
	path := tmpPath(t)
	w, err := NewBufferedFile(FileOptions{
		Path:           path,
		QueueSize:      4,
		FlushInterval:  time.Hour,
		FlushThreshold: 1000,
		Log:            logx.Nop(),
	})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, w.Send(context.Background(), "fits"))
	}
	assert.Equal(t, 4, w.QueueLen())

	start := time.Now()
	err = w.Send(context.Background(), "overflow")
	require.ErrorIs(t, err, ErrQueueFull)
	assert.Less(t, time.Since(start), time.Second, "full queue must fail fast, not block")

	// The rejected message is gone; the accepted four survive Close.
	require.NoError(t, w.Close())
	require.Len(t, readLines(t, path), 4)
}

func TestBufferedFileThresholdTriggersFlush(t *testing.T) {
	// The interval never fires in this test; only the size trigger can
	// move messages to disk.
	path := tmpPath(t)
	w, err := NewBufferedFile(FileOptions{
		Path:           path,
		QueueSize:      64,
		FlushInterval:  time.Hour,
		FlushThreshold: 2,
		Log:            logx.Nop(),
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, w.Close()) }()

	require.NoError(t, w.Send(context.Background(), "first"))
	require.NoError(t, w.Send(context.Background(), "second"))

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && strings.Count(string(data), "\n") == 2
	}, 2*time.Second, 10*time.Millisecond, "threshold crossing must flush without the ticker")
}

func TestBufferedFileSendAfterClose(t *testing.T) {
	w, err := NewBufferedFile(FileOptions{Path: tmpPath(t), Log: logx.Nop()})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = w.Send(context.Background(), "late")
	require.ErrorIs(t, err, ErrClosed)
}

func TestBufferedFileCloseIdempotent(t *testing.T) {
	w, err := NewBufferedFile(FileOptions{Path: tmpPath(t), Log: logx.Nop()})
	require.NoError(t, err)
	require.NoError(t, w.Send(context.Background(), "once"))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestBufferedFileCanceledContext(t *testing.T) {
	w, err := NewBufferedFile(FileOptions{Path: tmpPath(t), Log: logx.Nop()})
	require.NoError(t, err)
	defer func() { require.NoError(t, w.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, w.Send(ctx, "never"), context.Canceled)
}

func TestNewBufferedFileFailsLoud(t *testing.T) {
	_, err := NewBufferedFile(FileOptions{Path: "", Log: logx.Nop()})
	require.Error(t, err)
	assert.Equal(t, exitcode.Config, exitcode.FromError(err))

	_, err = NewBufferedFile(FileOptions{
		Path: filepath.Join(t.TempDir(), "missing", "dir", "out.log"),
		Log:  logx.Nop(),
	})
	require.Error(t, err)
	assert.Equal(t, exitcode.IOErr, exitcode.FromError(err))
}

func TestPresets(t *testing.T) {
	ht, err := Preset("high_throughput", "a.log")
	require.NoError(t, err)
	lt, err := Preset("low_latency", "a.log")
	require.NoError(t, err)

	assert.Greater(t, ht.QueueSize, lt.QueueSize)
	assert.Greater(t, ht.BufferSize, lt.BufferSize)
	assert.Less(t, lt.FlushInterval, ht.FlushInterval)

	def, err := Preset("", "a.log")
	require.NoError(t, err)
	assert.Equal(t, "a.log", def.Path)

	_, err = Preset("warp_speed", "a.log")
	require.Error(t, err)
	assert.Equal(t, exitcode.Config, exitcode.FromError(err))
}
