package exitcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"
)

func TestFromErrorClasses(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: OK},
		{name: "plain", err: errors.New("boom"), want: General},
		{name: "canceled", err: context.Canceled, want: Interrupted},
		{name: "deadline", err: context.DeadlineExceeded, want: Interrupted},
		{name: "permission", err: fs.ErrPermission, want: NoPerm},
		{name: "eacces", err: syscall.EACCES, want: NoPerm},
		{name: "missing file", err: fs.ErrNotExist, want: IOErr},
		{name: "disk full", err: syscall.ENOSPC, want: IOErr},
		{name: "path error", err: &fs.PathError{Op: "open", Path: "x", Err: syscall.ENOENT}, want: IOErr},
		{name: "path error eacces", err: &fs.PathError{Op: "open", Path: "x", Err: syscall.EACCES}, want: NoPerm},
		{name: "json syntax", err: &json.SyntaxError{Offset: 3}, want: DataErr},
		{name: "refused", err: syscall.ECONNREFUSED, want: Unavailable},
		{name: "tagged config", err: Wrap(Config, errors.New("bad yaml")), want: Config},
		{name: "tagged usage", err: Errorf(Usage, "unknown flag %q", "-x"), want: Usage},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := FromError(tt.err); got != tt.want {
				t.Fatalf("FromError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFromErrorWrapped(t *testing.T) {
	t.Parallel()
	// Tags and causes must survive fmt.Errorf wrapping at any depth.
	inner := Wrap(Config, errors.New("unknown key"))
	outer := fmt.Errorf("loading config: %w", fmt.Errorf("decode: %w", inner))
	if got := FromError(outer); got != Config {
		t.Fatalf("FromError(wrapped) = %v, want %v", got, Config)
	}

	io := fmt.Errorf("flush: %w", syscall.EPIPE)
	if got := FromError(io); got != IOErr {
		t.Fatalf("FromError(wrapped pipe) = %v, want %v", got, IOErr)
	}
}

func TestFromErrorDeterministic(t *testing.T) {
	t.Parallel()
	err := Wrap(Unavailable, errors.New("telegram down"))
	first := FromError(err)
	for i := 0; i < 100; i++ {
		if got := FromError(err); got != first {
			t.Fatalf("classification changed between calls: %v then %v", first, got)
		}
	}
}

func TestFromSignal(t *testing.T) {
	t.Parallel()
	if got := FromSignal(os.Interrupt); got != Interrupted {
		t.Fatalf("FromSignal(SIGINT) = %v, want %v", got, Interrupted)
	}
	if got := FromSignal(syscall.SIGTERM); got != Terminated {
		t.Fatalf("FromSignal(SIGTERM) = %v, want %v", got, Terminated)
	}
	if got := FromSignal(syscall.SIGHUP); got != Terminated {
		t.Fatalf("FromSignal(SIGHUP) = %v, want %v", got, Terminated)
	}
}

func TestSeverityOrdering(t *testing.T) {
	t.Parallel()
	if !(OK.Severity() < Interrupted.Severity()) {
		t.Fatal("success must rank below signal interruption")
	}
	if !(Terminated.Severity() < Config.Severity()) {
		t.Fatal("signal interruption must rank below specific failures")
	}
	if !(Software.Severity() < Killed.Severity()) {
		t.Fatal("specific failures must rank below forced kill")
	}
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("root cause")
	err := Wrap(IOErr, cause)
	if !errors.Is(err, cause) {
		t.Fatal("Wrap must preserve the cause for errors.Is")
	}
	if Wrap(IOErr, nil) != nil {
		t.Fatal("Wrap(nil) must be nil")
	}
}

func TestCodeString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code Code
		want string
	}{
		{OK, "success"},
		{Usage, "usage error"},
		{Config, "configuration error"},
		{Interrupted, "interrupted (SIGINT)"},
		{Killed, "killed"},
		{Terminated, "terminated (SIGTERM)"},
		{Code(99), "exit code 99"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Fatalf("String(%d) = %q, want %q", int(tt.code), got, tt.want)
		}
	}
}
