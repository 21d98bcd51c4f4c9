// Package exitcode defines the process exit status contract.
//
// Codes follow BSD sysexits for error classes and the Unix 128+signal
// convention for signal-driven exits. Scripts and unit files key off
// these values, so they are stable: change here means change in every
// caller's $? handling.
package exitcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"syscall"
)

// Code is a process exit status.
type Code int

const (
	// OK indicates clean completion.
	OK Code = 0

	// General is the catch-all for errors with no better class.
	General Code = 1

	// Usage indicates bad command-line arguments (sysexits EX_USAGE).
	Usage Code = 64

	// DataErr indicates malformed input data (EX_DATAERR).
	DataErr Code = 65

	// Unavailable indicates a required service could not be reached (EX_UNAVAILABLE).
	Unavailable Code = 69

	// Software indicates an internal fault, e.g. a recovered panic (EX_SOFTWARE).
	Software Code = 70

	// OSErr indicates an operating system level failure (EX_OSERR).
	OSErr Code = 71

	// IOErr indicates a file or stream I/O failure (EX_IOERR).
	IOErr Code = 74

	// NoPerm indicates insufficient permissions (EX_NOPERM).
	NoPerm Code = 77

	// Config indicates invalid or missing configuration (EX_CONFIG).
	Config Code = 78

	// Interrupted is 128+SIGINT: the run was cut short by Ctrl+C.
	Interrupted Code = 130

	// Killed is 128+SIGKILL: forced termination, e.g. a shutdown that
	// exhausted its grace period, or the OOM killer.
	Killed Code = 137

	// Terminated is 128+SIGTERM: a supervisor asked us to stop.
	Terminated Code = 143
)

// String returns the operator-facing name of the code.
func (c Code) String() string {
	switch c {
	case OK:
		return "success"
	case General:
		return "error"
	case Usage:
		return "usage error"
	case DataErr:
		return "data format error"
	case Unavailable:
		return "service unavailable"
	case Software:
		return "internal error"
	case OSErr:
		return "system error"
	case IOErr:
		return "i/o error"
	case NoPerm:
		return "permission denied"
	case Config:
		return "configuration error"
	case Interrupted:
		return "interrupted (SIGINT)"
	case Killed:
		return "killed"
	case Terminated:
		return "terminated (SIGTERM)"
	default:
		return fmt.Sprintf("exit code %d", int(c))
	}
}

// IsSignal reports whether the code is in the 128+signal range.
func (c Code) IsSignal() bool { return c > 128 }

// Severity orders codes for shutdown escalation. A later cause may only
// raise the recorded code, never lower it: success < signal interruption
// < specific failure < forced kill.
func (c Code) Severity() int {
	switch {
	case c == OK:
		return 0
	case c == Interrupted || c == Terminated:
		return 1
	case c == Killed:
		return 3
	default:
		return 2
	}
}

// Error couples an error with the code its exit should carry. Producers
// tag errors close to the failure; FromError recovers the tag anywhere
// up the call chain through wrapping.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with code. Returns nil for a nil err.
func Wrap(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// Errorf is Wrap over fmt.Errorf.
func Errorf(code Code, format string, a ...any) error {
	return &Error{Code: code, Err: fmt.Errorf(format, a...)}
}

// FromError maps an error to its exit code. Total and deterministic:
// the same error always yields the same code, nil yields OK, anything
// unrecognized yields General. Wrapped chains are inspected with
// errors.Is/As, so a tag or recognizable cause survives fmt.Errorf
// wrapping at any depth.
func FromError(err error) Code {
	if err == nil {
		return OK
	}

	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Code
	}

	// Cancellation without a more specific tag: the run was cut short.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Interrupted
	}

	if errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return NoPerm
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return DataErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return Unavailable
	}

	// Path-level failures: missing files, full disks, broken pipes.
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EPIPE) {
		return IOErr
	}

	return General
}

// FromSignal maps a termination signal to its exit code. SIGHUP is
// treated as a termination request: the contract pins 130 and 143, and
// anything else that stops us cleanly reports as Terminated.
func FromSignal(sig os.Signal) Code {
	switch sig {
	case os.Interrupt, syscall.SIGINT:
		return Interrupted
	default:
		return Terminated
	}
}
