package lifecycle

import (
	"os"
	"syscall"
)

// StopReason records what triggered the shutdown. The first trigger
// wins; later triggers may only escalate the exit code.
type StopReason string

const (
	StopUnknown      StopReason = "unknown"
	StopSIGINT       StopReason = "sigint"
	StopSIGTERM      StopReason = "sigterm"
	StopSIGHUP       StopReason = "sighup"
	StopWorkloadDone StopReason = "workload_done"
	StopFatalError   StopReason = "fatal_error"
)

// ReasonForSignal maps a termination signal to its stop reason.
func ReasonForSignal(sig os.Signal) StopReason {
	switch sig {
	case os.Interrupt, syscall.SIGINT:
		return StopSIGINT
	case syscall.SIGTERM:
		return StopSIGTERM
	case syscall.SIGHUP:
		return StopSIGHUP
	}
	return StopUnknown
}
