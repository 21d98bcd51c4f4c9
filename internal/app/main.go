package app

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"greetd/internal/exitcode"
	"greetd/internal/runtime/signals"
	logx "greetd/pkg/logx"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Main is the whole program behind the process entry point. Callers
// own os.Exit so deferred cleanup is never skipped. The signal source
// and logger are injectable; zero values select the real OS source and
// a config-driven logger.
func Main(args []string, src signals.Source, logger logx.Logger) exitcode.Code {
	inv, err := parseArgs(args, logx.Stderr())
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitcode.OK
		}
		return exitcode.Usage
	}

	switch inv.Mode {
	case ModeVersion:
		fmt.Fprintln(logx.Stdout(), "greetd "+Version)
		return exitcode.OK
	case ModeHistory:
		return runHistory(inv, logger)
	}

	a, err := NewApp(inv, logger)
	if err != nil {
		bootLog := logger
		if bootLog.IsZero() {
			bootLog = logx.NewConsole("INFO")
		}
		bootLog.With(logx.String("comp", "app")).Error("bootstrap failed", logx.Err(err))
		return exitcode.FromError(err)
	}
	return a.Run(context.Background(), src)
}
