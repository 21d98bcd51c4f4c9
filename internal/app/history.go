package app

import (
	"context"
	"fmt"
	"time"

	"greetd/internal/config"
	"greetd/internal/exitcode"
	"greetd/internal/storage"
	logx "greetd/pkg/logx"
)

// runHistory prints the most recent journaled deliveries and exits.
// It opens the journal read-only from the same config the daemon uses.
func runHistory(inv Invocation, logger logx.Logger) exitcode.Code {
	log := logger
	if log.IsZero() {
		log = logx.NewConsole("WARN")
	}
	log = log.With(logx.String("comp", "history"))

	cfg := config.Default()
	if inv.ConfigPath != "" {
		var err error
		cfg, err = config.NewManager(inv.ConfigPath).Load()
		if err != nil {
			log.Error("load config failed", logx.Err(err))
			return exitcode.Config
		}
	}

	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		log.Error("storage config invalid", logx.Err(err))
		return exitcode.Config
	}
	if !enabled {
		fmt.Fprintln(logx.Stderr(), "delivery journal not configured; set storage.driver in the config")
		return exitcode.Config
	}

	store, err := storage.Open(sc, log)
	if err != nil {
		log.Error("open journal failed", logx.Err(err))
		return exitcode.FromError(err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := store.RecentDeliveries(ctx, inv.History)
	if err != nil {
		log.Error("read journal failed", logx.Err(err))
		return exitcode.FromError(err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(logx.Stdout(), "no deliveries journaled yet")
		return exitcode.OK
	}
	for _, e := range entries {
		status := "ok"
		if e.Failed > 0 {
			status = fmt.Sprintf("failed %d/%d", e.Failed, e.Sinks)
		}
		fmt.Fprintf(logx.Stdout(), "%s  %s  %s  %q\n", e.At.Format(time.RFC3339), e.ID, status, e.Message)
	}
	return exitcode.OK
}
