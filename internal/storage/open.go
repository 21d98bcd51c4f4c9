package storage

import (
	"context"
	"errors"
	"strings"

	"greetd/pkg/logx"
)

// Store is the delivery journal API.
type Store interface {
	AppendDelivery(ctx context.Context, e DeliveryEntry) error
	// RecentDeliveries returns up to limit entries, newest first.
	// limit <= 0 uses a small default.
	RecentDeliveries(ctx context.Context, limit int) ([]DeliveryEntry, error)
	Close() error
}

const defaultRecentLimit = 20

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
