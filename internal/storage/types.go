package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DeliveryEntry records one greeting delivery attempt.
// Keep it compact and schema-stable.
type DeliveryEntry struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Name    string    `json:"name"`
	Message string    `json:"message"`
	Sinks   int       `json:"sinks"`
	Failed  int       `json:"failed"`
	Error   string    `json:"error,omitempty"`
	TookMS  int64     `json:"took_ms"`
}
