package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"greetd/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// One file: <prefix>.deliveries.jsonl (append-only JSON Lines). Reads
// re-scan the file, keeping only the newest entries in memory, so the
// journal can grow without bounding history queries.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	path string
	f    *os.File
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	journalPath := filepath.Join(dir, base) + ".deliveries.jsonl"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{log: log, path: journalPath, f: f}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func (s *fileStore) AppendDelivery(ctx context.Context, e DeliveryEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return errors.New("delivery journal closed")
	}
	return json.NewEncoder(s.f).Encode(e)
}

func (s *fileStore) RecentDeliveries(ctx context.Context, limit int) ([]DeliveryEntry, error) {
	_ = ctx
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	// Read through a separate handle; the append handle is write-only.
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	// Ring of the newest `limit` entries.
	ring := make([]DeliveryEntry, 0, limit)
	next := 0
	total := 0

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e DeliveryEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			s.log.Debug("skipping malformed journal line", logx.Err(err))
			continue
		}
		if len(ring) < limit {
			ring = append(ring, e)
		} else {
			ring[next] = e
		}
		next = (next + 1) % limit
		total++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	// Unroll the ring newest-first.
	out := make([]DeliveryEntry, 0, len(ring))
	for i := 0; i < len(ring); i++ {
		idx := (next - 1 - i + len(ring)) % len(ring)
		out = append(out, ring[idx])
	}
	return out, nil
}
