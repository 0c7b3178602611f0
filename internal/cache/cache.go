// Package cache persists small named JSON records under a local data
// directory. Reads are best-effort: a missing file, corrupt JSON or a schema
// version we don't know all read as "no cached value" and never surface an
// error past this boundary.
package cache

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Record names. Each is an independent file so the views that consume them
// agree on shape without sharing in-memory state.
const (
	RecordMarket    = "market_data"   // full market snapshot, all symbols
	RecordTicker    = "market_ticker" // allow-listed ticker-strip snapshot
	RecordTime      = "market_time"   // last server timestamp
	RecordPortfolio = "portfolio"     // user holdings
)

const schemaVersion = 1

type record struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

type Store struct {
	dir string
	log *slog.Logger

	mu sync.Mutex // serializes writes to any one record
}

func NewStore(dir string, logger *slog.Logger) *Store {
	if err := os.MkdirAll(dir, fs.ModePerm); err != nil {
		logger.Warn("cache dir", slog.String("dir", dir), slog.String("err", err.Error()))
	}
	return &Store{dir: dir, log: logger}
}

// Read loads the named record into v. Returns false when there is no usable
// cached value, for any reason.
func (s *Store) Read(name string, v any) bool {
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		return false
	}
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		s.log.Warn("cache record unreadable", slog.String("record", name), slog.String("err", err.Error()))
		return false
	}
	if rec.Version != schemaVersion {
		s.log.Warn("cache record version mismatch", slog.String("record", name), slog.Int("version", rec.Version))
		return false
	}
	if err := json.Unmarshal(rec.Data, v); err != nil {
		s.log.Warn("cache record unreadable", slog.String("record", name), slog.String("err", err.Error()))
		return false
	}
	return true
}

// Write stores v as the named record. Write failures are logged and dropped;
// losing a cache write only costs a cold start next launch.
func (s *Store) Write(name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("cache marshal", slog.String("record", name), slog.String("err", err.Error()))
		return
	}
	b, err := json.MarshalIndent(record{Version: schemaVersion, Data: data}, "", "  ")
	if err != nil {
		s.log.Warn("cache marshal", slog.String("record", name), slog.String("err", err.Error()))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write to a temp file and rename so readers never see a torn record.
	tmp := s.path(name) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		s.log.Warn("cache write", slog.String("record", name), slog.String("err", err.Error()))
		return
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		s.log.Warn("cache rename", slog.String("record", name), slog.String("err", err.Error()))
	}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}
