package store

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sarraf/internal/cache"
	"sarraf/internal/market"
)

// TickerStore holds the ticker-strip snapshot: the allow-listed symbols only,
// plus the last server timestamp. Same merge semantics as SnapshotStore, but
// ticks outside the allow-list are dropped, and the store is seeded with
// zeroed placeholder rows so the strip is stable before the first tick.
type TickerStore struct {
	mu         sync.Mutex
	entries    []market.TickerEntry
	index      map[string]int
	lastUpdate string
	subs       []func()

	cache   *cache.Store
	persist *debouncer
	log     *slog.Logger
}

func NewTickerStore(c *cache.Store, debounce time.Duration, logger *slog.Logger) *TickerStore {
	s := &TickerStore{
		index: map[string]int{},
		cache: c,
		log:   logger,
	}
	var cached []market.TickerEntry
	if c.Read(cache.RecordTicker, &cached) && len(cached) > 0 {
		for _, e := range cached {
			if !market.Allowed(e.Symbol) {
				continue
			}
			s.index[e.Symbol] = len(s.entries)
			s.entries = append(s.entries, e)
		}
	}
	if len(s.entries) == 0 {
		for _, sym := range market.AllowedSymbols {
			s.index[sym] = len(s.entries)
			s.entries = append(s.entries, market.TickerEntry{
				Symbol: sym,
				Price:  decimal.Zero,
				Change: decimal.Zero,
			})
		}
	}
	var ts string
	if c.Read(cache.RecordTime, &ts) {
		s.lastUpdate = ts
	}
	s.persist = newDebouncer(debounce, s.write)
	return s
}

// Reconcile merges the allow-listed subset of a batch and records the server
// timestamp when the envelope carried one.
func (s *TickerStore) Reconcile(ticks []market.Tick, serverTime string) {
	allowed := market.FilterAllowed(ticks)
	if len(allowed) == 0 && serverTime == "" {
		return
	}
	s.mu.Lock()
	for _, t := range allowed {
		e := t.TickerEntry()
		if i, ok := s.index[e.Symbol]; ok {
			s.entries[i] = e
		} else {
			s.index[e.Symbol] = len(s.entries)
			s.entries = append(s.entries, e)
		}
	}
	if serverTime != "" {
		s.lastUpdate = serverTime
	}
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	s.persist.trigger()
	for _, fn := range subs {
		fn()
	}
}

func (s *TickerStore) Entries() []market.TickerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

func (s *TickerStore) LastUpdate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdate
}

func (s *TickerStore) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *TickerStore) Close() {
	s.persist.flush()
}

func (s *TickerStore) write() {
	s.cache.Write(cache.RecordTicker, s.Entries())
	if ts := s.LastUpdate(); ts != "" {
		s.cache.Write(cache.RecordTime, ts)
	}
}
