// Package store owns the client's shared mutable state: the two price
// snapshots (ticker strip and full market) and the user's holdings. Each
// store has exactly one writer; views subscribe and rederive what they show.
package store

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"sarraf/internal/cache"
	"sarraf/internal/market"
)

// SnapshotStore holds the full market snapshot: an ordered keyed collection
// of price entries. Reconcile updates known codes in place and appends unseen
// ones, so the user-visible row order is never perturbed by updates.
type SnapshotStore struct {
	mu      sync.Mutex
	entries []market.Entry
	index   map[string]int
	subs    []func()

	cache   *cache.Store
	persist *debouncer
	log     *slog.Logger
}

func NewSnapshotStore(c *cache.Store, debounce time.Duration, logger *slog.Logger) *SnapshotStore {
	s := &SnapshotStore{
		index: map[string]int{},
		cache: c,
		log:   logger,
	}
	var cached []market.Entry
	if c.Read(cache.RecordMarket, &cached) && len(cached) > 0 {
		s.entries = cached
		for i, e := range cached {
			s.index[e.Code] = i
		}
	}
	s.persist = newDebouncer(debounce, s.write)
	return s
}

// Reconcile merges one normalized batch into the snapshot. The batch is
// applied under the lock, so readers only ever observe a fully-applied batch.
// Persistence is debounced; only the latest state at expiry is written.
func (s *SnapshotStore) Reconcile(ticks []market.Tick) {
	if len(ticks) == 0 {
		return
	}
	s.mu.Lock()
	for _, t := range ticks {
		if i, ok := s.index[t.Code]; ok {
			s.entries[i] = t.Entry()
		} else {
			s.index[t.Code] = len(s.entries)
			s.entries = append(s.entries, t.Entry())
		}
	}
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	s.persist.trigger()
	for _, fn := range subs {
		fn()
	}
}

// Entries returns a copy of the current snapshot.
func (s *SnapshotStore) Entries() []market.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Subscribe registers fn to run after every applied batch. Subscribers are
// invoked without the store lock held.
func (s *SnapshotStore) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Close flushes any pending debounced write.
func (s *SnapshotStore) Close() {
	s.persist.flush()
}

func (s *SnapshotStore) write() {
	s.cache.Write(cache.RecordMarket, s.Entries())
}
