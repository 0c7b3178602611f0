package store

import (
	"errors"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"sarraf/internal/cache"
	"sarraf/internal/portfolio"
)

var (
	ErrInvalidAmount = errors.New("amount must be a finite number greater than zero")
	ErrEmptyCode     = errors.New("asset code required")
)

// removeEpsilon floors a remove to full deletion: a residual amount at or
// below this is floating-point noise, not a real position.
var removeEpsilon = decimal.New(1, -6) // 1e-6

// HoldingsStore is the sole writer of the user's holdings list. Mutations are
// rare and must not be lost, so every one persists synchronously, unlike the
// debounced price snapshots.
type HoldingsStore struct {
	mu   sync.Mutex
	list []portfolio.Holding
	subs []func()

	cache *cache.Store
	log   *slog.Logger
}

func NewHoldingsStore(c *cache.Store, logger *slog.Logger) *HoldingsStore {
	s := &HoldingsStore{cache: c, log: logger}
	var cached []portfolio.Holding
	if c.Read(cache.RecordPortfolio, &cached) {
		s.list = cached
	}
	return s
}

// Add increases the holding for code by amount, appending a new entry for an
// unseen code. Non-finite or non-positive amounts are rejected.
func (s *HoldingsStore) Add(code string, amount float64) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrEmptyCode
	}
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	amt := decimal.NewFromFloat(amount)

	s.mu.Lock()
	if i := s.find(code); i != -1 {
		s.list[i].Amount = s.list[i].Amount.Add(amt)
	} else {
		s.list = append(s.list, portfolio.Holding{Code: code, Amount: amt})
	}
	s.commit()
	return nil
}

// Remove decreases the holding for code by amount. An absent code is a
// no-op. A result within 1e-6 of zero deletes the entry entirely.
func (s *HoldingsStore) Remove(code string, amount float64) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrEmptyCode
	}
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	amt := decimal.NewFromFloat(amount)

	s.mu.Lock()
	i := s.find(code)
	if i == -1 {
		s.mu.Unlock()
		return nil
	}
	rest := s.list[i].Amount.Sub(amt)
	if rest.Cmp(removeEpsilon) <= 0 {
		s.list = slices.Delete(s.list, i, i+1)
	} else {
		s.list[i].Amount = rest
	}
	s.commit()
	return nil
}

// Holdings returns a copy of the current list.
func (s *HoldingsStore) Holdings() []portfolio.Holding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.list)
}

func (s *HoldingsStore) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// commit persists the list and notifies subscribers. Called with the lock
// held; releases it.
func (s *HoldingsStore) commit() {
	list := slices.Clone(s.list)
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	s.cache.Write(cache.RecordPortfolio, list)
	for _, fn := range subs {
		fn()
	}
}

func (s *HoldingsStore) find(code string) int {
	return slices.IndexFunc(s.list, func(h portfolio.Holding) bool { return h.Code == code })
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
