package store

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"sarraf/internal/cache"
	"sarraf/internal/portfolio"
)

func TestAddMergesByKey(t *testing.T) {
	c, _ := testCache(t)
	s := NewHoldingsStore(c, discard())

	if err := s.Add("A", 5); err != nil {
		t.Fatal(err)
	}
	if err := s.Add("A", 3); err != nil {
		t.Fatal(err)
	}
	got := s.Holdings()
	if len(got) != 1 {
		t.Fatalf("holdings got %d want 1", len(got))
	}
	if got[0].Code != "A" || got[0].Amount.String() != "8" {
		t.Fatalf("merge wrong: %+v", got[0])
	}
}

func TestAddRejectsInvalidAmount(t *testing.T) {
	c, _ := testCache(t)
	s := NewHoldingsStore(c, discard())

	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := s.Add("A", v); err == nil {
			t.Fatalf("amount %v must be rejected", v)
		}
	}
	if err := s.Add("", 1); err == nil {
		t.Fatal("empty code must be rejected")
	}
	if len(s.Holdings()) != 0 {
		t.Fatal("rejected adds must not mutate")
	}
}

func TestRemoveFloorsToDeletion(t *testing.T) {
	c, _ := testCache(t)
	s := NewHoldingsStore(c, discard())

	_ = s.Add("A", 5)
	if err := s.Remove("A", 5); err != nil {
		t.Fatal(err)
	}
	if got := s.Holdings(); len(got) != 0 {
		t.Fatalf("exact removal must delete: %+v", got)
	}

	// residue within epsilon of zero also deletes
	_ = s.Add("A", 5)
	if err := s.Remove("A", 4.9999995); err != nil {
		t.Fatal(err)
	}
	if got := s.Holdings(); len(got) != 0 {
		t.Fatalf("epsilon residue must delete: %+v", got)
	}
}

func TestRemovePartial(t *testing.T) {
	c, _ := testCache(t)
	s := NewHoldingsStore(c, discard())

	_ = s.Add("A", 5)
	if err := s.Remove("A", 2); err != nil {
		t.Fatal(err)
	}
	got := s.Holdings()
	if len(got) != 1 || got[0].Amount.String() != "3" {
		t.Fatalf("partial removal wrong: %+v", got)
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	c, _ := testCache(t)
	s := NewHoldingsStore(c, discard())

	if err := s.Remove("A", 1); err != nil {
		t.Fatal(err)
	}
	if len(s.Holdings()) != 0 {
		t.Fatal("remove on absent code must be a no-op")
	}
}

func TestMutationPersistsImmediately(t *testing.T) {
	c, _ := testCache(t)
	s := NewHoldingsStore(c, discard())

	_ = s.Add("Gram Altın", 10)

	// no debounce: the record is readable right away
	var cached []portfolio.Holding
	if !c.Read(cache.RecordPortfolio, &cached) {
		t.Fatal("holdings not persisted synchronously")
	}
	if len(cached) != 1 || cached[0].Code != "Gram Altın" {
		t.Fatalf("persisted list wrong: %+v", cached)
	}
}

func TestBadPersistedJSONStartsEmpty(t *testing.T) {
	c, dir := testCache(t)
	if err := os.WriteFile(filepath.Join(dir, cache.RecordPortfolio+".json"), []byte(`{"version":1,"data":{{`), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewHoldingsStore(c, discard())
	if got := s.Holdings(); len(got) != 0 {
		t.Fatalf("bad cache must start empty, got %+v", got)
	}
}

func TestMutationNotifiesSubscribers(t *testing.T) {
	c, _ := testCache(t)
	s := NewHoldingsStore(c, discard())

	calls := 0
	s.Subscribe(func() { calls++ })

	_ = s.Add("A", 1)
	_ = s.Remove("A", 1)
	_ = s.Remove("A", 1) // absent: no-op, no notification

	if calls != 2 {
		t.Fatalf("subscriber calls got %d want 2", calls)
	}
}
