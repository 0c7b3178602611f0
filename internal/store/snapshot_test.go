package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sarraf/internal/cache"
	"sarraf/internal/market"
)

func testCache(t *testing.T) (*cache.Store, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return cache.NewStore(dir, logger), dir
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ticks(t *testing.T, raw string) []market.Tick {
	t.Helper()
	msg, ok := market.ParseMessage([]byte(raw))
	if !ok {
		t.Fatalf("bad fixture: %s", raw)
	}
	return msg.Ticks
}

func TestReconcileMergePreservesOrder(t *testing.T) {
	c, _ := testCache(t)
	s := NewSnapshotStore(c, 0, discard())

	s.Reconcile(ticks(t, `[
		{"symbol":"A","buy":"1","sell":"2"},
		{"symbol":"B","buy":"3","sell":"4"}
	]`))
	s.Reconcile(ticks(t, `[
		{"symbol":"A","buy":"10","sell":"20"},
		{"symbol":"C","buy":"5","sell":"6"}
	]`))

	got := s.Entries()
	if len(got) != 3 {
		t.Fatalf("entries got %d want 3", len(got))
	}
	if got[0].Code != "A" || got[1].Code != "B" || got[2].Code != "C" {
		t.Fatalf("order perturbed: %s %s %s", got[0].Code, got[1].Code, got[2].Code)
	}
	if got[0].Sell.String() != "20" {
		t.Fatalf("A not updated in place: sell=%s", got[0].Sell)
	}
	if got[1].Sell.String() != "4" {
		t.Fatalf("B touched by unrelated update: sell=%s", got[1].Sell)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	c, _ := testCache(t)
	s := NewSnapshotStore(c, 0, discard())

	batch := ticks(t, `[{"symbol":"A","buy":"1","sell":"2"},{"symbol":"B","buy":"3","sell":"4"}]`)
	s.Reconcile(batch)
	once := s.Entries()
	s.Reconcile(batch)
	twice := s.Entries()

	if len(once) != len(twice) {
		t.Fatalf("idempotency broken: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("entry %d differs: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestSnapshotSeedsFromCache(t *testing.T) {
	c, _ := testCache(t)
	s := NewSnapshotStore(c, 0, discard())
	s.Reconcile(ticks(t, `[{"symbol":"Gram Altın","buy":"4005","sell":"4010"}]`))

	// zero debounce persisted synchronously; a fresh store sees the snapshot
	s2 := NewSnapshotStore(c, 0, discard())
	got := s2.Entries()
	if len(got) != 1 || got[0].Code != "Gram Altın" {
		t.Fatalf("seed from cache failed: %+v", got)
	}
}

func TestSnapshotBadCacheStartsEmpty(t *testing.T) {
	c, dir := testCache(t)
	if err := os.WriteFile(filepath.Join(dir, cache.RecordMarket+".json"), []byte(`not json at all`), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewSnapshotStore(c, 0, discard())
	if got := s.Entries(); len(got) != 0 {
		t.Fatalf("bad cache must start empty, got %+v", got)
	}
}

func TestDebouncedPersistCoalesces(t *testing.T) {
	c, dir := testCache(t)
	s := NewSnapshotStore(c, 50*time.Millisecond, discard())

	s.Reconcile(ticks(t, `[{"symbol":"A","sell":"1"}]`))
	s.Reconcile(ticks(t, `[{"symbol":"A","sell":"2"}]`))

	path := filepath.Join(dir, cache.RecordMarket+".json")
	if _, err := os.Stat(path); err == nil {
		t.Fatal("persisted before debounce expired")
	}

	time.Sleep(300 * time.Millisecond)

	var cached []market.Entry
	if !c.Read(cache.RecordMarket, &cached) {
		t.Fatal("no record after debounce expiry")
	}
	if len(cached) != 1 || cached[0].Sell.String() != "2" {
		t.Fatalf("only the latest state should be written: %+v", cached)
	}
}

func TestCloseFlushesPendingWrite(t *testing.T) {
	c, _ := testCache(t)
	s := NewSnapshotStore(c, time.Hour, discard())
	s.Reconcile(ticks(t, `[{"symbol":"A","sell":"1"}]`))
	s.Close()

	var cached []market.Entry
	if !c.Read(cache.RecordMarket, &cached) || len(cached) != 1 {
		t.Fatalf("Close must flush the pending write: %+v", cached)
	}
}

func TestSubscribeNotifiedPerBatch(t *testing.T) {
	c, _ := testCache(t)
	s := NewSnapshotStore(c, 0, discard())

	calls := 0
	s.Subscribe(func() { calls++ })

	s.Reconcile(ticks(t, `[{"symbol":"A","sell":"1"}]`))
	s.Reconcile(ticks(t, `[{"symbol":"A","sell":"2"}]`))
	s.Reconcile(nil) // empty batch is a no-op

	if calls != 2 {
		t.Fatalf("subscriber calls got %d want 2", calls)
	}
}
