package cache

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStore(dir, logger), dir
}

func TestRoundTrip(t *testing.T) {
	s, _ := testStore(t)
	in := map[string]string{"hello": "world"}
	s.Write(RecordPortfolio, in)

	var out map[string]string
	if !s.Read(RecordPortfolio, &out) {
		t.Fatal("expected cached value")
	}
	if out["hello"] != "world" {
		t.Fatalf("round trip lost data: %v", out)
	}
}

func TestMissingRecord(t *testing.T) {
	s, _ := testStore(t)
	var out []string
	if s.Read(RecordMarket, &out) {
		t.Fatal("missing record must read as absent")
	}
}

func TestCorruptRecord(t *testing.T) {
	s, dir := testStore(t)
	if err := os.WriteFile(filepath.Join(dir, RecordMarket+".json"), []byte(`{"version":1,"data":[`), 0o600); err != nil {
		t.Fatal(err)
	}
	var out []string
	if s.Read(RecordMarket, &out) {
		t.Fatal("corrupt JSON must read as absent, not raise")
	}
}

func TestVersionMismatch(t *testing.T) {
	s, dir := testStore(t)
	if err := os.WriteFile(filepath.Join(dir, RecordTime+".json"), []byte(`{"version":99,"data":"12:00"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	var out string
	if s.Read(RecordTime, &out) {
		t.Fatal("unknown schema version must read as absent")
	}
}
