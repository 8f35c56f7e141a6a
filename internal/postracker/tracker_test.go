package postracker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracker.json")
	p := NewPersistence(path)

	tr := NewTracker(900_000)
	tr.AddPosition(true, money.NewFromFloat(10), money.NewFromFloat(5))

	if err := p.Save(tr); err != nil {
		t.Fatal(err)
	}

	loaded, archived, err := p.Load(900_000)
	if err != nil {
		t.Fatal(err)
	}
	if archived != nil {
		t.Fatal("expected no archived tracker on matching window")
	}
	if !loaded.TotalCost.Equal(money.NewFromFloat(5)) {
		t.Fatalf("want total cost 5, got %s", loaded.TotalCost)
	}
	if loaded.YesPosition == nil || !loaded.YesPosition.Quantity.Equal(money.NewFromFloat(10)) {
		t.Fatal("expected yes position quantity 10")
	}
}

func TestLoadMissingFileReturnsFresh(t *testing.T) {
	dir := t.TempDir()
	p := NewPersistence(filepath.Join(dir, "missing.json"))

	tr, archived, err := p.Load(1_800_000)
	if err != nil {
		t.Fatal(err)
	}
	if archived != nil {
		t.Fatal("expected no archived tracker")
	}
	if tr.WindowStartMs != 1_800_000 || !tr.TotalCost.IsZero() {
		t.Fatal("expected a fresh tracker for the current window")
	}
}

func TestLoadCorruptFileReturnsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewPersistence(path)

	tr, _, err := p.Load(900_000)
	if err != nil {
		t.Fatal(err)
	}
	if !tr.TotalCost.IsZero() {
		t.Fatal("expected fresh tracker on parse failure")
	}
}

func TestLoadStaleWindowArchives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracker.json")
	p := NewPersistence(path)

	old := NewTracker(900_000)
	old.AddPosition(true, money.NewFromFloat(3), money.NewFromFloat(1.5))
	if err := p.Save(old); err != nil {
		t.Fatal(err)
	}

	fresh, archived, err := p.Load(1_800_000)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.WindowStartMs != 1_800_000 || !fresh.TotalCost.IsZero() {
		t.Fatal("expected a fresh tracker for the new window")
	}
	if archived == nil || archived.WindowStartMs != 900_000 {
		t.Fatal("expected the stale window to be archived")
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracker.json")
	p := NewPersistence(path)

	tr := NewTracker(0)
	if err := p.Save(tr); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("expected temp file to be renamed away")
	}
}
