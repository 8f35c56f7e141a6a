package rollbuf

import (
	"testing"
	"time"
)

func TestEmptyBufferReportsEmpty(t *testing.T) {
	b := New(time.Minute)
	if !b.IsEmpty() {
		t.Fatal("expected empty buffer")
	}
	if _, ok := b.CurrentValue(); ok {
		t.Fatal("expected no current value")
	}
	if _, ok := b.ChangeOver(time.Second); ok {
		t.Fatal("expected no change on empty buffer")
	}
}

func TestUpdateEvictsOldestFirst(t *testing.T) {
	b := New(10 * time.Second)
	base := int64(1_000_000)
	b.Update(1.0, base)
	b.Update(2.0, base+5_000)
	b.Update(3.0, base+11_000) // evicts the first point (11s - 0s > 10s window)

	pts := b.Points()
	if len(pts) != 2 {
		t.Fatalf("want 2 points after eviction, got %d", len(pts))
	}
	if pts[0].Value != 2.0 {
		t.Fatalf("want oldest remaining point to be 2.0, got %v", pts[0].Value)
	}
}

func TestCurrentValueIsLockFreeLatest(t *testing.T) {
	b := New(time.Minute)
	b.Update(5.0, 1000)
	b.Update(7.0, 2000)
	v, ok := b.CurrentValue()
	if !ok || v != 7.0 {
		t.Fatalf("want latest value 7.0, got %v ok=%v", v, ok)
	}
}

func TestChangeOverInsufficientDataReturnsFalse(t *testing.T) {
	b := New(time.Minute)
	b.Update(1.0, 1000)
	if _, ok := b.ChangeOver(time.Second); ok {
		t.Fatal("expected false with only one point")
	}
}

func TestChangeOverComputesPercent(t *testing.T) {
	b := New(time.Minute)
	b.Update(100.0, 0)
	b.Update(110.0, 5_000)
	pct, ok := b.ChangeOver(10 * time.Second)
	if !ok {
		t.Fatal("expected a change value")
	}
	if pct < 0.0999 || pct > 0.1001 {
		t.Fatalf("want ~0.10 change, got %v", pct)
	}
}

func TestLenTracksRetainedPoints(t *testing.T) {
	b := New(time.Minute)
	if b.Len() != 0 {
		t.Fatal("want 0 len on empty buffer")
	}
	b.Update(1.0, 0)
	b.Update(2.0, 1000)
	if b.Len() != 2 {
		t.Fatalf("want 2, got %d", b.Len())
	}
}
