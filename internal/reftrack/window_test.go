package reftrack

import (
	"testing"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

func TestWindowStartFloorsToQuantum(t *testing.T) {
	cases := []struct {
		ts, want int64
	}{
		{0, 0},
		{899_999, 0},
		{900_000, 900_000},
		{900_001, 900_000},
		{1_800_000, 1_800_000},
	}
	for _, c := range cases {
		if got := WindowStart(c.ts); got != c.want {
			t.Errorf("WindowStart(%d) = %d, want %d", c.ts, got, c.want)
		}
	}
}

func TestSetIfAbsentOnlySetsFirstObservation(t *testing.T) {
	rt := NewReferenceTracker(DefaultHistory)
	first := money.NewFromFloat(100.0)
	second := money.NewFromFloat(101.0)

	p, set := rt.SetIfAbsent(1000, first)
	if !set || !p.Equal(first) {
		t.Fatalf("expected first call to set reference, got set=%v p=%s", set, p)
	}

	p, set = rt.SetIfAbsent(2000, second)
	if set {
		t.Fatal("expected second call in same window to not set")
	}
	if !p.Equal(first) {
		t.Fatalf("expected reference to remain %s, got %s", first, p)
	}
}

func TestCurrentDeltaPctComputesFraction(t *testing.T) {
	rt := NewReferenceTracker(DefaultHistory)
	rt.SetIfAbsent(0, money.NewFromFloat(100.0))

	pct, ok := rt.CurrentDeltaPct(500, money.NewFromFloat(105.0))
	if !ok {
		t.Fatal("expected ok")
	}
	if pct < 0.0499 || pct > 0.0501 {
		t.Fatalf("want ~0.05, got %v", pct)
	}
}

func TestCurrentDeltaPctUnknownWindow(t *testing.T) {
	rt := NewReferenceTracker(DefaultHistory)
	if _, ok := rt.CurrentDeltaPct(QuantumMs*5, money.NewFromFloat(1)); ok {
		t.Fatal("expected no reference for untouched window")
	}
}

func TestHistoryEvictionBoundsWindows(t *testing.T) {
	rt := NewReferenceTracker(2)
	rt.SetIfAbsent(0, money.NewFromFloat(1))
	rt.SetIfAbsent(QuantumMs, money.NewFromFloat(2))
	rt.SetIfAbsent(QuantumMs*2, money.NewFromFloat(3))

	if rt.Len() != 2 {
		t.Fatalf("want 2 retained windows, got %d", rt.Len())
	}
	if _, ok := rt.ReferenceFor(0); ok {
		t.Fatal("expected oldest window to be evicted")
	}
	if _, ok := rt.ReferenceFor(QuantumMs * 2); !ok {
		t.Fatal("expected newest window retained")
	}
}
