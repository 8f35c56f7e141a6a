package detect

import (
	"testing"

	"github.com/GoPolymarket/polymarket-trader/internal/aggregator"
	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

type fakeBook struct {
	ask   money.Price
	hasAsk bool
}

func (f fakeBook) BestAsk() (money.Price, bool) { return f.ask, f.hasAsk }

func TestDirectionalDetectorOutsideEntryWindowSkips(t *testing.T) {
	d := NewDirectionalDetector(DefaultDirectionalConfig(), nil)
	windowEnd := int64(900_000)
	now := int64(0) // 900s to window end, beyond EntryWindowStartSecs (600s)
	sig := d.Evaluate("BTC", now, 0, windowEnd, money.NewFromFloat(50100), money.NewFromFloat(50000),
		fakeBook{ask: money.NewFromFloat(0.52), hasAsk: true}, fakeBook{ask: money.NewFromFloat(0.48), hasAsk: true})
	if sig != nil {
		t.Fatal("expected nil outside entry window")
	}
}

func TestDirectionalDetectorEmitsOnQualifyingDelta(t *testing.T) {
	d := NewDirectionalDetector(DefaultDirectionalConfig(), nil)
	windowEnd := int64(900_000)
	now := windowEnd - 300_000 // 300s to end, within [120,600]
	sig := d.Evaluate("BTC", now, 0, windowEnd, money.NewFromFloat(50500), money.NewFromFloat(50000),
		fakeBook{ask: money.NewFromFloat(0.40), hasAsk: true}, fakeBook{ask: money.NewFromFloat(0.60), hasAsk: true})
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.Direction != aggregator.Up {
		t.Fatalf("want Up, got %v", sig.Direction)
	}
}

func TestDirectionalDetectorEntryPriceAboveMaxSkips(t *testing.T) {
	d := NewDirectionalDetector(DefaultDirectionalConfig(), nil)
	windowEnd := int64(900_000)
	now := windowEnd - 300_000
	sig := d.Evaluate("BTC", now, 0, windowEnd, money.NewFromFloat(50500), money.NewFromFloat(50000),
		fakeBook{ask: money.NewFromFloat(0.90), hasAsk: true}, fakeBook{ask: money.NewFromFloat(0.10), hasAsk: true})
	if sig != nil {
		t.Fatal("expected nil, entry price exceeds max_entry_price")
	}
}

func TestDirectionalDetectorCooldownBlocksRefire(t *testing.T) {
	d := NewDirectionalDetector(DefaultDirectionalConfig(), nil)
	windowEnd := int64(900_000)
	now := windowEnd - 300_000

	yesBook := fakeBook{ask: money.NewFromFloat(0.40), hasAsk: true}
	noBook := fakeBook{ask: money.NewFromFloat(0.60), hasAsk: true}

	first := d.Evaluate("BTC", now, 0, windowEnd, money.NewFromFloat(50500), money.NewFromFloat(50000), yesBook, noBook)
	if first == nil {
		t.Fatal("expected first signal")
	}
	second := d.Evaluate("BTC", now+1000, 0, windowEnd, money.NewFromFloat(50500), money.NewFromFloat(50000), yesBook, noBook)
	if second != nil {
		t.Fatal("expected cooldown to block immediate re-fire")
	}
}

func TestDefaultModelProbabilityClamped(t *testing.T) {
	f := DefaultModelProbability(5.0)
	if p := f(0); p != 0.5 {
		t.Fatalf("want 0.5 floor, got %v", p)
	}
	if p := f(10); p != 0.99 {
		t.Fatalf("want 0.99 ceiling, got %v", p)
	}
}
