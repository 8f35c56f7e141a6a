package detect

import (
	"testing"

	"github.com/GoPolymarket/polymarket-trader/internal/aggregator"
	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

func TestClobTimingDetectorOutsideEntryWindowSkips(t *testing.T) {
	d := NewClobTimingDetector(DefaultClobTimingConfig(), nil)
	windowEnd := int64(900_000)
	now := int64(0) // 900s to window end, beyond EntryWindowStartSecs (600s)
	sig := d.Evaluate("BTC", now, 0, windowEnd, money.NewFromFloat(0.60),
		fakeBook{ask: money.NewFromFloat(0.40), hasAsk: true}, fakeBook{ask: money.NewFromFloat(0.60), hasAsk: true})
	if sig != nil {
		t.Fatal("expected nil outside entry window")
	}
}

func TestClobTimingDetectorBelowMinDisplacementSkips(t *testing.T) {
	d := NewClobTimingDetector(DefaultClobTimingConfig(), nil)
	windowEnd := int64(900_000)
	now := windowEnd - 300_000 // within [120,600]
	// 0.52 is only 0.02 away from 0.50, below the default 0.05 MinDisplacement.
	sig := d.Evaluate("BTC", now, 0, windowEnd, money.NewFromFloat(0.52),
		fakeBook{ask: money.NewFromFloat(0.40), hasAsk: true}, fakeBook{ask: money.NewFromFloat(0.60), hasAsk: true})
	if sig != nil {
		t.Fatal("expected nil below MinDisplacement")
	}
}

func TestClobTimingDetectorEmitsOnQualifyingDisplacement(t *testing.T) {
	d := NewClobTimingDetector(DefaultClobTimingConfig(), nil)
	windowEnd := int64(900_000)
	now := windowEnd - 300_000
	// yesMid 0.60 is 0.10 above 0.50 -> Up, priced off the yes book's ask.
	sig := d.Evaluate("BTC", now, 0, windowEnd, money.NewFromFloat(0.60),
		fakeBook{ask: money.NewFromFloat(0.40), hasAsk: true}, fakeBook{ask: money.NewFromFloat(0.60), hasAsk: true})
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.Direction != aggregator.Up {
		t.Fatalf("want Up, got %v", sig.Direction)
	}
	if sig.Detector != "clob_timing" {
		t.Fatalf("want detector clob_timing, got %s", sig.Detector)
	}
}

func TestClobTimingDetectorNegativeDisplacementUsesNoBook(t *testing.T) {
	d := NewClobTimingDetector(DefaultClobTimingConfig(), nil)
	windowEnd := int64(900_000)
	now := windowEnd - 300_000
	// yesMid 0.40 is 0.10 below 0.50 -> Down, priced off the no book's ask.
	sig := d.Evaluate("BTC", now, 0, windowEnd, money.NewFromFloat(0.40),
		fakeBook{ask: money.NewFromFloat(0.60), hasAsk: true}, fakeBook{ask: money.NewFromFloat(0.40), hasAsk: true})
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.Direction != aggregator.Down {
		t.Fatalf("want Down, got %v", sig.Direction)
	}
	if sig.EntryPrice.Float64() != 0.40 {
		t.Fatalf("expected entry price from the no book (0.40), got %v", sig.EntryPrice.Float64())
	}
}

func TestClobTimingDetectorEntryPriceAboveMaxSkips(t *testing.T) {
	d := NewClobTimingDetector(DefaultClobTimingConfig(), nil)
	windowEnd := int64(900_000)
	now := windowEnd - 300_000
	sig := d.Evaluate("BTC", now, 0, windowEnd, money.NewFromFloat(0.65),
		fakeBook{ask: money.NewFromFloat(0.90), hasAsk: true}, fakeBook{ask: money.NewFromFloat(0.10), hasAsk: true})
	if sig != nil {
		t.Fatal("expected nil, entry price exceeds max_entry_price")
	}
}

func TestClobTimingDetectorMissingAskSkips(t *testing.T) {
	d := NewClobTimingDetector(DefaultClobTimingConfig(), nil)
	windowEnd := int64(900_000)
	now := windowEnd - 300_000
	sig := d.Evaluate("BTC", now, 0, windowEnd, money.NewFromFloat(0.60),
		fakeBook{hasAsk: false}, fakeBook{ask: money.NewFromFloat(0.60), hasAsk: true})
	if sig != nil {
		t.Fatal("expected nil when the priced book has no ask")
	}
}

func TestClobTimingDetectorCooldownBlocksRefire(t *testing.T) {
	d := NewClobTimingDetector(DefaultClobTimingConfig(), nil)
	windowEnd := int64(900_000)
	now := windowEnd - 300_000

	yesBook := fakeBook{ask: money.NewFromFloat(0.40), hasAsk: true}
	noBook := fakeBook{ask: money.NewFromFloat(0.60), hasAsk: true}

	first := d.Evaluate("BTC", now, 0, windowEnd, money.NewFromFloat(0.60), yesBook, noBook)
	if first == nil {
		t.Fatal("expected first signal")
	}
	second := d.Evaluate("BTC", now+1000, 0, windowEnd, money.NewFromFloat(0.60), yesBook, noBook)
	if second != nil {
		t.Fatal("expected cooldown to block immediate re-fire")
	}
}
