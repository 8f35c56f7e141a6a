package detect

import (
	"testing"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

func TestKalshiSpreadDetectorBelowMinSpreadSkips(t *testing.T) {
	d := NewKalshiSpreadDetector(DefaultKalshiSpreadConfig())
	// Kalshi mid (0.50+0.52)/2=0.51 vs Polymarket 0.52 ask: 0.01 spread,
	// below the default 0.03 MinSpread.
	kalshi := KalshiQuote{Coin: "BTC", YesBid: money.NewFromFloat(0.50), YesAsk: money.NewFromFloat(0.52), TimestampMs: 0}
	opp := d.Evaluate("BTC", 0, 0, money.NewFromFloat(0.52), kalshi)
	if opp != nil {
		t.Fatal("expected nil below MinSpread")
	}
}

func TestKalshiSpreadDetectorEmitsWhenPolymarketCheaper(t *testing.T) {
	d := NewKalshiSpreadDetector(DefaultKalshiSpreadConfig())
	// Kalshi mid (0.55+0.57)/2=0.56, Polymarket ask 0.45: polymarket is
	// cheaper, spread 0.11 > 0.03 MinSpread.
	kalshi := KalshiQuote{Coin: "BTC", YesBid: money.NewFromFloat(0.55), YesAsk: money.NewFromFloat(0.57), TimestampMs: 0}
	opp := d.Evaluate("BTC", 0, 0, money.NewFromFloat(0.45), kalshi)
	if opp == nil {
		t.Fatal("expected an opportunity")
	}
	if opp.BuyVenue != "polymarket" {
		t.Fatalf("want buy venue polymarket, got %s", opp.BuyVenue)
	}
	if diff := opp.Spread - 0.11; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("want spread 0.11, got %v", opp.Spread)
	}
}

func TestKalshiSpreadDetectorEmitsWhenKalshiCheaper(t *testing.T) {
	d := NewKalshiSpreadDetector(DefaultKalshiSpreadConfig())
	// Kalshi mid (0.30+0.32)/2=0.31, Polymarket ask 0.50: kalshi is cheaper.
	kalshi := KalshiQuote{Coin: "BTC", YesBid: money.NewFromFloat(0.30), YesAsk: money.NewFromFloat(0.32), TimestampMs: 0}
	opp := d.Evaluate("BTC", 0, 0, money.NewFromFloat(0.50), kalshi)
	if opp == nil {
		t.Fatal("expected an opportunity")
	}
	if opp.BuyVenue != "kalshi" {
		t.Fatalf("want buy venue kalshi, got %s", opp.BuyVenue)
	}
}

func TestKalshiSpreadDetectorCooldownBlocksRefire(t *testing.T) {
	d := NewKalshiSpreadDetector(DefaultKalshiSpreadConfig())
	kalshi := KalshiQuote{Coin: "BTC", YesBid: money.NewFromFloat(0.55), YesAsk: money.NewFromFloat(0.57), TimestampMs: 0}

	first := d.Evaluate("BTC", 0, 0, money.NewFromFloat(0.45), kalshi)
	if first == nil {
		t.Fatal("expected first opportunity")
	}
	second := d.Evaluate("BTC", 0, 1000, money.NewFromFloat(0.45), kalshi)
	if second != nil {
		t.Fatal("expected cooldown to block immediate re-fire")
	}
}

func TestKalshiSpreadDetectorPolymarketPriceRecorded(t *testing.T) {
	d := NewKalshiSpreadDetector(DefaultKalshiSpreadConfig())
	kalshi := KalshiQuote{Coin: "ETH", YesBid: money.NewFromFloat(0.20), YesAsk: money.NewFromFloat(0.22), TimestampMs: 0}
	opp := d.Evaluate("ETH", 0, 0, money.NewFromFloat(0.40), kalshi)
	if opp == nil {
		t.Fatal("expected an opportunity")
	}
	if opp.PolymarketPrice.Float64() != 0.40 {
		t.Fatalf("want polymarket price 0.40, got %v", opp.PolymarketPrice.Float64())
	}
	if opp.KalshiPrice.Float64() != 0.21 {
		t.Fatalf("want kalshi mid 0.21, got %v", opp.KalshiPrice.Float64())
	}
}
