package detect

import (
	"testing"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

func TestCrossMarketDetectorFindsOppositeDirectionOpportunity(t *testing.T) {
	d := NewCrossMarketDetector(DefaultCrossMarketConfig())
	eth := CoinMarketSnapshot{Coin: "ETH", UpPrice: money.NewFromFloat(0.05), DownPrice: money.NewFromFloat(0.95), UpTokenID: "eth-up", DownTokenID: "eth-down"}
	btc := CoinMarketSnapshot{Coin: "BTC", UpPrice: money.NewFromFloat(0.91), DownPrice: money.NewFromFloat(0.09), UpTokenID: "btc-up", DownTokenID: "btc-down"}

	opps := d.Check([]CoinMarketSnapshot{eth, btc}, 1000)
	if len(opps) == 0 {
		t.Fatal("expected at least one opportunity")
	}
	found := false
	for _, o := range opps {
		if o.Combination == Coin1UpCoin2Down && o.TotalCost.Float64() < 0.95 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a Coin1UpCoin2Down opportunity under max_total_cost")
	}
}

func TestCrossMarketDetectorCostAboveThresholdSkips(t *testing.T) {
	d := NewCrossMarketDetector(DefaultCrossMarketConfig())
	a := CoinMarketSnapshot{Coin: "BTC", UpPrice: money.NewFromFloat(0.6), DownPrice: money.NewFromFloat(0.4)}
	b := CoinMarketSnapshot{Coin: "ETH", UpPrice: money.NewFromFloat(0.6), DownPrice: money.NewFromFloat(0.4)}
	opps := d.Check([]CoinMarketSnapshot{a, b}, 1000)
	for _, o := range opps {
		if o.TotalCost.Float64() > 0.95 {
			t.Fatalf("opportunity above max_total_cost leaked through: %+v", o)
		}
	}
}

func TestCrossMarketDetectorCooldownBlocksRefire(t *testing.T) {
	d := NewCrossMarketDetector(DefaultCrossMarketConfig())
	eth := CoinMarketSnapshot{Coin: "ETH", UpPrice: money.NewFromFloat(0.05), DownPrice: money.NewFromFloat(0.95)}
	btc := CoinMarketSnapshot{Coin: "BTC", UpPrice: money.NewFromFloat(0.91), DownPrice: money.NewFromFloat(0.09)}

	first := d.Check([]CoinMarketSnapshot{eth, btc}, 1000)
	second := d.Check([]CoinMarketSnapshot{eth, btc}, 1500)
	if len(first) == 0 {
		t.Fatal("expected first scan to find opportunities")
	}
	if len(second) != 0 {
		t.Fatal("expected cooldown to suppress the immediate re-scan")
	}
}

func TestKalshiSpreadDetectorFindsWideGap(t *testing.T) {
	d := NewKalshiSpreadDetector(DefaultKalshiSpreadConfig())
	opp := d.Evaluate("BTC", 0, 1000, money.NewFromFloat(0.60),
		KalshiQuote{Coin: "BTC", YesBid: money.NewFromFloat(0.50), YesAsk: money.NewFromFloat(0.52)})
	if opp == nil {
		t.Fatal("expected an opportunity for a wide cross-venue spread")
	}
	if opp.BuyVenue != "kalshi" {
		t.Fatalf("want buy kalshi (cheaper), got %s", opp.BuyVenue)
	}
}

func TestKalshiSpreadDetectorNarrowGapSkips(t *testing.T) {
	d := NewKalshiSpreadDetector(DefaultKalshiSpreadConfig())
	opp := d.Evaluate("BTC", 0, 1000, money.NewFromFloat(0.50),
		KalshiQuote{Coin: "BTC", YesBid: money.NewFromFloat(0.49), YesAsk: money.NewFromFloat(0.51)})
	if opp != nil {
		t.Fatal("expected nil for a narrow spread")
	}
}
