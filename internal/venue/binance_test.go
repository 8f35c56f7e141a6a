package venue

import (
	"testing"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

func TestBinanceHandleMessageAggTrade(t *testing.T) {
	var got Trade
	s := NewBinanceSession(DefaultBinanceConfig(), []string{"BTCUSDT"}, func(tr Trade) { got = tr }, nil, nil)

	raw := []byte(`{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","p":"67123.45","T":1700000000000}}`)
	s.handleMessage(raw)

	if got.Symbol != "BTCUSDT" {
		t.Fatalf("expected symbol BTCUSDT, got %s", got.Symbol)
	}
	if got.Price.Float64() != 67123.45 {
		t.Fatalf("expected price 67123.45, got %v", got.Price.Float64())
	}
	if got.TradeTimeMs != 1700000000000 {
		t.Fatalf("expected trade time 1700000000000, got %d", got.TradeTimeMs)
	}
}

func TestBinanceHandleMessageForceOrder(t *testing.T) {
	var got Liquidation
	s := NewBinanceSession(DefaultBinanceConfig(), []string{"ETHUSDT"}, nil, func(l Liquidation) { got = l }, nil)

	raw := []byte(`{"stream":"ethusdt@forceOrder","data":{"e":"forceOrder","o":{"s":"ETHUSDT","S":"SELL","q":"12.5","p":"3200.10","T":1700000001000}}}`)
	s.handleMessage(raw)

	if got.Symbol != "ETHUSDT" || got.Side != "SELL" {
		t.Fatalf("expected ETHUSDT SELL, got %s %s", got.Symbol, got.Side)
	}
	if got.Qty.Float64() != 12.5 {
		t.Fatalf("expected qty 12.5, got %v", got.Qty.Float64())
	}
	if got.Price.Float64() != 3200.10 {
		t.Fatalf("expected price 3200.10, got %v", got.Price.Float64())
	}
}

func TestBinanceHandleMessageIgnoresUnknownStream(t *testing.T) {
	called := false
	s := NewBinanceSession(DefaultBinanceConfig(), []string{"BTCUSDT"}, func(Trade) { called = true }, func(Liquidation) { called = true }, nil)

	s.handleMessage([]byte(`{"stream":"btcusdt@markPrice","data":{}}`))
	if called {
		t.Fatal("expected unknown stream to be ignored")
	}
}

func TestBinanceHandleMessageMalformedJSONIgnored(t *testing.T) {
	s := NewBinanceSession(DefaultBinanceConfig(), nil, nil, nil, nil)
	s.handleMessage([]byte(`not json`))
	s.handleMessage([]byte(`{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","p":"not-a-number","T":1}}`))
}

func TestBinanceStreamURLCombinesSymbols(t *testing.T) {
	s := NewBinanceSession(DefaultBinanceConfig(), []string{"BTCUSDT", "ETHUSDT"}, nil, nil, nil)
	got := s.streamURL()
	want := DefaultBinanceConfig().WSBaseURL + "?streams=btcusdt%40aggTrade%2Fbtcusdt%40forceOrder%2Fethusdt%40aggTrade%2Fethusdt%40forceOrder"
	if got != want {
		t.Fatalf("unexpected stream url:\n got  %s\n want %s", got, want)
	}
}

// AnnualizedFundingRate is spec.md §6.1's funding_rate·3·365 (8h funding
// events, 3 per day, 365 days).
func TestAnnualizedFundingRate(t *testing.T) {
	rate := money.NewFromFloat(0.0001)
	got := AnnualizedFundingRate(rate)
	want := 0.0001 * 3 * 365
	if diff := got.Float64() - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected annualized rate %v, got %v", want, got.Float64())
	}
}

func TestAnnualizedFundingRateNegative(t *testing.T) {
	rate := money.NewFromFloat(-0.00025)
	got := AnnualizedFundingRate(rate)
	want := -0.00025 * 3 * 365
	if diff := got.Float64() - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected annualized rate %v, got %v", want, got.Float64())
	}
}
