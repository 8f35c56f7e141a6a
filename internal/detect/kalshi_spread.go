package detect

import "github.com/GoPolymarket/polymarket-trader/internal/money"

// KalshiQuote is a same-underlying quote pulled from Kalshi's market data,
// fed by internal/kalshiclient. Grounded on sdibella-kalshi-btc15m's
// internal/kalshi client shape (best_yes_bid/best_yes_ask).
type KalshiQuote struct {
	Coin        string
	YesBid      money.Price
	YesAsk      money.Price
	TimestampMs int64
}

// KalshiSpreadConfig gates the cross-exchange spread detector named in
// spec.md §1's purpose paragraph ("cross-exchange arbitrage detection
// against Kalshi") — a same-underlying mispricing check distinct from the
// cross-coin correlation detector in crossmarket.go.
type KalshiSpreadConfig struct {
	MinSpread        float64
	SignalCooldownMs int64
}

func DefaultKalshiSpreadConfig() KalshiSpreadConfig {
	return KalshiSpreadConfig{MinSpread: 0.03, SignalCooldownMs: 5_000}
}

// KalshiSpreadOpportunity is a same-underlying YES-price gap between
// Polymarket and Kalshi wide enough to buy the cheaper venue's YES and
// sell (or buy NO on) the more expensive one.
type KalshiSpreadOpportunity struct {
	Coin            string
	PolymarketPrice money.Price
	KalshiPrice     money.Price
	Spread          float64
	BuyVenue        string // "polymarket" or "kalshi" — whichever YES side is cheaper
	DetectedAtMs    int64
}

// KalshiSpreadDetector compares Polymarket's YES ask to Kalshi's YES mid
// for the same coin/window and flags a wide enough gap.
type KalshiSpreadDetector struct {
	cfg       KalshiSpreadConfig
	cooldowns *Cooldowns
}

func NewKalshiSpreadDetector(cfg KalshiSpreadConfig) *KalshiSpreadDetector {
	return &KalshiSpreadDetector{cfg: cfg, cooldowns: NewCooldowns()}
}

func (d *KalshiSpreadDetector) Evaluate(coin string, windowStart, nowMs int64, polymarketYesAsk money.Price, kalshi KalshiQuote) *KalshiSpreadOpportunity {
	if !d.cooldowns.Allow(coin, windowStart, nowMs, d.cfg.SignalCooldownMs) {
		return nil
	}

	kalshiMid := kalshi.YesBid.Add(kalshi.YesAsk).Div(money.NewFromInt(2))
	spread := polymarketYesAsk.Sub(kalshiMid).Float64()
	absSpread := spread
	if absSpread < 0 {
		absSpread = -absSpread
	}
	if absSpread < d.cfg.MinSpread {
		return nil
	}

	buyVenue := "polymarket"
	if spread > 0 {
		buyVenue = "kalshi"
	}

	d.cooldowns.Record(coin, windowStart, nowMs)

	return &KalshiSpreadOpportunity{
		Coin:            coin,
		PolymarketPrice: polymarketYesAsk,
		KalshiPrice:     kalshiMid,
		Spread:          absSpread,
		BuyVenue:        buyVenue,
		DetectedAtMs:    nowMs,
	}
}
