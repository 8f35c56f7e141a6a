package aggregator

import "context"

// LiquidationEvent is one forced-liquidation print from the Binance
// forceOrder stream (spec.md §4.7 "Binance liquidations").
type LiquidationEvent struct {
	TimestampMs int64
	Side        Direction // Up = long side forced out, Down = short side forced out
	NotionalUSD float64
}

// LiquidationCascadeConfig sets the detection thresholds from spec.md
// §4.3: "Long volume >= V and ratio > r => long cascade (bearish
// continuation); mirror for short."
type LiquidationCascadeConfig struct {
	WindowMs       int64
	MinNotionalUSD float64
	MinRatio       float64
	Weight_        float64
}

func DefaultLiquidationCascadeConfig() LiquidationCascadeConfig {
	return LiquidationCascadeConfig{
		WindowMs:       5 * 60 * 1000,
		MinNotionalUSD: 1_000_000,
		MinRatio:       2.0,
		Weight_:        1.0,
	}
}

// LiquidationCascadeSignal sums long-side and short-side forced-liquidation
// notional over a rolling 5-minute window and flags one-sided cascades.
// A long-side cascade (longs getting liquidated) reads as bearish
// continuation, and vice versa — the forced selling/buying tends to extend
// the move that triggered it.
type LiquidationCascadeSignal struct {
	cfg    LiquidationCascadeConfig
	events []LiquidationEvent
}

func NewLiquidationCascadeSignal(cfg LiquidationCascadeConfig) *LiquidationCascadeSignal {
	return &LiquidationCascadeSignal{cfg: cfg}
}

// Observe records a new liquidation event and drops anything outside the
// rolling window relative to its timestamp.
func (s *LiquidationCascadeSignal) Observe(ev LiquidationEvent) {
	s.events = append(s.events, ev)
	cutoff := ev.TimestampMs - s.cfg.WindowMs
	i := 0
	for i < len(s.events) && s.events[i].TimestampMs < cutoff {
		i++
	}
	if i > 0 {
		s.events = append([]LiquidationEvent(nil), s.events[i:]...)
	}
}

func (s *LiquidationCascadeSignal) Name() string   { return "liquidation_cascade" }
func (s *LiquidationCascadeSignal) Weight() float64 { return s.cfg.Weight_ }

func (s *LiquidationCascadeSignal) Compute(ctx context.Context) (SignalValue, error) {
	var longNotional, shortNotional float64
	var longCount, shortCount int
	for _, ev := range s.events {
		switch ev.Side {
		case Up:
			longNotional += ev.NotionalUSD
			longCount++
		case Down:
			shortNotional += ev.NotionalUSD
			shortCount++
		}
	}

	meta := map[string]float64{
		"long_notional":  longNotional,
		"short_notional": shortNotional,
		"long_count":     float64(longCount),
		"short_count":    float64(shortCount),
	}

	longRatio := ratio(longNotional, shortNotional)
	shortRatio := ratio(shortNotional, longNotional)

	switch {
	case longNotional >= s.cfg.MinNotionalUSD && longRatio > s.cfg.MinRatio:
		meta["ratio"] = longRatio
		return SignalValue{Direction: Down, Strength: clamp01(longRatio / (s.cfg.MinRatio * 2)), Confidence: clamp01(longRatio / (s.cfg.MinRatio * 2)), Metadata: meta}, nil
	case shortNotional >= s.cfg.MinNotionalUSD && shortRatio > s.cfg.MinRatio:
		meta["ratio"] = shortRatio
		return SignalValue{Direction: Up, Strength: clamp01(shortRatio / (s.cfg.MinRatio * 2)), Confidence: clamp01(shortRatio / (s.cfg.MinRatio * 2)), Metadata: meta}, nil
	default:
		return SignalValue{Direction: Neutral, Metadata: meta}, nil
	}
}

// ratio divides a by b. When b is zero it returns 0 if a is also zero and
// a itself otherwise, so a one-sided cascade with no opposing volume is
// scored by its own volume instead of dividing by zero.
func ratio(a, b float64) float64 {
	if b == 0 {
		if a == 0 {
			return 0
		}
		return a // treat "no opposing volume" as maximally lopsided, bounded by a itself
	}
	return a / b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
