package executor

import "github.com/GoPolymarket/polymarket-trader/internal/money"

// Config gathers the gate thresholds and sizing parameters from
// spec.md §4.8.
type Config struct {
	MaxTradesPerWindow   int
	MaxPositionPerWindow money.Price

	FixedBetSize money.Price // zero means "use Kelly sizing instead"
	MinBetSize   money.Price
	MaxBetSize   money.Price

	// MaxEntryPrice and MinEdge are re-checked at execution time, since a
	// signal may sit on the bounded channel for a moment before the
	// executor gets to it and the book can have moved since the detector
	// evaluated these same gates.
	MaxEntryPrice money.Price
	MinEdge       float64

	BuySlippage float64
	MaxRetries  int

	LotSize money.Price
}

func DefaultConfig() Config {
	return Config{
		MaxTradesPerWindow:   1,
		MaxPositionPerWindow: money.NewFromFloat(50),
		MinBetSize:           money.NewFromFloat(1),
		MaxBetSize:           money.NewFromFloat(50),
		MaxEntryPrice:        money.NewFromFloat(0.55),
		MinEdge:              0.03,
		BuySlippage:          0.01,
		MaxRetries:           2,
		LotSize:              money.NewFromFloat(0.01),
	}
}
