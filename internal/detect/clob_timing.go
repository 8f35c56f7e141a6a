package detect

import (
	"github.com/GoPolymarket/polymarket-trader/internal/aggregator"
	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

// ClobTimingConfig follows the same control frame as DirectionalConfig but
// gates on CLOB displacement from 0.50 across an observation window
// instead of spot displacement from the reference price (spec.md §4.5:
// "CLOB displacement from 0.50 across an observation window").
type ClobTimingConfig struct {
	EntryWindowStartSecs int64
	EntryWindowEndSecs   int64
	MinDisplacement      float64
	MaxEntryPrice        float64
	MinEdge              float64
	KellyFractionMult    float64
	ProbabilitySlope     float64
	SignalCooldownMs     int64
}

func DefaultClobTimingConfig() ClobTimingConfig {
	return ClobTimingConfig{
		EntryWindowStartSecs: 10 * 60,
		EntryWindowEndSecs:   2 * 60,
		MinDisplacement:      0.05,
		MaxEntryPrice:        0.55,
		MinEdge:              0.03,
		KellyFractionMult:    0.25,
		ProbabilitySlope:     5.0,
		SignalCooldownMs:     30_000,
	}
}

// ClobTimingDetector fires when a market's own YES price has moved away
// from the 0.50 fair-coin midpoint by more than MinDisplacement, using
// that displacement directly as the model's directional signal rather
// than the underlying spot delta.
type ClobTimingDetector struct {
	cfg       ClobTimingConfig
	modelProb ModelProbability
	cooldowns *Cooldowns
}

func NewClobTimingDetector(cfg ClobTimingConfig, modelProb ModelProbability) *ClobTimingDetector {
	if modelProb == nil {
		modelProb = DefaultModelProbability(cfg.ProbabilitySlope)
	}
	return &ClobTimingDetector{cfg: cfg, modelProb: modelProb, cooldowns: NewCooldowns()}
}

// Evaluate reads the YES market's own mid price (yesMid, the CLOB's
// implied probability) and checks its displacement from 0.50.
func (d *ClobTimingDetector) Evaluate(
	coin string,
	nowMs, windowStart, windowEnd int64,
	yesMid money.Price,
	yesBook, noBook BookView,
) *DirectionalSignal {
	secsToEnd := (windowEnd - nowMs) / 1000
	if secsToEnd > d.cfg.EntryWindowStartSecs || secsToEnd < d.cfg.EntryWindowEndSecs {
		return nil
	}
	if !d.cooldowns.Allow(coin, windowStart, nowMs, d.cfg.SignalCooldownMs) {
		return nil
	}

	displacement := yesMid.Float64() - 0.5
	absDisp := displacement
	if absDisp < 0 {
		absDisp = -absDisp
	}
	if absDisp < d.cfg.MinDisplacement {
		return nil
	}

	direction := aggregator.Up
	book := yesBook
	if displacement < 0 {
		direction = aggregator.Down
		book = noBook
	}

	entryPrice, ok := book.BestAsk()
	if !ok {
		return nil
	}
	if entryPrice.Float64() > d.cfg.MaxEntryPrice {
		return nil
	}

	pStar := d.modelProb(absDisp)
	edge := pStar - entryPrice.Float64()
	if edge < d.cfg.MinEdge {
		return nil
	}

	entryF := entryPrice.Float64()
	if entryF <= 0 || entryF >= 1 {
		return nil
	}
	b := (1 - entryF) / entryF
	kelly := (b*pStar - (1 - pStar)) / b
	if kelly < 0 {
		kelly = 0
	}
	kelly *= d.cfg.KellyFractionMult

	d.cooldowns.Record(coin, windowStart, nowMs)

	return &DirectionalSignal{
		Coin:             coin,
		Direction:        direction,
		WindowStart:      windowStart,
		WindowEnd:        windowEnd,
		EntryPrice:       entryPrice,
		ModelProbability: pStar,
		Edge:             edge,
		KellyFraction:    kelly,
		DetectedAtMs:     nowMs,
		Detector:         "clob_timing",
	}
}
