package detect

import (
	"github.com/GoPolymarket/polymarket-trader/internal/aggregator"
	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

// LatencyConfig grounds the thresholds for the latency detector on
// original_source's crates/cli/src/commands/latency_monitor.rs defaults:
// min_spot_change_pct=0.2%, lookback_mins=5, cooldown_secs=5,
// max_entry_price=0.45.
type LatencyConfig struct {
	LookbackMs        int64
	MinSpotChangePct  float64
	MaxEntryPrice     float64
	MinEdge           float64
	KellyFractionMult float64
	ProbabilitySlope  float64
	SignalCooldownMs  int64
}

func DefaultLatencyConfig() LatencyConfig {
	return LatencyConfig{
		LookbackMs:        5 * 60 * 1000,
		MinSpotChangePct:  0.002,
		MaxEntryPrice:     0.45,
		MinEdge:           0.03,
		KellyFractionMult: 0.25,
		ProbabilitySlope:  5.0,
		SignalCooldownMs:  5_000,
	}
}

// LatencyDetector exploits the lag between a spot move and the CLOB
// catching up: it looks for a spot move since T-lookback while the
// market's own price is still stale (cheap) below MaxEntryPrice.
type LatencyDetector struct {
	cfg       LatencyConfig
	modelProb ModelProbability
	cooldowns *Cooldowns
}

func NewLatencyDetector(cfg LatencyConfig, modelProb ModelProbability) *LatencyDetector {
	if modelProb == nil {
		modelProb = DefaultModelProbability(cfg.ProbabilitySlope)
	}
	return &LatencyDetector{cfg: cfg, modelProb: modelProb, cooldowns: NewCooldowns()}
}

// Evaluate compares spot to spotLookback (the spot price observed
// lookback ago) against a still-cheap CLOB price.
func (d *LatencyDetector) Evaluate(
	coin string,
	nowMs, windowStart, windowEnd int64,
	spot, spotLookback money.Price,
	yesBook, noBook BookView,
) *DirectionalSignal {
	if !d.cooldowns.Allow(coin, windowStart, nowMs, d.cfg.SignalCooldownMs) {
		return nil
	}
	if spotLookback.IsZero() {
		return nil
	}

	changePct := spot.Sub(spotLookback).Div(spotLookback).Float64()
	absChange := changePct
	if absChange < 0 {
		absChange = -absChange
	}
	if absChange < d.cfg.MinSpotChangePct {
		return nil
	}

	direction := aggregator.Up
	book := yesBook
	if changePct < 0 {
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

	pStar := d.modelProb(absChange)
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
		Detector:         "latency",
	}
}
