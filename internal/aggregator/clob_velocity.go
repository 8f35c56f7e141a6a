package aggregator

import (
	"context"

	"github.com/GoPolymarket/polymarket-trader/internal/rollbuf"
)

// ClobVelocityConfig mirrors original_source's ClobVelocityConfig defaults
// (crates/signals/src/generator/clob_velocity.rs).
type ClobVelocityConfig struct {
	LookbackSecs      float64
	ReferenceVelocity float64
	MinDisplacement   float64
	Weight_           float64
}

// DefaultClobVelocityConfig returns the original's literal defaults:
// lookback_secs=60.0, reference_velocity=0.2, min_displacement=0.015,
// weight=1.3.
func DefaultClobVelocityConfig() ClobVelocityConfig {
	return ClobVelocityConfig{
		LookbackSecs:      60.0,
		ReferenceVelocity: 0.2,
		MinDisplacement:   0.015,
		Weight_:           1.3,
	}
}

// ClobVelocitySignal tracks how fast the CLOB's implied probability is
// moving relative to the 0.5 midpoint, using a price history buffer fed
// from the live book's mid price.
type ClobVelocitySignal struct {
	cfg     ClobVelocityConfig
	history *rollbuf.Buffer
}

func NewClobVelocitySignal(cfg ClobVelocityConfig) *ClobVelocitySignal {
	return &ClobVelocitySignal{
		cfg:     cfg,
		history: rollbuf.New(0), // window bound is enforced by lookback below, not eviction
	}
}

// Observe feeds a new CLOB mid-price observation (0..1 implied probability).
func (s *ClobVelocitySignal) Observe(price float64, tsMs int64) {
	s.history.Update(price, tsMs)
}

func (s *ClobVelocitySignal) Name() string   { return "clob_velocity" }
func (s *ClobVelocitySignal) Weight() float64 { return s.cfg.Weight_ }

// Compute finds the earliest point within LookbackSecs of the latest
// observation and derives velocity = dp/dt. Requires dt_secs >= 1.0,
// matching the original's guard against division blowup on near-identical
// timestamps.
func (s *ClobVelocitySignal) Compute(ctx context.Context) (SignalValue, error) {
	pts := s.history.Points()
	if len(pts) < 2 {
		return SignalValue{Direction: Neutral}, nil
	}
	latest := pts[len(pts)-1]
	cutoffMs := latest.TimestampMs - int64(s.cfg.LookbackSecs*1000)

	var earliest = pts[0]
	for _, p := range pts {
		if p.TimestampMs >= cutoffMs {
			earliest = p
			break
		}
	}

	dtSecs := float64(latest.TimestampMs-earliest.TimestampMs) / 1000.0
	if dtSecs < 1.0 {
		return SignalValue{Direction: Neutral}, nil
	}

	dp := latest.Value - earliest.Value
	velocity := dp / dtSecs
	displacement := latest.Value - 0.5

	absDisplacement := displacement
	if absDisplacement < 0 {
		absDisplacement = -absDisplacement
	}
	if absDisplacement < s.cfg.MinDisplacement {
		return SignalValue{
			Direction: Neutral,
			Metadata:  map[string]float64{"velocity": velocity, "displacement": displacement},
		}, nil
	}

	velocityCentsPerSec := velocity
	if velocityCentsPerSec < 0 {
		velocityCentsPerSec = -velocityCentsPerSec
	}
	velocityCentsPerSec *= 100

	strength := velocityCentsPerSec / s.cfg.ReferenceVelocity
	if strength > 1.0 {
		strength = 1.0
	}

	agree := (velocity >= 0) == (displacement >= 0)
	var confidence float64
	if agree {
		confidence = strength * 0.8
	} else {
		confidence = strength * 0.3
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	dir := Up
	if displacement < 0 {
		dir = Down
	}

	return SignalValue{
		Direction:  dir,
		Strength:   strength,
		Confidence: confidence,
		Metadata:   map[string]float64{"velocity": velocity, "displacement": displacement},
	}, nil
}
