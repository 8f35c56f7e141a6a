package aggregator

import (
	"context"
	"math"
)

// FundingRateSignal flags when the current funding rate is an outlier
// relative to its own recent history, by z-score. Grounded on
// original_source's crates/signals/src/generator/funding_rate.rs: Bessel-
// corrected sample standard deviation, zero-variance short-circuit.
type FundingRateSignal struct {
	zscoreThreshold float64
	weight          float64
	window          int
	history         []float64
}

// NewFundingRateSignal mirrors the original's default constructor
// new(2.0, 1.0, 100).
func NewFundingRateSignal(zscoreThreshold, weight float64, window int) *FundingRateSignal {
	if window <= 0 {
		window = 100
	}
	return &FundingRateSignal{zscoreThreshold: zscoreThreshold, weight: weight, window: window}
}

func DefaultFundingRateSignal() *FundingRateSignal {
	return NewFundingRateSignal(2.0, 1.0, 100)
}

// AddObservation appends a new funding rate reading.
func (s *FundingRateSignal) AddObservation(rate float64) {
	s.history = append(s.history, rate)
	if len(s.history) > s.window {
		s.history = s.history[len(s.history)-s.window:]
	}
}

// CurrentZscore returns (latest - mean) / stddev over retained history.
// Requires at least 2 observations; returns (0, true) if stddev is below
// 1e-12 rather than dividing by near-zero.
func (s *FundingRateSignal) CurrentZscore() (float64, bool) {
	n := len(s.history)
	if n < 2 {
		return 0, false
	}
	var sum float64
	for _, v := range s.history {
		sum += v
	}
	mean := sum / float64(n)

	var sumSq float64
	for _, v := range s.history {
		d := v - mean
		sumSq += d * d
	}
	variance := sumSq / float64(n-1)
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-12 { // guards against true zero variance, mirroring the original's f64::EPSILON check
		return 0, true
	}
	latest := s.history[n-1]
	return (latest - mean) / stdDev, true
}

func (s *FundingRateSignal) Name() string   { return "funding_rate" }
func (s *FundingRateSignal) Weight() float64 { return s.weight }

func (s *FundingRateSignal) Compute(ctx context.Context) (SignalValue, error) {
	z, ok := s.CurrentZscore()
	if !ok {
		return SignalValue{Direction: Neutral}, nil
	}
	abs := z
	if abs < 0 {
		abs = -abs
	}
	if abs < s.zscoreThreshold {
		return SignalValue{Direction: Neutral, Metadata: map[string]float64{"zscore": z}}, nil
	}

	// Positive funding (longs pay shorts) signals crowded-long unwind risk,
	// i.e. a downside lean; negative funding signals the opposite.
	dir := Down
	if z < 0 {
		dir = Up
	}
	strength := (abs - s.zscoreThreshold) / s.zscoreThreshold
	if strength > 1.0 {
		strength = 1.0
	}
	if strength < 0 {
		strength = 0
	}
	return SignalValue{
		Direction:  dir,
		Strength:   strength,
		Confidence: strength,
		Metadata:   map[string]float64{"zscore": z},
	}, nil
}
