package aggregator

import "context"

// OrderBookImbalanceSignal tracks a rolling mean of bid/ask depth imbalance
// readings in [-1,1]. Grounded on original_source's
// crates/signals/src/generator/orderbook_imbalance.rs: a fixed-size window
// of the most recent observations, mean-reverted threshold test.
type OrderBookImbalanceSignal struct {
	threshold float64
	weight    float64
	window    int
	history   []float64
}

// NewOrderBookImbalanceSignal mirrors the original's default constructor
// new(0.3, 1.0, 10).
func NewOrderBookImbalanceSignal(threshold, weight float64, window int) *OrderBookImbalanceSignal {
	if window <= 0 {
		window = 10
	}
	return &OrderBookImbalanceSignal{threshold: threshold, weight: weight, window: window}
}

func DefaultOrderBookImbalanceSignal() *OrderBookImbalanceSignal {
	return NewOrderBookImbalanceSignal(0.3, 1.0, 10)
}

// AddObservation appends a new imbalance reading, evicting the oldest once
// the window is full.
func (s *OrderBookImbalanceSignal) AddObservation(imbalance float64) {
	s.history = append(s.history, imbalance)
	if len(s.history) > s.window {
		s.history = s.history[len(s.history)-s.window:]
	}
}

// CurrentImbalance is the rolling mean of retained observations.
func (s *OrderBookImbalanceSignal) CurrentImbalance() float64 {
	if len(s.history) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s.history {
		sum += v
	}
	return sum / float64(len(s.history))
}

func (s *OrderBookImbalanceSignal) Name() string   { return "orderbook_imbalance" }
func (s *OrderBookImbalanceSignal) Weight() float64 { return s.weight }

func (s *OrderBookImbalanceSignal) Compute(ctx context.Context) (SignalValue, error) {
	if len(s.history) == 0 {
		return SignalValue{Direction: Neutral}, nil
	}
	imb := s.CurrentImbalance()
	abs := imb
	if abs < 0 {
		abs = -abs
	}
	if abs < s.threshold {
		return SignalValue{Direction: Neutral, Metadata: map[string]float64{"imbalance": imb}}, nil
	}

	dir := Up
	if imb < 0 {
		dir = Down
	}
	strength := abs
	if strength > 1.0 {
		strength = 1.0
	}
	return SignalValue{
		Direction:  dir,
		Strength:   strength,
		Confidence: strength,
		Metadata:   map[string]float64{"imbalance": imb},
	}, nil
}
