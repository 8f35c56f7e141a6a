package aggregator

import (
	"context"
	"testing"
)

func TestClobVelocityRequiresMinDuration(t *testing.T) {
	s := NewClobVelocitySignal(DefaultClobVelocityConfig())
	s.Observe(0.6, 0)
	s.Observe(0.7, 500) // dt < 1.0s
	v, err := s.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v.Direction != Neutral {
		t.Fatalf("want Neutral for sub-second dt, got %v", v.Direction)
	}
}

func TestClobVelocityDetectsUpwardDisplacement(t *testing.T) {
	s := NewClobVelocitySignal(DefaultClobVelocityConfig())
	s.Observe(0.50, 0)
	s.Observe(0.60, 10_000)
	v, err := s.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v.Direction != Up {
		t.Fatalf("want Up, got %v", v.Direction)
	}
}

func TestClobVelocityBelowMinDisplacementNeutral(t *testing.T) {
	s := NewClobVelocitySignal(DefaultClobVelocityConfig())
	s.Observe(0.500, 0)
	s.Observe(0.505, 5_000)
	v, _ := s.Compute(context.Background())
	if v.Direction != Neutral {
		t.Fatalf("want Neutral below min displacement, got %v", v.Direction)
	}
}

func TestOrderBookImbalanceAboveThreshold(t *testing.T) {
	s := DefaultOrderBookImbalanceSignal()
	s.AddObservation(0.5)
	v, err := s.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v.Direction != Up {
		t.Fatalf("want Up, got %v", v.Direction)
	}
}

func TestOrderBookImbalanceBelowThresholdNeutral(t *testing.T) {
	s := DefaultOrderBookImbalanceSignal()
	s.AddObservation(0.1)
	v, _ := s.Compute(context.Background())
	if v.Direction != Neutral {
		t.Fatalf("want Neutral, got %v", v.Direction)
	}
}

func TestOrderBookImbalanceWindowEviction(t *testing.T) {
	s := NewOrderBookImbalanceSignal(0.3, 1.0, 2)
	s.AddObservation(1.0)
	s.AddObservation(1.0)
	s.AddObservation(-1.0) // should evict the first 1.0
	if got := s.CurrentImbalance(); got != 0.0 {
		t.Fatalf("want mean(1.0,-1.0)=0.0 after eviction, got %v", got)
	}
}

func TestFundingRateInsufficientHistoryNeutral(t *testing.T) {
	s := DefaultFundingRateSignal()
	s.AddObservation(0.001)
	v, err := s.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v.Direction != Neutral {
		t.Fatalf("want Neutral with <2 observations, got %v", v.Direction)
	}
}

func TestFundingRateZeroVarianceNeutral(t *testing.T) {
	s := DefaultFundingRateSignal()
	s.AddObservation(0.001)
	s.AddObservation(0.001)
	s.AddObservation(0.001)
	v, _ := s.Compute(context.Background())
	if v.Direction != Neutral {
		t.Fatalf("want Neutral with zero variance, got %v", v.Direction)
	}
}

func TestFundingRateOutlierIsContrarian(t *testing.T) {
	s := DefaultFundingRateSignal()
	for i := 0; i < 20; i++ {
		s.AddObservation(0.0001)
	}
	s.AddObservation(0.05) // sharp positive spike -> contrarian Down
	v, err := s.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v.Direction != Down {
		t.Fatalf("want Down (contrarian to positive funding spike), got %v", v.Direction)
	}
}

func TestLiquidationCascadeLongSideIsBearish(t *testing.T) {
	s := NewLiquidationCascadeSignal(DefaultLiquidationCascadeConfig())
	s.Observe(LiquidationEvent{TimestampMs: 0, Side: Up, NotionalUSD: 2_000_000})
	s.Observe(LiquidationEvent{TimestampMs: 1000, Side: Down, NotionalUSD: 100_000})
	v, err := s.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v.Direction != Down {
		t.Fatalf("want Down (long cascade is bearish continuation), got %v", v.Direction)
	}
}

func TestLiquidationCascadeBelowThresholdNeutral(t *testing.T) {
	s := NewLiquidationCascadeSignal(DefaultLiquidationCascadeConfig())
	s.Observe(LiquidationEvent{TimestampMs: 0, Side: Up, NotionalUSD: 10_000})
	v, _ := s.Compute(context.Background())
	if v.Direction != Neutral {
		t.Fatalf("want Neutral below notional threshold, got %v", v.Direction)
	}
}

func TestLiquidationCascadeWindowEviction(t *testing.T) {
	s := NewLiquidationCascadeSignal(DefaultLiquidationCascadeConfig())
	s.Observe(LiquidationEvent{TimestampMs: 0, Side: Up, NotionalUSD: 5_000_000})
	s.Observe(LiquidationEvent{TimestampMs: 6 * 60 * 1000, Side: Down, NotionalUSD: 1}) // 6 min later, evicts first
	v, _ := s.Compute(context.Background())
	if v.Direction != Neutral {
		t.Fatalf("want Neutral after old event evicted, got %v", v.Direction)
	}
}

func TestNewsSentimentPositiveLean(t *testing.T) {
	s := DefaultNewsSentimentSignal()
	s.Observe(Up, 1.0)
	s.Observe(Up, 1.0)
	s.Observe(Down, 1.0)
	v, err := s.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v.Direction != Up {
		t.Fatalf("want Up, got %v", v.Direction)
	}
}

func TestNewsSentimentNoObservationsNeutral(t *testing.T) {
	s := DefaultNewsSentimentSignal()
	v, _ := s.Compute(context.Background())
	if v.Direction != Neutral {
		t.Fatalf("want Neutral, got %v", v.Direction)
	}
}

func TestNewsSentimentBalancedIsNeutral(t *testing.T) {
	s := DefaultNewsSentimentSignal()
	s.Observe(Up, 1.0)
	s.Observe(Down, 1.0)
	v, _ := s.Compute(context.Background())
	if v.Direction != Neutral {
		t.Fatalf("want Neutral for balanced sentiment, got %v", v.Direction)
	}
}
