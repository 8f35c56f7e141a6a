// Package executor turns a detector's signals into orders: the daily
// rollover/KPI bookkeeping here generalizes the teacher's
// internal/app/kpi_metrics.go (maker/taker spread-capture counters) into
// the directional-trading counters spec.md §7 names: opportunities seen,
// executed, settled, won/lost, and circuit-breaker trips.
package executor

import (
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	signalsSeenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "executor_signals_seen_total",
		Help: "Detector signals observed by the executor",
	})
	signalsExecutedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "executor_signals_executed_total",
		Help: "Detector signals that passed every gate and were placed",
	})
	gateBlocksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_gate_blocks_total",
		Help: "Signals rejected by each risk gate",
	}, []string{"gate"})
	settlementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_settlements_total",
		Help: "Settled trades by outcome",
	}, []string{"outcome"})
	circuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "executor_circuit_breaker_trips_total",
		Help: "Times the circuit breaker tripped",
	})
	realizedPnLTotalGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "executor_realized_pnl_total",
		Help: "Cumulative realized PnL across all settled trades",
	})
)

func init() {
	prometheus.MustRegister(signalsSeenTotal, signalsExecutedTotal, gateBlocksTotal,
		settlementsTotal, circuitBreakerTripsTotal, realizedPnLTotalGauge)
}

type Stats struct {
	mu sync.Mutex

	dayStartUTC time.Time

	signalsSeenDaily     int
	signalsExecutedDaily int
	gateBlocksDaily      map[string]int
	settledDaily         int
	wonDaily             int
	lostDaily            int
	circuitBreakerTrips  int

	realizedPnLDaily float64
	realizedPnLTotal float64
}

func NewStats() *Stats {
	now := time.Now().UTC()
	return &Stats{
		dayStartUTC:     startOfUTCDay(now),
		gateBlocksDaily: make(map[string]int),
	}
}

func startOfUTCDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Stats) ensureDayLocked(now time.Time) {
	day := startOfUTCDay(now)
	if day.Equal(s.dayStartUTC) {
		return
	}
	s.dayStartUTC = day
	s.signalsSeenDaily = 0
	s.signalsExecutedDaily = 0
	s.gateBlocksDaily = make(map[string]int)
	s.settledDaily = 0
	s.wonDaily = 0
	s.lostDaily = 0
	s.realizedPnLDaily = 0
}

func (s *Stats) RecordSignalSeen(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDayLocked(now)
	s.signalsSeenDaily++
	signalsSeenTotal.Inc()
}

func (s *Stats) RecordGateBlock(now time.Time, gate string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDayLocked(now)
	s.gateBlocksDaily[gate]++
	gateBlocksTotal.WithLabelValues(gate).Inc()
}

func (s *Stats) RecordExecuted(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDayLocked(now)
	s.signalsExecutedDaily++
	signalsExecutedTotal.Inc()
}

func (s *Stats) RecordSettlement(now time.Time, realizedPnL float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDayLocked(now)
	s.settledDaily++
	outcome := "push"
	if realizedPnL > 0 {
		s.wonDaily++
		outcome = "won"
	} else if realizedPnL < 0 {
		s.lostDaily++
		outcome = "lost"
	}
	s.realizedPnLDaily += realizedPnL
	s.realizedPnLTotal += realizedPnL
	settlementsTotal.WithLabelValues(outcome).Inc()
	realizedPnLTotalGauge.Set(s.realizedPnLTotal)
}

func (s *Stats) RecordCircuitBreakerTrip(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDayLocked(now)
	s.circuitBreakerTrips++
	circuitBreakerTripsTotal.Inc()
}

type Snapshot struct {
	SignalsSeenDaily     int
	SignalsExecutedDaily int
	GateBlocksDaily      map[string]int
	SettledDaily         int
	WonDaily             int
	LostDaily            int
	WinRateDaily         float64
	CircuitBreakerTrips  int
	RealizedPnLDaily     float64
	RealizedPnLTotal     float64
}

func (s *Stats) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDayLocked(now)

	winRate := 0.0
	if s.settledDaily > 0 {
		winRate = float64(s.wonDaily) / float64(s.settledDaily)
	}

	blocks := make(map[string]int, len(s.gateBlocksDaily))
	for k, v := range s.gateBlocksDaily {
		blocks[k] = v
	}

	return Snapshot{
		SignalsSeenDaily:     s.signalsSeenDaily,
		SignalsExecutedDaily: s.signalsExecutedDaily,
		GateBlocksDaily:      blocks,
		SettledDaily:         s.settledDaily,
		WonDaily:             s.wonDaily,
		LostDaily:            s.lostDaily,
		WinRateDaily:         round6(winRate),
		CircuitBreakerTrips:  s.circuitBreakerTrips,
		RealizedPnLDaily:     round6(s.realizedPnLDaily),
		RealizedPnLTotal:     round6(s.realizedPnLTotal),
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
