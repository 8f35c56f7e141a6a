// Package detect implements the directional, CLOB-timing, latency, and
// cross-market detectors described in spec.md §4.5. Each detector is a
// pure function of (aggregator snapshot, reference tracker, current time)
// that returns an optional signal; cooldowns are tracked per (coin,
// window_start) so the same window never re-fires inside its lockout.
// Grounded on original_source's crates/cli/src/commands/directional_auto.rs
// for the exact default thresholds, and on
// strategy.CryptoSignalTracker (teacher's internal/strategy/crypto_signal.go)
// for the cooldown-map control-frame shape.
package detect

import (
	"sync"

	"github.com/GoPolymarket/polymarket-trader/internal/aggregator"
	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

// Side mirrors aggregator.Direction but only the actionable values appear
// on a signal (Neutral never reaches the executor).
type Side = aggregator.Direction

// DirectionalSignal is what a detector emits toward the executor.
type DirectionalSignal struct {
	Coin             string
	Direction        Side
	WindowStart      int64
	WindowEnd        int64
	EntryPrice       money.Price
	ModelProbability float64
	Edge             float64
	KellyFraction    float64
	DetectedAtMs     int64
	Detector         string
}

// DirectionalConfig mirrors original_source's DirectionalConfig
// (crates/cli/src/commands/directional_auto.rs run()): entry sub-window in
// seconds before window end, delta thresholds, entry price ceiling, min
// edge, and the signal cooldown.
type DirectionalConfig struct {
	EntryWindowStartSecs   int64 // e.g. 10 minutes -> 600
	EntryWindowEndSecs     int64 // e.g. 2 minutes -> 120
	MinDeltaPct            float64
	MaxDeltaPct            float64 // hardcoded 0.03 in the original
	MaxEntryPrice          float64
	MinEdge                float64
	KellyFractionMult      float64
	ProbabilitySlope       float64 // k in p* = clamp(0.5 + k*|delta|, 0.5, 0.99)
	SignalCooldownMs       int64
}

// DefaultDirectionalConfig mirrors the CLI defaults: entry_start_mins=10,
// entry_end_mins=2, min_edge=0.03, max_entry_price=0.55, min_delta=0.0005,
// kelly_fraction=0.25, signal_cooldown_ms=30_000.
func DefaultDirectionalConfig() DirectionalConfig {
	return DirectionalConfig{
		EntryWindowStartSecs: 10 * 60,
		EntryWindowEndSecs:   2 * 60,
		MinDeltaPct:          0.0005,
		MaxDeltaPct:          0.03,
		MaxEntryPrice:        0.55,
		MinEdge:              0.03,
		KellyFractionMult:    0.25,
		ProbabilitySlope:     5.0,
		SignalCooldownMs:     30_000,
	}
}

// BookView is the minimal read surface a detector needs from a live book.
type BookView interface {
	BestAsk() (priceLevel money.Price, ok bool)
}

// ModelProbability computes p* from the observed displacement. The default
// is spec.md §4.5 step 5's floor function; callers may inject a richer
// model (e.g. one that also consults the opposite side's book shape).
type ModelProbability func(absDeltaPct float64) float64

// DefaultModelProbability implements p* = clamp(0.5 + k*|delta|, 0.5, 0.99).
func DefaultModelProbability(k float64) ModelProbability {
	return func(absDelta float64) float64 {
		p := 0.5 + k*absDelta
		if p < 0.5 {
			p = 0.5
		}
		if p > 0.99 {
			p = 0.99
		}
		return p
	}
}

// cooldownKey identifies one (coin, window_start) cooldown slot.
type cooldownKey struct {
	coin        string
	windowStart int64
}

// Cooldowns tracks last-emit times per (coin, window) so a detector never
// re-fires inside its lockout.
type Cooldowns struct {
	mu   sync.Mutex
	last map[cooldownKey]int64
}

func NewCooldowns() *Cooldowns {
	return &Cooldowns{last: make(map[cooldownKey]int64)}
}

// Allow reports whether nowMs is outside cooldownMs of the last emission
// for (coin, windowStart).
func (c *Cooldowns) Allow(coin string, windowStart, nowMs, cooldownMs int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cooldownKey{coin, windowStart}
	last, ok := c.last[key]
	if !ok {
		return true
	}
	return nowMs-last >= cooldownMs
}

// Record marks (coin, windowStart) as having just emitted at nowMs.
func (c *Cooldowns) Record(coin string, windowStart, nowMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[cooldownKey{coin, windowStart}] = nowMs
}

// DirectionalDetector implements spec.md §4.5's seven-step control frame.
type DirectionalDetector struct {
	cfg       DirectionalConfig
	modelProb ModelProbability
	cooldowns *Cooldowns
}

func NewDirectionalDetector(cfg DirectionalConfig, modelProb ModelProbability) *DirectionalDetector {
	if modelProb == nil {
		modelProb = DefaultModelProbability(cfg.ProbabilitySlope)
	}
	return &DirectionalDetector{cfg: cfg, modelProb: modelProb, cooldowns: NewCooldowns()}
}

// Evaluate runs the full control frame for one coin at one tick. yesBook
// and noBook are the live books for the market's two legs; spot and
// reference are in the coin's underlying unit (e.g. USD).
func (d *DirectionalDetector) Evaluate(
	coin string,
	nowMs, windowStart, windowEnd int64,
	spot, reference money.Price,
	yesBook, noBook BookView,
) *DirectionalSignal {
	// Step 1: entry sub-window gate.
	secsToEnd := (windowEnd - nowMs) / 1000
	if secsToEnd > d.cfg.EntryWindowStartSecs || secsToEnd < d.cfg.EntryWindowEndSecs {
		return nil
	}

	if !d.cooldowns.Allow(coin, windowStart, nowMs, d.cfg.SignalCooldownMs) {
		return nil
	}

	if reference.IsZero() {
		return nil
	}

	// Step 2: delta gate.
	delta := spot.Sub(reference).Div(reference).Float64()
	absDelta := delta
	if absDelta < 0 {
		absDelta = -absDelta
	}
	if absDelta < d.cfg.MinDeltaPct || absDelta > d.cfg.MaxDeltaPct {
		return nil
	}

	// Step 3: candidate direction.
	direction := aggregator.Up
	book := yesBook
	if delta < 0 {
		direction = aggregator.Down
		book = noBook
	}

	// Step 4: entry price ceiling.
	entryPrice, ok := book.BestAsk()
	if !ok {
		return nil
	}
	if entryPrice.Float64() > d.cfg.MaxEntryPrice {
		return nil
	}

	// Step 5: model probability, edge gate.
	pStar := d.modelProb(absDelta)
	edge := pStar - entryPrice.Float64()
	if edge < d.cfg.MinEdge {
		return nil
	}

	// Step 6: Kelly fraction.
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

	// Step 7: emit and record cooldown.
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
		Detector:         "directional",
	}
}
