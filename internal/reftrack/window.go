// Package reftrack computes 15-minute trading window boundaries and tracks
// each window's immutable reference price. Grounded on
// strategy.CryptoSignalTracker's cooldown-by-window-key pattern (teacher's
// internal/strategy/crypto_signal.go) generalized from a fixed cooldown
// duration into the spec's window-quantum arithmetic.
package reftrack

import (
	"sync"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

// QuantumMs is the trading window size in milliseconds (15 minutes).
const QuantumMs int64 = 900_000

// DefaultHistory bounds how many past windows' reference prices are kept.
const DefaultHistory = 16

// WindowStart floors a unix-ms timestamp down to its enclosing window
// boundary: window_start(t) = t - (t mod quantum). Never persisted —
// always recomputed from wall-clock time.
func WindowStart(tsMs int64) int64 {
	mod := tsMs % QuantumMs
	if mod < 0 {
		mod += QuantumMs
	}
	return tsMs - mod
}

type entry struct {
	windowStart int64
	price       money.Price
	order       uint64
}

// ReferenceTracker records the first spot price observed in each trading
// window and holds it immutable thereafter, with a bounded history of past
// windows.
type ReferenceTracker struct {
	mu         sync.Mutex
	maxHistory int
	seq        uint64
	byWindow   map[int64]money.Price
	order      []int64 // windowStart insertion order, oldest first
}

// NewReferenceTracker builds a tracker retaining at most maxHistory windows'
// reference prices. maxHistory <= 0 uses DefaultHistory.
func NewReferenceTracker(maxHistory int) *ReferenceTracker {
	if maxHistory <= 0 {
		maxHistory = DefaultHistory
	}
	return &ReferenceTracker{
		maxHistory: maxHistory,
		byWindow:   make(map[int64]money.Price),
	}
}

// SetIfAbsent records price as the reference for the window containing
// tsMs, but only if that window has no reference yet. Returns the
// (possibly pre-existing) reference price and whether this call set it.
func (r *ReferenceTracker) SetIfAbsent(tsMs int64, price money.Price) (money.Price, bool) {
	ws := WindowStart(tsMs)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byWindow[ws]; ok {
		return existing, false
	}

	r.byWindow[ws] = price
	r.order = append(r.order, ws)
	r.evictLocked()
	return price, true
}

func (r *ReferenceTracker) evictLocked() {
	for len(r.order) > r.maxHistory {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.byWindow, oldest)
	}
}

// ReferenceFor returns the reference price for the given window start, if
// known.
func (r *ReferenceTracker) ReferenceFor(windowStart int64) (money.Price, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byWindow[windowStart]
	return p, ok
}

// CurrentDeltaPct returns (currentSpot - reference) / reference for the
// window containing now, as a fraction (0.01 == 1%). ok is false if no
// reference has been set yet for that window, or the reference is zero.
func (r *ReferenceTracker) CurrentDeltaPct(nowMs int64, currentSpot money.Price) (float64, bool) {
	ws := WindowStart(nowMs)
	ref, ok := r.ReferenceFor(ws)
	if !ok || ref.IsZero() {
		return 0, false
	}
	delta := currentSpot.Sub(ref).Div(ref)
	return delta.Float64(), true
}

// Len returns the number of windows currently retained.
func (r *ReferenceTracker) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
