// Package rollbuf implements the bounded FIFO time-series buffers that
// back spot prices, funding history, and liquidation events. Grounded on
// strategy.CryptoSignalTracker's priceWindow (teacher's
// internal/strategy/crypto_signal.go) generalized from a fixed 60-tick cap
// into a duration-bounded window per spec.md §4.2, plus an atomic
// latest-value slot for lock-free reads.
package rollbuf

import (
	"sync"
	"sync/atomic"
	"time"
)

// Point is one (timestamp, value) observation.
type Point struct {
	TimestampMs int64
	Value       float64
}

// Buffer is a bounded-duration FIFO. Eviction is strictly oldest-first.
// The latest value is exposed through an atomic slot so hot-path readers
// never take the mutex; historical scans (ChangeOver, Points) do.
type Buffer struct {
	window time.Duration

	mu     sync.Mutex
	points []Point

	latest atomic.Value // stores Point
}

// New creates a Buffer that retains points within the given trailing
// window (default 15 minutes of 1-second ticks per spec.md §4.2).
func New(window time.Duration) *Buffer {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Buffer{window: window}
}

// Update appends a new observation and evicts anything older than the
// window relative to ts.
func (b *Buffer) Update(value float64, tsMs int64) {
	b.latest.Store(Point{TimestampMs: tsMs, Value: value})

	b.mu.Lock()
	defer b.mu.Unlock()
	b.points = append(b.points, Point{TimestampMs: tsMs, Value: value})
	cutoff := tsMs - b.window.Milliseconds()
	i := 0
	for i < len(b.points) && b.points[i].TimestampMs < cutoff {
		i++
	}
	if i > 0 {
		b.points = append([]Point(nil), b.points[i:]...)
	}
}

// CurrentValue returns the most recent value without taking the mutex.
func (b *Buffer) CurrentValue() (float64, bool) {
	v := b.latest.Load()
	if v == nil {
		return 0, false
	}
	return v.(Point).Value, true
}

// CurrentPoint returns the most recent (ts, value) pair.
func (b *Buffer) CurrentPoint() (Point, bool) {
	v := b.latest.Load()
	if v == nil {
		return Point{}, false
	}
	return v.(Point), true
}

// IsEmpty reports whether any observation has ever been recorded.
func (b *Buffer) IsEmpty() bool {
	return b.latest.Load() == nil
}

// Len returns the number of retained points.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.points)
}

// Points returns a copy of all retained points, oldest first.
func (b *Buffer) Points() []Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Point(nil), b.points...)
}

// ChangeOver returns the percent change from the earliest point still
// within d of the latest point to the latest point itself. ok is false if
// fewer than two points fall in range.
func (b *Buffer) ChangeOver(d time.Duration) (pct float64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.points) < 2 {
		return 0, false
	}
	latest := b.points[len(b.points)-1]
	cutoff := latest.TimestampMs - d.Milliseconds()

	var earliest Point
	found := false
	for _, p := range b.points {
		if p.TimestampMs >= cutoff {
			earliest = p
			found = true
			break
		}
	}
	if !found || earliest.Value == 0 {
		return 0, false
	}
	return (latest.Value - earliest.Value) / earliest.Value, true
}
