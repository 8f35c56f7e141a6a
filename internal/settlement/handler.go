package settlement

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/postracker"
	"github.com/GoPolymarket/polymarket-trader/internal/reftrack"
)

// Handler tracks one coin's pending window positions through to
// settlement. Grounded on original_source's SettlementHandler: a pending
// map keyed by window_start_ms, a capped history slice, and running
// win-rate accounting.
type Handler struct {
	conditionID string
	cfg         Config
	sources     []OutcomeSource
	log         *slog.Logger

	mu                 sync.Mutex
	pending            map[int64]*postracker.WindowPositionTracker
	history            []Result
	totalRealizedPnl   money.Price
	settlementsCount   uint64
	winningSettlements uint64
}

// NewHandler builds a handler that tries each OutcomeSource in order —
// CLOB fast-settle, then prediction-market resolution, then an oracle
// fallback — stopping at the first that resolves an outcome, per
// spec.md §4.10's three-path cascade.
func NewHandler(conditionID string, cfg Config, logger *slog.Logger, sources ...OutcomeSource) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		conditionID:      conditionID,
		cfg:              cfg,
		sources:          sources,
		log:              logger,
		pending:          make(map[int64]*postracker.WindowPositionTracker),
		totalRealizedPnl: money.Zero,
	}
}

// RecordPosition enqueues a window's holdings for eventual settlement.
// Windows with no position in either leg are skipped.
func (h *Handler) RecordPosition(t *postracker.WindowPositionTracker) {
	if t == nil || (t.YesPosition == nil && t.NoPosition == nil) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending[t.WindowStartMs] = t
}

// SettleableWindows returns pending window starts whose settlement delay
// has elapsed: current_time_ms >= window_end + settlement_delay_ms.
func (h *Handler) SettleableWindows(nowMs int64) []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]int64, 0, len(h.pending))
	for windowStart := range h.pending {
		windowEnd := windowStart + reftrack.QuantumMs
		if nowMs >= windowEnd+h.cfg.SettlementDelayMs {
			out = append(out, windowStart)
		}
	}
	return out
}

// SettleWindow resolves a pending window through the cascade and records
// the result. Returns nil if nothing was pending for that window.
func (h *Handler) SettleWindow(ctx context.Context, coin string, windowStart int64) (*Result, error) {
	h.mu.Lock()
	tracker, ok := h.pending[windowStart]
	h.mu.Unlock()
	if !ok {
		return nil, nil
	}

	windowEnd := windowStart + reftrack.QuantumMs
	outcome, resolvedBy, err := h.resolve(ctx, coin, windowStart, windowEnd, tracker)
	if err != nil {
		return nil, err
	}
	if resolvedBy == "" {
		return nil, nil
	}

	result := calculate(tracker, outcome, h.cfg.FeeRate)
	result.SettledAt = time.Now().UTC()

	h.mu.Lock()
	delete(h.pending, windowStart)
	h.totalRealizedPnl = h.totalRealizedPnl.Add(result.RealizedPnl)
	h.settlementsCount++
	if result.RealizedPnl.IsPositive() {
		h.winningSettlements++
	}
	h.history = append(h.history, result)
	h.mu.Unlock()

	h.log.Info("window settled",
		"coin", coin, "window_start", windowStart, "outcome", outcome,
		"hedged", result.WasHedged, "pnl", result.RealizedPnl.String(), "resolved_by", resolvedBy)

	return &result, nil
}

// resolve walks the settlement cascade in order, returning the first
// source that produces a confident outcome.
func (h *Handler) resolve(ctx context.Context, coin string, windowStart, windowEnd int64, tracker *postracker.WindowPositionTracker) (WindowOutcome, string, error) {
	for _, src := range h.sources {
		outcome, ok, err := src.Resolve(ctx, coin, windowStart, windowEnd, tracker)
		if err != nil {
			h.log.Warn("settlement source failed, trying next", "coin", coin, "window_start", windowStart, "err", err)
			continue
		}
		if ok {
			return outcome, sourceName(src), nil
		}
	}
	return 0, "", nil
}

func sourceName(src OutcomeSource) string {
	if n, ok := src.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unknown"
}

// CleanupStale drops pending windows older than max_pending_age_ms whose
// settlement never resolved through any path, logging a warning for each.
func (h *Handler) CleanupStale(nowMs int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	threshold := nowMs - h.cfg.MaxPendingAgeMs
	removed := 0
	for windowStart := range h.pending {
		if windowStart < threshold {
			h.log.Warn("removing stale pending settlement", "window_start", windowStart)
			delete(h.pending, windowStart)
			removed++
		}
	}
	return removed
}

func (h *Handler) PendingCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

func (h *Handler) TotalRealizedPnl() money.Price {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalRealizedPnl
}

func (h *Handler) SettlementsCount() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settlementsCount
}

func (h *Handler) WinRate() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.settlementsCount == 0 {
		return 0
	}
	return float64(h.winningSettlements) / float64(h.settlementsCount)
}

func (h *Handler) History() []Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Result, len(h.history))
	copy(out, h.history)
	return out
}

func (h *Handler) ConditionID() string {
	return h.conditionID
}

// Clear resets all accumulated state.
func (h *Handler) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = make(map[int64]*postracker.WindowPositionTracker)
	h.history = nil
	h.totalRealizedPnl = money.Zero
	h.settlementsCount = 0
	h.winningSettlements = 0
}
