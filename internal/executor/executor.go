package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GoPolymarket/polymarket-trader/internal/aggregator"
	"github.com/GoPolymarket/polymarket-trader/internal/detect"
	"github.com/GoPolymarket/polymarket-trader/internal/execport"
	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/postracker"
	"github.com/GoPolymarket/polymarket-trader/internal/settlement"
)

// TokenLookup maps a coin's window to its YES/NO token IDs, sourced from
// the market metadata the runner fetched at window rollover.
type TokenLookup interface {
	TokenID(coin string, isYes bool) (string, bool)
}

// TradeRecord is what gets enqueued for durable persistence after a
// successful fill, per spec.md §4.8 step 6.
type TradeRecord struct {
	Coin        string
	WindowStart int64
	Direction   string
	TokenID     string
	Side        execport.OrderSide
	Size        money.Price
	Price       money.Price
	Cost        money.Price
	OrderID     string
	Detector    string
	PlacedAtMs  int64
}

// Executor consumes directional signals and turns qualifying ones into
// orders, per spec.md §4.8. One Executor instance serves every coin;
// per-coin state (tracker, persistence, serialization mutex) is kept in
// coinState.
type Executor struct {
	cfg     Config
	port    execport.Port
	tokens  TokenLookup
	settle  *settlement.Handler
	stats   *Stats
	log     *slog.Logger
	trades  chan TradeRecord
	persist func(coin string) *postracker.Persistence

	mu     sync.Mutex
	states map[string]*coinState
}

type coinState struct {
	mu      sync.Mutex // serializes gate-check + place_order for this coin
	tracker *postracker.WindowPositionTracker
	persist *postracker.Persistence
	trades  map[int64]int // window_start -> trades placed this window
}

func NewExecutor(cfg Config, port execport.Port, tokens TokenLookup, settle *settlement.Handler, persistFor func(coin string) *postracker.Persistence, tradeBuffer int, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if tradeBuffer <= 0 {
		tradeBuffer = 256
	}
	return &Executor{
		cfg:     cfg,
		port:    port,
		tokens:  tokens,
		settle:  settle,
		stats:   NewStats(),
		log:     logger,
		trades:  make(chan TradeRecord, tradeBuffer),
		persist: persistFor,
		states:  make(map[string]*coinState),
	}
}

func (e *Executor) Stats() *Stats { return e.stats }

// TradeRecords exposes the bounded channel a background batch writer
// drains, per spec.md §4.8 step 6's "batched via a bounded channel".
func (e *Executor) TradeRecords() <-chan TradeRecord { return e.trades }

func (e *Executor) stateFor(coin string) *coinState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[coin]
	if !ok {
		st = &coinState{persist: e.persist(coin), trades: make(map[int64]int)}
		e.states[coin] = st
	}
	return st
}

// Handle processes one detector signal end to end. Never returns a side
// effect on a failed gate or a terminal place_order failure — those are
// logged and the signal is abandoned per spec.md §4.8 step 5.
func (e *Executor) Handle(ctx context.Context, sig *detect.DirectionalSignal) error {
	if sig == nil {
		return nil
	}
	now := time.UnixMilli(sig.DetectedAtMs)
	e.stats.RecordSignalSeen(now)

	st := e.stateFor(sig.Coin)
	st.mu.Lock()
	defer st.mu.Unlock()

	e.rolloverIfNeeded(st, sig)

	if reason, blocked := e.checkGates(st, sig); blocked {
		e.stats.RecordGateBlock(now, reason)
		e.log.Info("signal gated", "coin", sig.Coin, "reason", reason, "window_start", sig.WindowStart)
		return nil
	}

	betSize := e.sizeBet(sig)
	if betSize.IsZero() || betSize.IsNegative() {
		e.stats.RecordGateBlock(now, "zero_bet_size")
		return nil
	}

	shares := betSize.Div(sig.EntryPrice).RoundDownLot(e.cfg.LotSize)
	if shares.IsZero() {
		e.stats.RecordGateBlock(now, "below_lot_size")
		return nil
	}

	tokenID, ok := e.tokens.TokenID(sig.Coin, sig.Direction == aggregator.Up)
	if !ok {
		return fmt.Errorf("executor: no token id for %s direction=%v", sig.Coin, sig.Direction)
	}

	receipt, err := e.placeWithRetry(ctx, tokenID, shares, sig)
	if err != nil {
		e.log.Warn("place_order abandoned after retries", "coin", sig.Coin, "err", err)
		return nil
	}

	cost := receipt.FillSize.Mul(receipt.FillPrice).Add(receipt.FeeUSDC)
	isYes := sig.Direction == aggregator.Up
	st.tracker.AddPosition(isYes, receipt.FillSize, cost)
	st.trades[sig.WindowStart]++

	if err := st.persist.Save(st.tracker); err != nil {
		e.log.Error("failed to persist window tracker", "coin", sig.Coin, "err", err)
	}

	e.trades <- TradeRecord{
		Coin:        sig.Coin,
		WindowStart: sig.WindowStart,
		Direction:   directionLabel(sig.Direction),
		TokenID:     tokenID,
		Side:        execport.Buy,
		Size:        receipt.FillSize,
		Price:       receipt.FillPrice,
		Cost:        cost,
		OrderID:     receipt.OrderID,
		Detector:    sig.Detector,
		PlacedAtMs:  sig.DetectedAtMs,
	}

	e.stats.RecordExecuted(now)
	e.log.Info("order placed", "coin", sig.Coin, "shares", shares.String(), "price", receipt.FillPrice.String())
	return nil
}

// rolloverIfNeeded moves a stale tracker into pending settlement and
// starts a fresh one for the signal's window, per spec.md §4.8 step 1.
func (e *Executor) rolloverIfNeeded(st *coinState, sig *detect.DirectionalSignal) {
	if st.tracker != nil && st.tracker.WindowStartMs == sig.WindowStart {
		return
	}
	if st.tracker != nil && e.settle != nil {
		e.settle.RecordPosition(st.tracker)
	}
	st.tracker = postracker.NewTracker(sig.WindowStart)
	st.trades = make(map[int64]int)
}

// checkGates enforces spec.md §4.8 step 2 in order, returning the first
// failing gate's name.
func (e *Executor) checkGates(st *coinState, sig *detect.DirectionalSignal) (string, bool) {
	if e.cfg.MaxTradesPerWindow > 0 && st.trades[sig.WindowStart] >= e.cfg.MaxTradesPerWindow {
		return "max_trades_per_window", true
	}

	projectedCost := e.sizeBet(sig)
	if !e.cfg.MaxPositionPerWindow.IsZero() && st.tracker.TotalCost.Add(projectedCost).GreaterThan(e.cfg.MaxPositionPerWindow) {
		return "max_position_per_window", true
	}

	if !e.cfg.MaxEntryPrice.IsZero() && sig.EntryPrice.GreaterThan(e.cfg.MaxEntryPrice) {
		return "max_entry_price", true
	}

	if sig.Edge < e.cfg.MinEdge {
		return "min_edge", true
	}

	return "", false
}

// sizeBet applies fixed-size or Kelly sizing, clamped to [min, max].
func (e *Executor) sizeBet(sig *detect.DirectionalSignal) money.Price {
	var size money.Price
	if !e.cfg.FixedBetSize.IsZero() {
		size = e.cfg.FixedBetSize
	} else {
		bal, err := e.port.GetBalance(context.Background())
		if err != nil {
			return money.Zero
		}
		size = money.NewFromFloat(sig.KellyFraction).Mul(bal)
	}
	if !e.cfg.MinBetSize.IsZero() && size.LessThan(e.cfg.MinBetSize) {
		size = e.cfg.MinBetSize
	}
	if !e.cfg.MaxBetSize.IsZero() && size.GreaterThan(e.cfg.MaxBetSize) {
		size = e.cfg.MaxBetSize
	}
	return size
}

func (e *Executor) placeWithRetry(ctx context.Context, tokenID string, shares money.Price, sig *detect.DirectionalSignal) (execport.OrderReceipt, error) {
	var lastErr error
	delay := 200 * time.Millisecond
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		receipt, err := e.port.PlaceOrder(ctx, execport.OrderRequest{
			TokenID:     tokenID,
			Side:        execport.Buy,
			Size:        shares,
			LimitPrice:  sig.EntryPrice,
			Slippage:    e.cfg.BuySlippage,
		})
		if err == nil {
			return receipt, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return execport.OrderReceipt{}, ctx.Err()
		case <-time.After(delay):
		}
		delay += 200 * time.Millisecond // linear backoff per spec.md §4.8 step 5
	}
	return execport.OrderReceipt{}, lastErr
}

func directionLabel(d detect.Side) string {
	switch d {
	case aggregator.Up:
		return "Up"
	case aggregator.Down:
		return "Down"
	default:
		return "Neutral"
	}
}
