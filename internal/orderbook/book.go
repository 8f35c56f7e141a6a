// Package orderbook holds the per-asset L2 book keyed by venue token ID.
// Grounded on github.com/GoPolymarket/polymarket-trader's internal/feed
// (BookSnapshot over ws.OrderbookEvent) generalized to own exact decimal
// levels instead of parsing strings on every read, and on
// sdibella-kalshi-btc15m's internal/kalshi OrderbookState snapshot+delta
// application.
package orderbook

import (
	"fmt"
	"sort"
	"sync"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

// Level is one price level of an order book side.
type Level struct {
	Price money.Price
	Size  money.Price
}

// Side identifies book side.
type Side int

const (
	Bid Side = iota
	Ask
)

// Book is a single asset's L2 order book: bids descending, asks ascending.
// Not safe for concurrent use on its own — callers hold Books' lock.
type Book struct {
	AssetID string
	Bids    []Level
	Asks    []Level
}

// BestBid returns the highest bid level, if any.
func (b *Book) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask level, if any.
func (b *Book) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// Mid returns the midpoint of best bid/ask. ok is false for an empty book.
func (b *Book) Mid() (money.Price, bool) {
	bid, ok1 := b.BestBid()
	ask, ok2 := b.BestAsk()
	if !ok1 || !ok2 {
		return money.Zero, false
	}
	return bid.Price.Add(ask.Price).Div(money.NewFromInt(2)), true
}

// Fill is the result of walking a book's levels to fill target_size,
// grounded on original_source's simulate_fill: it accumulates cost level by
// level instead of pricing the whole order at the top of book.
type Fill struct {
	Filled          money.Price
	TotalCost       money.Price
	VWAP            money.Price
	BestPrice       money.Price
	WorstPrice      money.Price
	SufficientDepth bool
}

// SimulateFill walks side's levels (asks ascending for a buy, bids
// descending for a sell) accumulating cost until targetSize is filled or
// the book runs out, returning the volume-weighted average price actually
// paid. ok is false for a non-positive target or an empty side.
func (b *Book) SimulateFill(side Side, targetSize money.Price) (Fill, bool) {
	if !targetSize.IsPositive() {
		return Fill{}, false
	}
	levels := b.Asks
	if side == Bid {
		levels = b.Bids
	}
	if len(levels) == 0 {
		return Fill{}, false
	}

	filled := money.Zero
	totalCost := money.Zero
	worst := money.Zero
	best := levels[0].Price

	for _, lvl := range levels {
		if !filled.LessThan(targetSize) {
			break
		}
		remaining := targetSize.Sub(filled)
		take := lvl.Size
		if remaining.LessThan(take) {
			take = remaining
		}
		totalCost = totalCost.Add(take.Mul(lvl.Price))
		filled = filled.Add(take)
		worst = lvl.Price
	}

	vwap := money.Zero
	if filled.IsPositive() {
		vwap = totalCost.Div(filled)
	}

	return Fill{
		Filled:          filled,
		TotalCost:       totalCost,
		VWAP:            vwap,
		BestPrice:       best,
		WorstPrice:      worst,
		SufficientDepth: !filled.LessThan(targetSize),
	}, true
}

// Depth sums size across the top n levels of a side.
func (b *Book) Depth(side Side, n int) money.Price {
	levels := b.Bids
	if side == Ask {
		levels = b.Asks
	}
	total := money.Zero
	for i := 0; i < n && i < len(levels); i++ {
		total = total.Add(levels[i].Size)
	}
	return total
}

// Valid checks the invariants from spec.md §3/§8: no duplicate price
// levels on a side, no negative sizes, best_bid < best_ask when both sides
// are non-empty.
func (b *Book) Valid() error {
	if err := validateSide(b.Bids); err != nil {
		return fmt.Errorf("bids: %w", err)
	}
	if err := validateSide(b.Asks); err != nil {
		return fmt.Errorf("asks: %w", err)
	}
	bid, hasBid := b.BestBid()
	ask, hasAsk := b.BestAsk()
	if hasBid && hasAsk && !bid.Price.LessThan(ask.Price) {
		return fmt.Errorf("crossed book: bid=%s ask=%s", bid.Price, ask.Price)
	}
	return nil
}

func validateSide(levels []Level) error {
	seen := make(map[string]bool, len(levels))
	for _, l := range levels {
		if l.Size.IsNegative() {
			return fmt.Errorf("negative size at price %s", l.Price)
		}
		key := l.Price.String()
		if seen[key] {
			return fmt.Errorf("duplicate price level %s", key)
		}
		seen[key] = true
	}
	return nil
}

// ApplySnapshot replaces the book wholesale. Levels are sorted into the
// required order (bids descending, asks ascending); zero-size levels are
// dropped on ingest, same as a delta removal.
func (b *Book) ApplySnapshot(bids, asks []Level) {
	b.Bids = sortedNonZero(bids, true)
	b.Asks = sortedNonZero(asks, false)
}

// ApplyDelta updates a single level; size 0 removes it. Grounded on the
// Polymarket price_change event and Binance depth-update semantics from
// spec.md §4.1/§6.1.
func (b *Book) ApplyDelta(side Side, price, size money.Price) {
	levels := &b.Bids
	descending := true
	if side == Ask {
		levels = &b.Asks
		descending = false
	}

	idx := -1
	for i, l := range *levels {
		if l.Price.Equal(price) {
			idx = i
			break
		}
	}

	if size.IsZero() {
		if idx >= 0 {
			*levels = append((*levels)[:idx], (*levels)[idx+1:]...)
		}
		return
	}

	if idx >= 0 {
		(*levels)[idx].Size = size
		return
	}

	*levels = append(*levels, Level{Price: price, Size: size})
	sortLevels(*levels, descending)
}

func sortedNonZero(levels []Level, descending bool) []Level {
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		if l.Size.IsZero() {
			continue
		}
		out = append(out, l)
	}
	sortLevels(out, descending)
	return out
}

func sortLevels(levels []Level, descending bool) {
	sort.Slice(levels, func(i, j int) bool {
		if descending {
			return levels[i].Price.GreaterThan(levels[j].Price)
		}
		return levels[i].Price.LessThan(levels[j].Price)
	})
}

// Books is the concurrent map of all live books for one venue session,
// keyed by asset ID. Grounded on feed.BookSnapshot.
type Books struct {
	mu    sync.RWMutex
	books map[string]*Book
}

func NewBooks() *Books {
	return &Books{books: make(map[string]*Book)}
}

// Get returns a snapshot copy of the book for assetID.
func (bs *Books) Get(assetID string) (Book, bool) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	b, ok := bs.books[assetID]
	if !ok {
		return Book{}, false
	}
	return cloneBook(*b), true
}

// All returns snapshot copies of every tracked book.
func (bs *Books) All() map[string]Book {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	out := make(map[string]Book, len(bs.books))
	for id, b := range bs.books {
		out[id] = cloneBook(*b)
	}
	return out
}

// Snapshot installs (or replaces) a full book from a venue snapshot event.
func (bs *Books) Snapshot(assetID string, bids, asks []Level) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	b := &Book{AssetID: assetID}
	b.ApplySnapshot(bids, asks)
	bs.books[assetID] = b
}

// Delta applies a single-level update scoped to assetID. A delta for an
// asset with no existing book is ignored (a fresh Snapshot must arrive
// first, per spec.md §3 lifecycle).
func (bs *Books) Delta(assetID string, side Side, price, size money.Price) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	b, ok := bs.books[assetID]
	if !ok {
		return
	}
	b.ApplyDelta(side, price, size)
}

// Invalidate drops all cached books — used on reconnect, since a fresh
// Snapshot will overwrite whatever was here (spec.md §4.1 Reconnection).
func (bs *Books) Invalidate() {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.books = make(map[string]*Book)
}

// AssetIDs lists every tracked asset.
func (bs *Books) AssetIDs() []string {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	ids := make([]string, 0, len(bs.books))
	for id := range bs.books {
		ids = append(ids, id)
	}
	return ids
}

func cloneBook(b Book) Book {
	cp := Book{AssetID: b.AssetID}
	cp.Bids = append([]Level(nil), b.Bids...)
	cp.Asks = append([]Level(nil), b.Asks...)
	return cp
}
