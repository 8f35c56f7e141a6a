package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/orderbook"
)

const polymarketWSURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

type polymarketSubscribeMsg struct {
	AssetsIDs []string `json:"assets_ids"`
	Type      string   `json:"type"`
}

type polymarketLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type polymarketBookMsg struct {
	EventType string            `json:"event_type"`
	AssetID   string            `json:"asset_id"`
	Bids      []polymarketLevel `json:"bids"`
	Asks      []polymarketLevel `json:"asks"`
	Timestamp string            `json:"timestamp"`
	Hash      string            `json:"hash"`
}

type polymarketPriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
}

type polymarketDeltaMsg struct {
	EventType    string                  `json:"event_type"`
	PriceChanges []polymarketPriceChange `json:"price_changes"`
}

// PolymarketConfig carries the reconnect policy for the CLOB session.
type PolymarketConfig struct {
	Reconnect ReconnectPolicy
}

func DefaultPolymarketConfig() PolymarketConfig {
	return PolymarketConfig{Reconnect: DefaultReconnectPolicy()}
}

// PolymarketSession maintains L2OrderBook state per token ID over a
// single market WebSocket connection, re-subscribing tracked assets on
// reconnect — the same shape as the teacher's internal/feed.BookSnapshot,
// generalized from a raw ws.OrderbookEvent cache to proper
// internal/orderbook.Books state so detectors get real book
// invariants (no duplicate levels, size-0 removes a level) instead of a
// passthrough snapshot.
type PolymarketSession struct {
	cfg PolymarketConfig
	log *slog.Logger

	books   *orderbook.Books
	assetMu sync.RWMutex
	assets  map[string]bool

	onUpdate func(assetID string)
}

func NewPolymarketSession(cfg PolymarketConfig, onUpdate func(assetID string), logger *slog.Logger) *PolymarketSession {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolymarketSession{
		cfg:      cfg,
		log:      logger,
		books:    orderbook.NewBooks(),
		assets:   make(map[string]bool),
		onUpdate: onUpdate,
	}
}

// Book returns a snapshot copy of the current book for a token ID, if
// tracked.
func (p *PolymarketSession) Book(assetID string) (orderbook.Book, bool) {
	return p.books.Get(assetID)
}

// Subscribe adds asset IDs to the tracked set, which is sent as the
// subscription frame on each connect and reconnect. It writes nothing to an
// already-open connection, so assets added mid-session are subscribed at the
// next reconnect.
func (p *PolymarketSession) Subscribe(assetIDs []string) {
	p.assetMu.Lock()
	defer p.assetMu.Unlock()
	for _, id := range assetIDs {
		p.assets[id] = true
	}
}

func (p *PolymarketSession) trackedAssets() []string {
	p.assetMu.RLock()
	defer p.assetMu.RUnlock()
	out := make([]string, 0, len(p.assets))
	for id := range p.assets {
		out = append(out, id)
	}
	return out
}

// Run connects and maintains book state until ctx is cancelled,
// reconnecting with exponential backoff (cfg.Reconnect) between attempts.
// Returns ErrMaxReconnects once cfg.Reconnect.MaxAttempts consecutive
// failures are exhausted.
func (p *PolymarketSession) Run(ctx context.Context) error {
	return runReconnectLoop(ctx, p.cfg.Reconnect, p.log, "polymarket ws", p.connect)
}

func (p *PolymarketSession) connect(ctx context.Context, onConnected func()) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, polymarketWSURL, nil)
	if err != nil {
		return fmt.Errorf("venue: polymarket dial: %w", err)
	}
	defer conn.Close()

	// A fresh snapshot will overwrite whatever follows, but drop stale
	// books now so a reader never sees pre-reconnect state as current.
	p.books.Invalidate()

	if assets := p.trackedAssets(); len(assets) > 0 {
		if err := conn.WriteJSON(polymarketSubscribeMsg{AssetsIDs: assets, Type: "market"}); err != nil {
			return fmt.Errorf("venue: polymarket subscribe: %w", err)
		}
	}
	p.log.Info("polymarket ws connected", "assets", len(p.trackedAssets()))
	onConnected()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		p.handleMessage(msg)
	}
}

func (p *PolymarketSession) handleMessage(raw []byte) {
	var probe struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return
	}

	switch probe.EventType {
	case "book":
		var m polymarketBookMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			p.log.Warn("bad book snapshot", "err", err)
			return
		}
		p.applySnapshot(m)
	case "price_change":
		var m polymarketDeltaMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			p.log.Warn("bad price change", "err", err)
			return
		}
		p.applyDelta(m)
	}
}

func (p *PolymarketSession) applySnapshot(m polymarketBookMsg) {
	bids := parseLevels(m.Bids)
	asks := parseLevels(m.Asks)
	p.books.Snapshot(m.AssetID, bids, asks)

	if p.onUpdate != nil {
		p.onUpdate(m.AssetID)
	}
}

func parseLevels(raw []polymarketLevel) []orderbook.Level {
	out := make([]orderbook.Level, 0, len(raw))
	for _, lvl := range raw {
		price, perr := money.NewFromString(lvl.Price)
		size, serr := money.NewFromString(lvl.Size)
		if perr != nil || serr != nil {
			continue
		}
		out = append(out, orderbook.Level{Price: price, Size: size})
	}
	return out
}

func (p *PolymarketSession) applyDelta(m polymarketDeltaMsg) {
	for _, change := range m.PriceChanges {
		price, perr := money.NewFromString(change.Price)
		size, serr := money.NewFromString(change.Size)
		if perr != nil || serr != nil {
			continue
		}
		side := orderbook.Ask
		if change.Side == "BUY" {
			side = orderbook.Bid
		}
		p.books.Delta(change.AssetID, side, price, size)
		if p.onUpdate != nil {
			p.onUpdate(change.AssetID)
		}
	}
}

// TokenPrice satisfies settlement.PriceFetcher by reading the current
// best bid/ask midpoint for a token from the tracked book — a stand-in
// for the separate GET /prices REST endpoint when the WS book is already
// live and fresher than a round-trip would be.
func (p *PolymarketSession) TokenPrice(ctx context.Context, tokenID string) (money.Price, error) {
	book, ok := p.Book(tokenID)
	if !ok {
		return money.Zero, fmt.Errorf("venue: no tracked book for %s", tokenID)
	}
	if mid, ok := book.Mid(); ok {
		return mid, nil
	}
	if ask, ok := book.BestAsk(); ok {
		return ask.Price, nil
	}
	if bid, ok := book.BestBid(); ok {
		return bid.Price, nil
	}
	return money.Zero, fmt.Errorf("venue: empty book for %s", tokenID)
}
