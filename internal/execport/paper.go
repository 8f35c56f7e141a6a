package execport

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/orderbook"
)

func sideName(s orderbook.Side) string {
	if s == orderbook.Bid {
		return "bid"
	}
	return "ask"
}

// PaperConfig mirrors the teacher's paper.Config, generalized to exact
// decimals: initial balance, fee rate, and slippage as fractions rather
// than basis-point floats.
type PaperConfig struct {
	InitialBalanceUSDC money.Price
	FeeRate            float64 // fraction, e.g. 0.02 for 2%
	SlippageRate       float64
	AllowShort         bool
}

func DefaultPaperConfig() PaperConfig {
	return PaperConfig{
		InitialBalanceUSDC: money.NewFromFloat(1000),
		FeeRate:            0.02,
		SlippageRate:       0.0,
		AllowShort:         false,
	}
}

// PaperAdapter is the in-memory Port implementation from spec.md §4.7:
// "In-memory balance, positions map, monotonic trade IDs."
type PaperAdapter struct {
	mu sync.Mutex

	cfg PaperConfig

	sequence     int64
	balance      money.Price
	feesPaid     money.Price
	totalVolume  money.Price
	totalTrades  int
	inventory    map[string]money.Price
	books        map[string]BookView
}

func NewPaperAdapter(cfg PaperConfig) *PaperAdapter {
	return &PaperAdapter{
		cfg:       cfg,
		balance:   cfg.InitialBalanceUSDC,
		feesPaid:  money.Zero,
		inventory: make(map[string]money.Price),
		books:     make(map[string]BookView),
	}
}

// SetBook registers the live book the simulator should price orders
// against for tokenID. Called by the runner/executor wiring whenever a
// book updates.
func (p *PaperAdapter) SetBook(tokenID string, book BookView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.books[tokenID] = book
}

func (p *PaperAdapter) Authenticate(ctx context.Context) error { return nil }

func (p *PaperAdapter) GetBalance(ctx context.Context) (money.Price, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

func (p *PaperAdapter) GetPositions(ctx context.Context) ([]Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Position, 0, len(p.inventory))
	for tokenID, size := range p.inventory {
		out = append(out, Position{TokenID: tokenID, Size: size})
	}
	return out, nil
}

func (p *PaperAdapter) Cancel(ctx context.Context, orderID string) error {
	return nil // resting paper orders are not modeled; market fills only
}

// PlaceOrder walks the registered live book's opposite side (asks for a
// buy, bids for a sell) via SimulateFill to price req.Size across as many
// levels as it takes — grounded on original_source's simulate_fill, rather
// than assuming the whole order clears at the single best price — deducts
// balance, updates inventory, and returns a synthetic receipt carrying the
// realized VWAP. No side effects beyond in-memory state, per spec.md §4.7.
func (p *PaperAdapter) PlaceOrder(ctx context.Context, req OrderRequest) (OrderReceipt, error) {
	if req.Size.IsZero() || req.Size.IsNegative() {
		return OrderReceipt{}, ErrBelowMinSize
	}

	p.mu.Lock()
	book, ok := p.books[req.TokenID]
	p.mu.Unlock()
	if !ok {
		return OrderReceipt{}, fmt.Errorf("%w: no book registered for %s", ErrNetwork, req.TokenID)
	}

	bookSide := orderbook.Ask
	if req.Side == Sell {
		bookSide = orderbook.Bid
	}
	fill, ok := book.SimulateFill(bookSide, req.Size)
	if !ok {
		return OrderReceipt{}, fmt.Errorf("%w: empty %s side", ErrNetwork, sideName(bookSide))
	}
	if !fill.SufficientDepth {
		return OrderReceipt{}, fmt.Errorf("%w: book depth %s short of requested %s", ErrNetwork, fill.Filled, req.Size)
	}

	price := ApplySlippage(fill.VWAP, req.Side, p.cfg.SlippageRate)

	amount := req.Size.Mul(price)
	fee := amount.Mul(money.NewFromFloat(p.cfg.FeeRate))

	p.mu.Lock()
	defer p.mu.Unlock()

	switch req.Side {
	case Buy:
		if amount.Add(fee).GreaterThan(p.balance) {
			return OrderReceipt{}, ErrInsufficientFunds
		}
	case Sell:
		if !p.cfg.AllowShort {
			current := p.inventory[req.TokenID]
			if current.LessThan(req.Size) {
				return OrderReceipt{}, fmt.Errorf("%w: insufficient paper inventory", ErrBelowMinSize)
			}
		}
	}

	p.sequence++
	orderID := fmt.Sprintf("paper-order-%06d", p.sequence)
	p.sequence++
	tradeID := fmt.Sprintf("paper-trade-%06d", p.sequence)

	if req.Side == Buy {
		p.balance = p.balance.Sub(amount).Sub(fee)
		p.inventory[req.TokenID] = p.inventory[req.TokenID].Add(req.Size)
	} else {
		p.balance = p.balance.Add(amount).Sub(fee)
		p.inventory[req.TokenID] = p.inventory[req.TokenID].Sub(req.Size)
		if p.inventory[req.TokenID].IsZero() {
			delete(p.inventory, req.TokenID)
		}
	}
	p.feesPaid = p.feesPaid.Add(fee)
	p.totalVolume = p.totalVolume.Add(amount)
	p.totalTrades++

	return OrderReceipt{
		OrderID:    orderID,
		TradeID:    tradeID,
		TokenID:    req.TokenID,
		Side:       req.Side,
		Status:     "FILLED",
		Filled:     true,
		FillPrice:  price,
		FillSize:   req.Size,
		AmountUSDC: amount,
		FeeUSDC:    fee,
	}, nil
}

// Snapshot reports the simulator's running totals, mirroring the
// teacher's paper.Snapshot.
type Snapshot struct {
	InitialBalanceUSDC money.Price
	BalanceUSDC        money.Price
	FeesPaidUSDC       money.Price
	TotalVolumeUSDC    money.Price
	TotalTrades        int
}

func (p *PaperAdapter) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		InitialBalanceUSDC: p.cfg.InitialBalanceUSDC,
		BalanceUSDC:        p.balance,
		FeesPaidUSDC:       p.feesPaid,
		TotalVolumeUSDC:    p.totalVolume,
		TotalTrades:        p.totalTrades,
	}
}
