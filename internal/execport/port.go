// Package execport defines the execution port capability set and its
// Paper/Live adapters, per spec.md §4.7. Grounded on the teacher's
// internal/paper/simulator.go (fill logic, fee/slippage handling, id
// format) generalized from float64+string-side to money.Price+OrderSide,
// and on cmd/trader/main.go's CLOB order-placement flow for the Live
// adapter.
package execport

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/orderbook"
)

// OrderSide is Buy or Sell on a single binary-market token.
type OrderSide int

const (
	Buy OrderSide = iota
	Sell
)

func (s OrderSide) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Position is one token's current inventory.
type Position struct {
	TokenID string
	Size    money.Price
}

// OrderRequest is the uniform order shape for both adapters.
type OrderRequest struct {
	TokenID    string
	Side       OrderSide
	Size       money.Price
	LimitPrice money.Price
	Slippage   float64 // fraction, e.g. 0.05 for 5%
}

// OrderReceipt is returned on successful (or partially successful)
// placement.
type OrderReceipt struct {
	OrderID     string
	TradeID     string
	TokenID     string
	Side        OrderSide
	Status      string
	Filled      bool
	FillPrice   money.Price
	FillSize    money.Price
	AmountUSDC  money.Price
	FeeUSDC     money.Price
	TimestampMs int64
}

// Sentinel execution errors, per spec.md §4.7.
var (
	ErrInsufficientFunds = errors.New("execport: insufficient funds")
	ErrBelowMinSize      = errors.New("execport: order below minimum size")
	ErrTimeout           = errors.New("execport: timeout")
	ErrNetwork           = errors.New("execport: network error")
)

// RejectedError wraps a venue-supplied rejection reason.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return fmt.Sprintf("execport: rejected: %s", e.Reason) }

// Port is the polymorphic capability set spec.md §4.7 names: authenticate,
// get_balance, get_positions, place_order, cancel.
type Port interface {
	Authenticate(ctx context.Context) error
	GetBalance(ctx context.Context) (money.Price, error)
	GetPositions(ctx context.Context) ([]Position, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderReceipt, error)
	Cancel(ctx context.Context, orderID string) error
}

// BookView is the read surface an adapter needs to price a market order:
// top-of-book for display/gating, plus a depth walk for the actual fill —
// grounded on original_source's simulate_fill, which prices an order across
// as many levels as it takes rather than assuming the whole size clears at
// the best price. Matches *orderbook.Book's own method set directly.
type BookView interface {
	BestBid() (orderbook.Level, bool)
	BestAsk() (orderbook.Level, bool)
	SimulateFill(side orderbook.Side, targetSize money.Price) (orderbook.Fill, bool)
}

// ApplySlippage widens price away from the trader's favor by the given
// fraction: up for buys, down for sells. Mirrors the teacher's
// applySlippage but operates on exact decimals instead of float64 bps.
func ApplySlippage(price money.Price, side OrderSide, slippage float64) money.Price {
	if slippage <= 0 {
		return price
	}
	factor := money.NewFromFloat(1 + slippage)
	if side == Sell {
		factor = money.NewFromFloat(1 - slippage)
	}
	return price.Mul(factor)
}
