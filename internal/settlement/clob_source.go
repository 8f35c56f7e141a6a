package settlement

import (
	"context"
	"fmt"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/postracker"
)

// PriceFetcher fetches a token's current CLOB price, grounded on
// spec.md §6's `GET /prices?token_ids=<id>` endpoint shape.
type PriceFetcher interface {
	TokenPrice(ctx context.Context, tokenID string) (money.Price, error)
}

// TokenResolver maps a coin + window to the winning token ID the
// position was held in, so the fast-settle path knows which price to
// probe.
type TokenResolver interface {
	WinningTokenID(coin string, windowStart int64, tracker *postracker.WindowPositionTracker) (tokenID string, isYes bool, ok bool)
}

var (
	fastSettleHighThreshold = money.NewFromFloat(0.90)
	fastSettleLowThreshold  = money.NewFromFloat(0.10)
)

// ClobFastSettle is settlement cascade step 1: probe the current CLOB
// price of the position's token. A price at or above 0.90 confirms that
// side won; at or below 0.10 confirms it lost. Anything in between is
// inconclusive and the cascade moves on.
type ClobFastSettle struct {
	prices    PriceFetcher
	resolver  TokenResolver
}

func NewClobFastSettle(prices PriceFetcher, resolver TokenResolver) *ClobFastSettle {
	return &ClobFastSettle{prices: prices, resolver: resolver}
}

func (c *ClobFastSettle) Name() string { return "clob_fast_settle" }

func (c *ClobFastSettle) Resolve(ctx context.Context, coin string, windowStart, windowEnd int64, tracker *postracker.WindowPositionTracker) (WindowOutcome, bool, error) {
	tokenID, isYes, ok := c.resolver.WinningTokenID(coin, windowStart, tracker)
	if !ok {
		return 0, false, nil
	}

	price, err := c.prices.TokenPrice(ctx, tokenID)
	if err != nil {
		return 0, false, fmt.Errorf("settlement: clob fast-settle: %w", err)
	}

	switch {
	case price.GreaterThanOrEqual(fastSettleHighThreshold):
		if isYes {
			return YesWon, true, nil
		}
		return NoWon, true, nil
	case price.LessThanOrEqual(fastSettleLowThreshold):
		if isYes {
			return NoWon, true, nil
		}
		return YesWon, true, nil
	default:
		return 0, false, nil
	}
}
