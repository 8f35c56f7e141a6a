package settlement

import (
	"context"
	"fmt"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/postracker"
)

// PriceFeed reads a Chainlink-style on-chain price feed at a given
// timestamp, via latestRoundData()/getRoundData() against the feed
// contract for the given coin.
type PriceFeed interface {
	PriceAt(ctx context.Context, coin string, timestampMs int64) (money.Price, error)
}

// OracleFallback is settlement cascade step 3, the final authority when
// neither the CLOB price nor the resolution API settled the window:
// compare the oracle price at window_start and window_end directly.
type OracleFallback struct {
	feed PriceFeed
}

func NewOracleFallback(feed PriceFeed) *OracleFallback {
	return &OracleFallback{feed: feed}
}

func (o *OracleFallback) Name() string { return "chainlink_oracle" }

func (o *OracleFallback) Resolve(ctx context.Context, coin string, windowStart, windowEnd int64, tracker *postracker.WindowPositionTracker) (WindowOutcome, bool, error) {
	start, err := o.feed.PriceAt(ctx, coin, windowStart)
	if err != nil {
		return 0, false, fmt.Errorf("settlement: oracle fallback: window_start price: %w", err)
	}
	end, err := o.feed.PriceAt(ctx, coin, windowEnd)
	if err != nil {
		return 0, false, fmt.Errorf("settlement: oracle fallback: window_end price: %w", err)
	}
	return DetermineOutcome(end, start), true, nil
}
