package settlement

import (
	"context"
	"fmt"

	"github.com/GoPolymarket/polymarket-trader/internal/postracker"
)

// MarketResolution is what the prediction-market resolution API reports
// for a given market.
type MarketResolution struct {
	Resolved bool
	Outcome  WindowOutcome
}

// ResolutionLookup looks up a market's resolution by coin and
// window-end timestamp, grounded on spec.md §6's Gamma-style market
// metadata endpoint.
type ResolutionLookup interface {
	MarketResolution(ctx context.Context, coin string, windowEnd int64) (MarketResolution, error)
}

// ResolutionAPISource is settlement cascade step 2: ask the
// prediction-market's own resolution API whether the market for this
// window has resolved.
type ResolutionAPISource struct {
	lookup ResolutionLookup
}

func NewResolutionAPISource(lookup ResolutionLookup) *ResolutionAPISource {
	return &ResolutionAPISource{lookup: lookup}
}

func (r *ResolutionAPISource) Name() string { return "resolution_api" }

func (r *ResolutionAPISource) Resolve(ctx context.Context, coin string, windowStart, windowEnd int64, tracker *postracker.WindowPositionTracker) (WindowOutcome, bool, error) {
	res, err := r.lookup.MarketResolution(ctx, coin, windowEnd)
	if err != nil {
		return 0, false, fmt.Errorf("settlement: resolution api: %w", err)
	}
	if !res.Resolved {
		return 0, false, nil
	}
	return res.Outcome, true, nil
}
