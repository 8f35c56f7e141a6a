// Package clobclient probes Polymarket's CLOB REST price endpoint
// directly, spec.md §4.10 step 1's "fast-settle" source: a lightweight
// GET that returns the current best price for a token without opening
// or reading a WebSocket order book. Distinct from
// internal/venue.PolymarketSession.TokenPrice (which reads the live WS
// book maintained for market-making), this package exists because the
// settlement cascade wants a point-in-time probe even if the WS session
// for that market has already been torn down once a window closes.
// Built on github.com/go-resty/resty/v2, the same REST-stack choice as
// internal/gammaclient, grounded on 0xtitan6-polymarket-mm's
// internal/exchange.Client shape.
package clobclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

// Client queries CLOB's /prices endpoint for a single token's current
// price.
type Client struct {
	http *resty.Client
}

// NewClient builds a client against baseURL (e.g.
// "https://clob.polymarket.com").
func NewClient(baseURL string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &Client{http: http}
}

type priceEntry struct {
	Price string `json:"price"`
}

// TokenPrice satisfies internal/settlement.PriceFetcher: the response
// shape is spec.md §6.1's `GET /prices?token_ids=<id>` — a map keyed by
// token ID, each value carrying the current price as a decimal string.
func (c *Client) TokenPrice(ctx context.Context, tokenID string) (money.Price, error) {
	var result map[string]priceEntry
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("token_ids", tokenID).
		SetResult(&result).
		Get("/prices")
	if err != nil {
		return money.Price{}, fmt.Errorf("clobclient: token price: %w", err)
	}
	if resp.IsError() {
		return money.Price{}, fmt.Errorf("clobclient: token price: status %d: %s", resp.StatusCode(), resp.String())
	}

	entry, ok := result[tokenID]
	if !ok {
		return money.Price{}, fmt.Errorf("clobclient: no price entry for token %s", tokenID)
	}
	price, err := money.NewFromString(entry.Price)
	if err != nil {
		return money.Price{}, fmt.Errorf("clobclient: parse price %q: %w", entry.Price, err)
	}
	return price, nil
}
