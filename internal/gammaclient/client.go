// Package gammaclient talks to the prediction-market metadata API
// ("Gamma") spec.md §6.1 names: current 15-minute market lookup by coin,
// and resolution lookup for the settlement cascade's second path. Built
// on github.com/go-resty/resty/v2, the REST stack 0xtitan6-polymarket-mm's
// internal/exchange.Client uses (base URL + timeout + retry-on-5xx,
// typed SetResult decoding) — generalized here from Polymarket's CLOB
// order endpoints to Gamma's read-only market listing.
package gammaclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/GoPolymarket/polymarket-trader/internal/runner"
	"github.com/GoPolymarket/polymarket-trader/internal/settlement"
)

// windowLength is the fixed 15-minute market duration spec.md assumes
// throughout.
const windowLength = 15 * time.Minute

// Client queries the Gamma markets endpoint for one coin's active
// 15-minute market and for past markets' resolutions.
type Client struct {
	http *resty.Client
}

// NewClient builds a client against baseURL (e.g.
// "https://gamma-api.polymarket.com").
func NewClient(baseURL string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &Client{http: http}
}

type gammaToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
}

type gammaMarket struct {
	ID            string       `json:"id"`
	Question      string       `json:"question"`
	EndDate       string       `json:"endDate"`
	Closed        bool         `json:"closed"`
	Active        bool         `json:"active"`
	Tokens        []gammaToken `json:"tokens"`
	OutcomePrices []string     `json:"outcomePrices"`
}

func seriesSlug(coin string) string {
	return "crypto-" + strings.ToLower(coin) + "-15m"
}

func tokensFor(tokens []gammaToken) (yesID, noID string) {
	for _, t := range tokens {
		switch strings.ToLower(t.Outcome) {
		case "yes":
			yesID = t.TokenID
		case "no":
			noID = t.TokenID
		}
	}
	return yesID, noID
}

// FetchMarket satisfies internal/runner.MetadataSource: the nearest
// active, not-yet-closed 15-minute market for coin.
func (c *Client) FetchMarket(ctx context.Context, coin string) (runner.MarketMetadata, error) {
	var markets []gammaMarket
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"series_slug": seriesSlug(coin),
			"active":      "true",
			"closed":      "false",
			"order":       "endDate",
			"ascending":   "true",
			"limit":       "1",
		}).
		SetResult(&markets).
		Get("/markets")
	if err != nil {
		return runner.MarketMetadata{}, fmt.Errorf("gammaclient: fetch market: %w", err)
	}
	if resp.IsError() {
		return runner.MarketMetadata{}, fmt.Errorf("gammaclient: fetch market: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(markets) == 0 {
		return runner.MarketMetadata{}, fmt.Errorf("gammaclient: no active market for %s", coin)
	}

	m := markets[0]
	end, err := time.Parse(time.RFC3339, m.EndDate)
	if err != nil {
		return runner.MarketMetadata{}, fmt.Errorf("gammaclient: parse endDate %q: %w", m.EndDate, err)
	}
	windowEnd := end.UnixMilli()
	yesID, noID := tokensFor(m.Tokens)

	return runner.MarketMetadata{
		Coin:        coin,
		Question:    m.Question,
		WindowStart: windowEnd - windowLength.Milliseconds(),
		WindowEnd:   windowEnd,
		YesTokenID:  yesID,
		NoTokenID:   noID,
	}, nil
}

// MarketResolution satisfies internal/settlement.ResolutionLookup: look
// up the market whose window ends at windowEnd and, if closed, map its
// settled outcome prices to a WindowOutcome.
func (c *Client) MarketResolution(ctx context.Context, coin string, windowEnd int64) (settlement.MarketResolution, error) {
	end := time.UnixMilli(windowEnd).UTC()
	var markets []gammaMarket
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"series_slug":  seriesSlug(coin),
			"end_date_min": end.Add(-time.Second).Format(time.RFC3339),
			"end_date_max": end.Add(time.Second).Format(time.RFC3339),
			"limit":        "1",
		}).
		SetResult(&markets).
		Get("/markets")
	if err != nil {
		return settlement.MarketResolution{}, fmt.Errorf("gammaclient: market resolution: %w", err)
	}
	if resp.IsError() {
		return settlement.MarketResolution{}, fmt.Errorf("gammaclient: market resolution: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(markets) == 0 || !markets[0].Closed || len(markets[0].OutcomePrices) < 1 {
		return settlement.MarketResolution{Resolved: false}, nil
	}

	yesPrice, err := strconv.ParseFloat(markets[0].OutcomePrices[0], 64)
	if err != nil {
		return settlement.MarketResolution{}, fmt.Errorf("gammaclient: parse outcome price: %w", err)
	}
	outcome := settlement.NoWon
	if yesPrice >= 0.5 {
		outcome = settlement.YesWon
	}
	return settlement.MarketResolution{Resolved: true, Outcome: outcome}, nil
}
