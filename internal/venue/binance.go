// Package venue holds the reconnecting WebSocket/REST sessions for every
// upstream price source: Binance spot trades/funding/liquidations, the
// Polymarket CLOB book feed, and a Chainlink oracle RPC client. The
// reconnect-loop shape (connect, read until error, sleep, retry,
// resubscribe tracked channels) is grounded on
// sdibella-kalshi-btc15m's internal/kalshi/ws.go.
package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

// Trade is a single Binance aggTrade event, decimal-parsed per spec.md
// §6.2 ("never route through binary float").
type Trade struct {
	Symbol      string
	Price       money.Price
	TradeTimeMs int64
}

// Liquidation is a Binance forceOrder event.
type Liquidation struct {
	Symbol      string
	Side        string // "BUY" or "SELL"
	Qty         money.Price
	Price       money.Price
	TradeTimeMs int64
}

// FundingRate is one entry from /fapi/v1/fundingRate.
type FundingRate struct {
	Symbol        string
	Rate          money.Price
	FundingTimeMs int64
}

type binanceAggTradeMsg struct {
	EventType string `json:"e"`
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

type binanceForceOrderMsg struct {
	EventType string `json:"e"`
	Order     struct {
		Symbol    string `json:"s"`
		Side      string `json:"S"`
		Qty       string `json:"q"`
		Price     string `json:"p"`
		TradeTime int64  `json:"T"`
	} `json:"o"`
}

// BinanceConfig carries the reconnection policy and base URLs.
type BinanceConfig struct {
	WSBaseURL   string
	RESTBaseURL string
	Reconnect   ReconnectPolicy
}

func DefaultBinanceConfig() BinanceConfig {
	return BinanceConfig{
		WSBaseURL:   "wss://fstream.binance.com/stream",
		RESTBaseURL: "https://fapi.binance.com",
		Reconnect:   DefaultReconnectPolicy(),
	}
}

// BinanceSession streams aggTrade and forceOrder events for a set of
// symbols over a single combined-stream connection, reconnecting on
// error with exponential backoff.
type BinanceSession struct {
	cfg     BinanceConfig
	log     *slog.Logger
	symbols []string

	onTrade func(Trade)
	onLiq   func(Liquidation)

	httpClient *http.Client
}

func NewBinanceSession(cfg BinanceConfig, symbols []string, onTrade func(Trade), onLiq func(Liquidation), logger *slog.Logger) *BinanceSession {
	if logger == nil {
		logger = slog.Default()
	}
	return &BinanceSession{
		cfg:        cfg,
		log:        logger,
		symbols:    symbols,
		onTrade:    onTrade,
		onLiq:      onLiq,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Run connects and processes messages until ctx is cancelled, reconnecting
// with exponential backoff (cfg.Reconnect) between attempts. Returns
// ErrMaxReconnects once cfg.Reconnect.MaxAttempts consecutive failures are
// exhausted.
func (s *BinanceSession) Run(ctx context.Context) error {
	return runReconnectLoop(ctx, s.cfg.Reconnect, s.log, "binance ws", s.connect)
}

func (s *BinanceSession) streamURL() string {
	streams := make([]string, 0, len(s.symbols)*2)
	for _, sym := range s.symbols {
		lower := strings.ToLower(sym)
		streams = append(streams, lower+"@aggTrade", lower+"@forceOrder")
	}
	return s.cfg.WSBaseURL + "?streams=" + url.QueryEscape(strings.Join(streams, "/"))
}

func (s *BinanceSession) connect(ctx context.Context, onConnected func()) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("venue: binance dial: %w", err)
	}
	defer conn.Close()

	s.log.Info("binance ws connected", "symbols", s.symbols)
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
		s.handleMessage(msg)
	}
}

type binanceEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

func (s *BinanceSession) handleMessage(raw []byte) {
	var env binanceEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Data) == 0 {
		return
	}

	switch {
	case strings.Contains(env.Stream, "@aggTrade"):
		var m binanceAggTradeMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return
		}
		price, err := money.NewFromString(m.Price)
		if err != nil {
			return
		}
		if s.onTrade != nil {
			s.onTrade(Trade{Symbol: strings.ToUpper(strings.TrimSuffix(env.Stream, "@aggTrade")), Price: price, TradeTimeMs: m.TradeTime})
		}
	case strings.Contains(env.Stream, "@forceOrder"):
		var m binanceForceOrderMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return
		}
		qty, qerr := money.NewFromString(m.Order.Qty)
		price, perr := money.NewFromString(m.Order.Price)
		if qerr != nil || perr != nil {
			return
		}
		if s.onLiq != nil {
			s.onLiq(Liquidation{Symbol: m.Order.Symbol, Side: m.Order.Side, Qty: qty, Price: price, TradeTimeMs: m.Order.TradeTime})
		}
	}
}

// FundingRates pages through /fapi/v1/fundingRate for symbol between
// startMs and endMs, N (limit) entries per page, per spec.md §6.1.
func (s *BinanceSession) FundingRates(ctx context.Context, symbol string, startMs, endMs int64, limit int) ([]FundingRate, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	reqURL := fmt.Sprintf("%s/fapi/v1/fundingRate?symbol=%s&startTime=%d&endTime=%d&limit=%d",
		s.cfg.RESTBaseURL, symbol, startMs, endMs, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("venue: funding rate request: %w", err)
	}
	defer resp.Body.Close()

	var raw []struct {
		Symbol      string `json:"symbol"`
		FundingRate string `json:"fundingRate"`
		FundingTime int64  `json:"fundingTime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("venue: funding rate decode: %w", err)
	}

	out := make([]FundingRate, 0, len(raw))
	for _, r := range raw {
		rate, err := money.NewFromString(r.FundingRate)
		if err != nil {
			continue
		}
		out = append(out, FundingRate{Symbol: r.Symbol, Rate: rate, FundingTimeMs: r.FundingTime})
	}
	return out, nil
}

// AnnualizedFundingRate computes the 8-hour-interval annualization from
// spec.md §6.1: funding_rate · 3 · 365.
func AnnualizedFundingRate(rate money.Price) money.Price {
	return rate.Mul(money.NewFromInt(3)).Mul(money.NewFromInt(365))
}
