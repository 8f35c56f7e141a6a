// Package kalshiclient reads Kalshi's same-underlying 15-minute crypto
// markets for the cross-exchange spread detector (spec.md's purpose
// paragraph: "cross-exchange arbitrage detection against Kalshi").
// Method shape and RSA-signed-request auth are grounded on
// sdibella-kalshi-btc15m's internal/kalshi.Client (GetMarket,
// AuthHeaders' KALSHI-ACCESS-KEY/TIMESTAMP/SIGNATURE headers over
// timestamp+method+path, signed with RSA-PSS/SHA-256); the transport is
// github.com/go-resty/resty/v2 rather than the teacher's plain
// net/http, matching SPEC_FULL.md's dependency assignment of resty to
// every new REST venue client in this repo.
package kalshiclient

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/GoPolymarket/polymarket-trader/internal/detect"
	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

// Client queries Kalshi's market data for one coin's active 15-minute
// market and converts its integer-cents quote into a detect.KalshiQuote.
type Client struct {
	http       *resty.Client
	apiKeyID   string
	privKey    *rsa.PrivateKey
	pathPrefix string
}

// LoadPrivateKey reads a PEM-encoded RSA private key, trying PKCS8 then
// PKCS1, the same fallback order sdibella-kalshi-btc15m's auth.go uses.
func LoadPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("kalshiclient: no PEM block found in key")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("kalshiclient: private key is not RSA")
		}
		return rsaKey, nil
	}
	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("kalshiclient: parsing private key (tried PKCS8 and PKCS1): %w", err)
	}
	return rsaKey, nil
}

// sign computes the base64 RSA-PSS/SHA-256 signature over
// timestampMs+method+path, Kalshi's required request-signing message.
func sign(privKey *rsa.PrivateKey, timestampMs, method, path string) (string, error) {
	message := timestampMs + method + path
	hash := sha256.Sum256([]byte(message))
	sig, err := rsa.SignPSS(rand.Reader, privKey, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return "", fmt.Errorf("kalshiclient: signing request: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// NewClient builds a client against baseURL (e.g.
// "https://trading-api.kalshi.com/trade-api/v2"), signing every request
// with apiKeyID/privKey per Kalshi's KALSHI-ACCESS-* header scheme.
func NewClient(baseURL, apiKeyID string, privKey *rsa.PrivateKey) *Client {
	pathPrefix := ""
	if idx := strings.Index(baseURL[strings.Index(baseURL, "://")+3:], "/"); idx >= 0 {
		pathPrefix = baseURL[strings.Index(baseURL, "://")+3+idx:]
	}

	c := &Client{
		apiKeyID:   apiKeyID,
		privKey:    privKey,
		pathPrefix: pathPrefix,
	}
	c.http = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
			signPath := c.pathPrefix + req.URL
			if idx := strings.Index(signPath, "?"); idx >= 0 {
				signPath = signPath[:idx]
			}
			sig, err := sign(c.privKey, ts, strings.ToUpper(req.Method), signPath)
			if err != nil {
				return err
			}
			req.SetHeader("KALSHI-ACCESS-KEY", c.apiKeyID)
			req.SetHeader("KALSHI-ACCESS-TIMESTAMP", ts)
			req.SetHeader("KALSHI-ACCESS-SIGNATURE", sig)
			return nil
		})
	return c
}

type kalshiMarket struct {
	Ticker string `json:"ticker"`
	YesBid int    `json:"yes_bid"`
	YesAsk int    `json:"yes_ask"`
}

func seriesTicker(coin string) string {
	return "KX" + strings.ToUpper(coin) + "15M"
}

// centsToPrice converts a Kalshi integer-cents quote (0-100) to a
// money.Price in the same [0,1] scale Polymarket quotes use.
func centsToPrice(cents int) money.Price {
	return money.NewFromFloat(float64(cents) / 100.0)
}

// Quote satisfies the data internal/detect.KalshiSpreadDetector needs:
// the nearest open 15-minute market's best YES bid/ask for coin.
func (c *Client) Quote(ctx context.Context, coin string) (detect.KalshiQuote, error) {
	var result struct {
		Markets []kalshiMarket `json:"markets"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"series_ticker": seriesTicker(coin),
			"status":        "open",
			"limit":         "1",
		}).
		SetResult(&result).
		Get("/markets")
	if err != nil {
		return detect.KalshiQuote{}, fmt.Errorf("kalshiclient: quote: %w", err)
	}
	if resp.IsError() {
		return detect.KalshiQuote{}, fmt.Errorf("kalshiclient: quote: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Markets) == 0 {
		return detect.KalshiQuote{}, fmt.Errorf("kalshiclient: no open market for %s", coin)
	}

	m := result.Markets[0]
	return detect.KalshiQuote{
		Coin:        coin,
		YesBid:      centsToPrice(m.YesBid),
		YesAsk:      centsToPrice(m.YesAsk),
		TimestampMs: time.Now().UnixMilli(),
	}, nil
}
