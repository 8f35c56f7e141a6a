package execport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob/clobtypes"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

// LiveConfig carries the retry policy for order placement (spec.md §4.7):
// how many times PlaceOrder resubmits after a failed attempt, and the first
// wait between attempts, which doubles on each retry.
type LiveConfig struct {
	MaxRetries   int
	RetryBaseDelay time.Duration
}

func DefaultLiveConfig() LiveConfig {
	return LiveConfig{MaxRetries: 1, RetryBaseDelay: 500 * time.Millisecond}
}

// LiveAdapter wraps an EIP-712-signing wallet and the Polymarket CLOB
// REST flow. Grounded on cmd/trader/main.go's placeLimit/placeMarket and
// the clobClient.WithAuth wiring.
type LiveAdapter struct {
	client clob.Client
	signer auth.Signer
	apiKey *auth.APIKey
	cfg    LiveConfig
	log    *slog.Logger

	authenticated bool
}

func NewLiveAdapter(client clob.Client, signer auth.Signer, apiKey *auth.APIKey, cfg LiveConfig, logger *slog.Logger) *LiveAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveAdapter{client: client, signer: signer, apiKey: apiKey, cfg: cfg, log: logger}
}

// Authenticate checks that the adapter was given a non-empty API key and
// marks it ready. It sends no request to the venue and derives no
// credentials; orders use the client and API key passed to NewLiveAdapter.
func (l *LiveAdapter) Authenticate(ctx context.Context) error {
	if l.apiKey == nil || l.apiKey.Key == "" {
		return fmt.Errorf("execport: live adapter requires an API key")
	}
	l.authenticated = true
	return nil
}

func (l *LiveAdapter) GetBalance(ctx context.Context) (money.Price, error) {
	resp, err := l.client.Balance(ctx, &clobtypes.BalanceRequest{})
	if err != nil {
		return money.Zero, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return money.NewFromString(resp.Balance)
}

func (l *LiveAdapter) GetPositions(ctx context.Context) ([]Position, error) {
	resp, err := l.client.Positions(ctx, &clobtypes.PositionsRequest{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	out := make([]Position, 0, len(resp.Data))
	for _, p := range resp.Data {
		size, perr := money.NewFromString(p.Size)
		if perr != nil {
			continue
		}
		out = append(out, Position{TokenID: p.TokenID, Size: size})
	}
	return out, nil
}

func (l *LiveAdapter) Cancel(ctx context.Context, orderID string) error {
	_, err := l.client.CancelOrders(ctx, &clobtypes.CancelOrdersRequest{OrderIDs: []string{orderID}})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return nil
}

// PlaceOrder converts size+price to the venue's signed order format and
// submits it, retrying a failed build or submission up to MaxRetries times
// with a doubling delay before giving up. It does not poll for fills: the
// receipt's fill fields come from the submission response alone.
func (l *LiveAdapter) PlaceOrder(ctx context.Context, req OrderRequest) (OrderReceipt, error) {
	if !l.authenticated {
		if err := l.Authenticate(ctx); err != nil {
			return OrderReceipt{}, err
		}
	}
	if req.Size.IsZero() || req.Size.IsNegative() {
		return OrderReceipt{}, ErrBelowMinSize
	}

	limitPrice := ApplySlippage(req.LimitPrice, req.Side, req.Slippage)
	amountUSDC := req.Size.Mul(limitPrice)

	builder := clob.NewOrderBuilder(l.client, l.signer).
		TokenID(req.TokenID).
		Side(req.Side.String()).
		Price(limitPrice.Float64()).
		AmountUSDC(amountUSDC.Float64()).
		OrderType(clobtypes.OrderTypeFAK)

	var lastErr error
	delay := l.cfg.RetryBaseDelay
	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		signable, err := builder.BuildMarketWithContext(ctx)
		if err != nil {
			lastErr = fmt.Errorf("%w: build order: %v", ErrNetwork, err)
		} else {
			resp, placeErr := l.client.CreateOrderFromSignable(ctx, signable)
			if placeErr == nil {
				return l.toReceipt(resp, req), nil
			}
			lastErr = classifyError(placeErr)
		}

		l.log.Warn("place_order retrying", "token_id", req.TokenID, "attempt", attempt, "err", lastErr)
		select {
		case <-ctx.Done():
			return OrderReceipt{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return OrderReceipt{}, lastErr
}

func (l *LiveAdapter) toReceipt(resp clobtypes.OrderResponse, req OrderRequest) OrderReceipt {
	fillPrice, _ := money.NewFromString(fmt.Sprintf("%v", resp.Price))
	fillSize, _ := money.NewFromString(fmt.Sprintf("%v", resp.SizeMatched))
	return OrderReceipt{
		OrderID:    resp.ID,
		TradeID:    resp.ID,
		TokenID:    req.TokenID,
		Side:       req.Side,
		Status:     resp.Status,
		Filled:     resp.Status == "matched" || resp.Status == "FILLED",
		FillPrice:  fillPrice,
		FillSize:   fillSize,
		AmountUSDC: fillSize.Mul(fillPrice),
	}
}

// classifyError maps a venue error into one of spec.md §4.7's sentinel
// categories, falling back to a RejectedError carrying the raw message.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient"):
		return ErrInsufficientFunds
	case strings.Contains(msg, "min") && strings.Contains(msg, "size"):
		return ErrBelowMinSize
	case strings.Contains(msg, "timeout"):
		return ErrTimeout
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection"):
		return ErrNetwork
	default:
		return &RejectedError{Reason: err.Error()}
	}
}
