package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GoPolymarket/polymarket-trader/internal/executor"
	"github.com/GoPolymarket/polymarket-trader/internal/settlement"
)

// InsertTrade persists a fill the executor placed, assigning it a fresh
// UUID as its durable trade ID.
func (db *DB) InsertTrade(ctx context.Context, tr executor.TradeRecord) (string, error) {
	id := uuid.New().String()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO trades (id, coin, window_start_ms, direction, token_id, side, size, price, cost, order_id, detector, placed_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, tr.Coin, tr.WindowStart, tr.Direction, tr.TokenID, int(tr.Side), tr.Size, tr.Price, tr.Cost, tr.OrderID, tr.Detector, tr.PlacedAtMs,
	)
	if err != nil {
		return "", fmt.Errorf("store: insert trade: %w", err)
	}
	return id, nil
}

// UpdateTradeSettlement marks every trade row for coin's window with the
// cascade's outcome, settling every trade the executor placed in that
// window at once (a window can hold more than one trade up to
// max_trades_per_window).
func (db *DB) UpdateTradeSettlement(ctx context.Context, coin string, windowStartMs int64, result settlement.Result) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE trades
		SET outcome = $1, was_hedged = $2, realized_pnl = $3, settled_at = $4
		WHERE coin = $5 AND window_start_ms = $6`,
		int(result.Outcome), result.WasHedged, result.RealizedPnl, asTimestamp(result.SettledAt), coin, windowStartMs,
	)
	if err != nil {
		return fmt.Errorf("store: update trade settlement: %w", err)
	}
	return nil
}

func asTimestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
