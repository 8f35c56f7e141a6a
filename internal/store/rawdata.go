package store

import (
	"context"
	"fmt"

	"github.com/GoPolymarket/polymarket-trader/internal/rawdata"
)

// InsertOrderBookBatch, InsertFundingBatch, and InsertLiquidationBatch
// together satisfy rawdata.Sink, so *DB can be handed directly to
// rawdata.NewCollectors at the composition root.
var _ rawdata.Sink = (*DB)(nil)

func (db *DB) InsertOrderBookBatch(ctx context.Context, records []rawdata.OrderBookRecord) error {
	if len(records) == 0 {
		return nil
	}
	args := make([]any, 0, len(records)*7)
	for _, r := range records {
		args = append(args, r.Coin, r.AssetID, r.BestBid, r.BestAsk, r.BidDepth, r.AskDepth, r.TimestampMs)
	}
	q := fmt.Sprintf(`INSERT INTO orderbook_snapshots (coin, asset_id, best_bid, best_ask, bid_depth, ask_depth, timestamp_ms) VALUES %s`,
		placeholders(len(records), 7))
	if _, err := db.conn.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store: insert orderbook batch: %w", err)
	}
	return nil
}

func (db *DB) InsertFundingBatch(ctx context.Context, records []rawdata.FundingRecord) error {
	if len(records) == 0 {
		return nil
	}
	args := make([]any, 0, len(records)*5)
	for _, r := range records {
		args = append(args, r.Coin, r.Symbol, r.Rate, r.AnnualizedRate, r.TimestampMs)
	}
	q := fmt.Sprintf(`INSERT INTO funding_rates (coin, symbol, rate, annualized_rate, timestamp_ms) VALUES %s`,
		placeholders(len(records), 5))
	if _, err := db.conn.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store: insert funding batch: %w", err)
	}
	return nil
}

func (db *DB) InsertLiquidationBatch(ctx context.Context, records []rawdata.LiquidationRecord) error {
	if len(records) == 0 {
		return nil
	}
	args := make([]any, 0, len(records)*6)
	for _, r := range records {
		args = append(args, r.Coin, r.Symbol, r.Side, r.Qty, r.Price, r.TimestampMs)
	}
	q := fmt.Sprintf(`INSERT INTO liquidations (coin, symbol, side, qty, price, timestamp_ms) VALUES %s`,
		placeholders(len(records), 6))
	if _, err := db.conn.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store: insert liquidation batch: %w", err)
	}
	return nil
}
