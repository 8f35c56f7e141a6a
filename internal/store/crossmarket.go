package store

import (
	"context"
	"fmt"
	"time"

	"github.com/GoPolymarket/polymarket-trader/internal/detect"
	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

// InsertCrossMarketOpportunity records a detected two-leg opportunity as
// pending — the write side the executor's cross-market path calls before
// a later settlement pass queries and marks it resolved.
func (db *DB) InsertCrossMarketOpportunity(ctx context.Context, o detect.CrossMarketOpportunity) (int64, error) {
	var id int64
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO cross_market_opportunities
			(coin1, coin2, combination, leg1_direction, leg1_price, leg1_token_id,
			 leg2_direction, leg2_price, leg2_token_id, total_cost, spread, expected_value,
			 assumed_correlation, win_probability, detected_at_ms)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id`,
		o.Coin1, o.Coin2, o.Combination.String(), o.Leg1Direction, o.Leg1Price, o.Leg1TokenID,
		o.Leg2Direction, o.Leg2Price, o.Leg2TokenID, o.TotalCost, o.Spread, o.ExpectedValue,
		o.AssumedCorrelation, o.WinProbability, o.DetectedAtMs,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert cross-market opportunity: %w", err)
	}
	return id, nil
}

// PendingCrossMarketOpportunity is a stored opportunity awaiting
// settlement, identified by its row ID for MarkOpportunitySettled.
type PendingCrossMarketOpportunity struct {
	ID int64
	detect.CrossMarketOpportunity
}

type pendingRow struct {
	ID                 int64       `db:"id"`
	Coin1              string      `db:"coin1"`
	Coin2              string      `db:"coin2"`
	Combination        string      `db:"combination"`
	Leg1Direction      string      `db:"leg1_direction"`
	Leg1Price          money.Price `db:"leg1_price"`
	Leg1TokenID        string      `db:"leg1_token_id"`
	Leg2Direction      string      `db:"leg2_direction"`
	Leg2Price          money.Price `db:"leg2_price"`
	Leg2TokenID        string      `db:"leg2_token_id"`
	TotalCost          money.Price `db:"total_cost"`
	Spread             money.Price `db:"spread"`
	ExpectedValue      money.Price `db:"expected_value"`
	AssumedCorrelation float64     `db:"assumed_correlation"`
	WinProbability     float64     `db:"win_probability"`
	DetectedAtMs       int64       `db:"detected_at_ms"`
}

func combinationFromString(s string) detect.Combination {
	for _, c := range detect.AllCombinations() {
		if c.String() == s {
			return c
		}
	}
	return detect.BothDown
}

// PendingCrossMarketOpportunities returns every opportunity not yet
// marked settled, oldest first.
func (db *DB) PendingCrossMarketOpportunities(ctx context.Context) ([]PendingCrossMarketOpportunity, error) {
	var rows []pendingRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT id, coin1, coin2, combination, leg1_direction, leg1_price, leg1_token_id,
		       leg2_direction, leg2_price, leg2_token_id, total_cost, spread, expected_value,
		       assumed_correlation, win_probability, detected_at_ms
		FROM cross_market_opportunities
		WHERE NOT settled
		ORDER BY detected_at_ms ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: query pending cross-market opportunities: %w", err)
	}

	out := make([]PendingCrossMarketOpportunity, 0, len(rows))
	for _, r := range rows {
		out = append(out, PendingCrossMarketOpportunity{
			ID: r.ID,
			CrossMarketOpportunity: detect.CrossMarketOpportunity{
				Coin1:              r.Coin1,
				Coin2:              r.Coin2,
				Combination:        combinationFromString(r.Combination),
				Leg1Direction:      r.Leg1Direction,
				Leg1Price:          r.Leg1Price,
				Leg1TokenID:        r.Leg1TokenID,
				Leg2Direction:      r.Leg2Direction,
				Leg2Price:          r.Leg2Price,
				Leg2TokenID:        r.Leg2TokenID,
				TotalCost:          r.TotalCost,
				Spread:             r.Spread,
				ExpectedValue:      r.ExpectedValue,
				AssumedCorrelation: r.AssumedCorrelation,
				WinProbability:     r.WinProbability,
				DetectedAtMs:       r.DetectedAtMs,
			},
		})
	}
	return out, nil
}

// MarkOpportunitySettled flags a pending opportunity as resolved.
func (db *DB) MarkOpportunitySettled(ctx context.Context, id int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE cross_market_opportunities SET settled = TRUE, settled_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("store: mark opportunity settled: %w", err)
	}
	return nil
}
