package venue

import (
	"context"
	"errors"
	"math/big"
	"testing"
)

func TestScaledAnswerPositive(t *testing.T) {
	// 6543210000000 at 8 decimals -> 65432.10000000
	got := scaledAnswer(big.NewInt(6543210000000), 8)
	if got.Float64() != 65432.1 {
		t.Fatalf("expected 65432.1, got %v", got.Float64())
	}
}

func TestScaledAnswerNegative(t *testing.T) {
	got := scaledAnswer(big.NewInt(-150000000), 8)
	if got.Float64() != -1.5 {
		t.Fatalf("expected -1.5, got %v", got.Float64())
	}
}

func TestScaledAnswerZeroDecimals(t *testing.T) {
	got := scaledAnswer(big.NewInt(42), 0)
	if got.Float64() != 42 {
		t.Fatalf("expected 42, got %v", got.Float64())
	}
}

func round(id int64, updatedAtSec int64, answer int64) roundData {
	return roundData{
		RoundID:   big.NewInt(id),
		Answer:    big.NewInt(answer),
		UpdatedAt: big.NewInt(updatedAtSec),
	}
}

// TestWalkToRoundAtStepsBackwardUntilAtOrBeforeTarget exercises the
// Chainlink round-walking algorithm: the latest round is after the
// requested timestamp, so the walk steps back round by round until it
// finds one updated at or before the target.
func TestWalkToRoundAtStepsBackwardUntilAtOrBeforeTarget(t *testing.T) {
	rounds := map[int64]roundData{
		10: round(10, 1000, 500),
		9:  round(9, 900, 490),
		8:  round(8, 800, 480),
	}
	fetch := func(ctx context.Context, id *big.Int) (roundData, error) {
		r, ok := rounds[id.Int64()]
		if !ok {
			return roundData{}, errors.New("no such round")
		}
		return r, nil
	}

	got := walkToRoundAt(context.Background(), big.NewInt(850), rounds[10], fetch)
	if got.RoundID.Int64() != 8 {
		t.Fatalf("expected to land on round 8 (updatedAt=800 <= 850), got round %d", got.RoundID.Int64())
	}
	if got.Answer.Int64() != 480 {
		t.Fatalf("expected answer 480, got %d", got.Answer.Int64())
	}
}

// TestWalkToRoundAtLatestAlreadySatisfies covers the no-op case: the latest
// round is already at or before the target, so the walk takes zero steps.
func TestWalkToRoundAtLatestAlreadySatisfies(t *testing.T) {
	latest := round(10, 500, 123)
	calls := 0
	fetch := func(ctx context.Context, id *big.Int) (roundData, error) {
		calls++
		return roundData{}, errors.New("should not be called")
	}

	got := walkToRoundAt(context.Background(), big.NewInt(900), latest, fetch)
	if got.RoundID.Int64() != 10 {
		t.Fatalf("expected to stay on round 10, got round %d", got.RoundID.Int64())
	}
	if calls != 0 {
		t.Fatalf("expected no fetchPrev calls, got %d", calls)
	}
}

// TestWalkToRoundAtStopsWhenFeedRunsOut covers a feed that doesn't retain
// rounds far enough back: fetchPrev errors and the walk stops on the last
// round it could reach instead of looping forever.
func TestWalkToRoundAtStopsWhenFeedRunsOut(t *testing.T) {
	rounds := map[int64]roundData{
		3: round(3, 300, 30),
		2: round(2, 200, 20),
	}
	fetch := func(ctx context.Context, id *big.Int) (roundData, error) {
		r, ok := rounds[id.Int64()]
		if !ok {
			return roundData{}, errors.New("round pruned")
		}
		return r, nil
	}

	got := walkToRoundAt(context.Background(), big.NewInt(0), rounds[3], fetch)
	if got.RoundID.Int64() != 2 {
		t.Fatalf("expected to stop at the oldest reachable round (2), got %d", got.RoundID.Int64())
	}
}

// TestWalkToRoundAtStopsAtRoundZero guards the RoundID.Sign() > 0 bound so
// the walk can't step below round 0 looking for history that never existed.
func TestWalkToRoundAtStopsAtRoundZero(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, id *big.Int) (roundData, error) {
		calls++
		return roundData{}, errors.New("should not be called")
	}
	latest := round(0, 100, 5)

	got := walkToRoundAt(context.Background(), big.NewInt(50), latest, fetch)
	if got.RoundID.Int64() != 0 {
		t.Fatalf("expected to stay at round 0, got %d", got.RoundID.Int64())
	}
	if calls != 0 {
		t.Fatalf("expected no fetchPrev calls once RoundID reaches 0, got %d", calls)
	}
}
