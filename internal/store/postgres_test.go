package store

import (
	"testing"

	"github.com/GoPolymarket/polymarket-trader/internal/detect"
)

func TestPlaceholdersBuildsMultiRowValues(t *testing.T) {
	got := placeholders(3, 2)
	want := "($1,$2),($3,$4),($5,$6)"
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestPlaceholdersSingleRow(t *testing.T) {
	got := placeholders(1, 3)
	want := "($1,$2,$3)"
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestCombinationFromStringRoundTrips(t *testing.T) {
	for _, c := range detect.AllCombinations() {
		if got := combinationFromString(c.String()); got != c {
			t.Fatalf("round-trip %v: got %v", c, got)
		}
	}
}

func TestCombinationFromStringFallsBackOnUnknown(t *testing.T) {
	if got := combinationFromString("not-a-real-combination"); got != detect.BothDown {
		t.Fatalf("want BothDown fallback, got %v", got)
	}
}
