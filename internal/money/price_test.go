package money

import "testing"

func TestNewFromStringRejectsNegative(t *testing.T) {
	if _, err := NewFromString("-0.01"); err == nil {
		t.Fatal("expected error for negative price")
	}
}

func TestDivByZeroReturnsZero(t *testing.T) {
	p := NewFromFloat(5)
	got := p.Div(Zero)
	if !got.IsZero() {
		t.Fatalf("want zero, got %s", got)
	}
}

func TestRoundDownLot(t *testing.T) {
	p := NewFromFloat(454.999)
	lot := NewFromFloat(1)
	got := p.RoundDownLot(lot)
	if got.Float64() != 454 {
		t.Fatalf("want 454, got %v", got.Float64())
	}
}

func TestMinMax(t *testing.T) {
	a := NewFromFloat(1.5)
	b := NewFromFloat(2.5)
	if Min(a, b).Float64() != 1.5 {
		t.Fatal("min wrong")
	}
	if Max(a, b).Float64() != 2.5 {
		t.Fatal("max wrong")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	p, err := NewFromString("0.5522")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	var p2 Price
	if err := p2.UnmarshalJSON(b); err != nil {
		t.Fatal(err)
	}
	if !p.Equal(p2) {
		t.Fatalf("roundtrip mismatch: %s vs %s", p, p2)
	}
}
