// Package money implements the fixed-precision decimal primitive used for
// every price and size in the trading pipeline. No binary float ever
// touches a money path; all wire values are parsed directly into Price.
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// QuotePlaces is the decimal precision used for binary-market quote prices
// (always in [0,1]).
const QuotePlaces = 4

// FundingPlaces is the decimal precision used for funding rates.
const FundingPlaces = 5

// Price is an exact fixed-point scalar. Zero value is a valid zero price.
type Price struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Price{d: decimal.Zero}

// One represents 1.00, the settlement value of a winning binary share.
var One = Price{d: decimal.New(1, 0)}

// NewFromString parses a venue-supplied decimal string. This is the only
// sanctioned entry point for prices arriving over the wire.
func NewFromString(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	if d.IsNegative() {
		return Price{}, fmt.Errorf("money: negative price %q", s)
	}
	return Price{d: d}, nil
}

// NewFromFloat is reserved for internally computed values (e.g. model
// probabilities) that never round-trip through a venue wire format.
func NewFromFloat(f float64) Price {
	return Price{d: decimal.NewFromFloat(f)}
}

// NewFromInt builds a whole-number Price (e.g. share counts in tests).
func NewFromInt(i int64) Price {
	return Price{d: decimal.NewFromInt(i)}
}

func (p Price) Decimal() decimal.Decimal { return p.d }

func (p Price) Add(o Price) Price { return Price{d: p.d.Add(o.d)} }
func (p Price) Sub(o Price) Price { return Price{d: p.d.Sub(o.d)} }
func (p Price) Mul(o Price) Price { return Price{d: p.d.Mul(o.d)} }

// Div divides by o, returning Zero if o is zero rather than panicking —
// callers in the hot signal path must not crash the detector on a
// malformed book.
func (p Price) Div(o Price) Price {
	if o.d.IsZero() {
		return Zero
	}
	return Price{d: p.d.Div(o.d)}
}

func (p Price) Neg() Price { return Price{d: p.d.Neg()} }

func (p Price) Cmp(o Price) int       { return p.d.Cmp(o.d) }
func (p Price) Equal(o Price) bool    { return p.d.Equal(o.d) }
func (p Price) GreaterThan(o Price) bool { return p.d.GreaterThan(o.d) }
func (p Price) LessThan(o Price) bool    { return p.d.LessThan(o.d) }
func (p Price) GreaterThanOrEqual(o Price) bool { return p.d.GreaterThanOrEqual(o.d) }
func (p Price) LessThanOrEqual(o Price) bool    { return p.d.LessThanOrEqual(o.d) }
func (p Price) IsZero() bool          { return p.d.IsZero() }
func (p Price) IsNegative() bool      { return p.d.IsNegative() }
func (p Price) IsPositive() bool      { return p.d.IsPositive() }

// Min/Max are convenience helpers used throughout the settlement cascade
// (e.g. min(yes_qty, no_qty) for hedged payouts).
func Min(a, b Price) Price {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}

func Max(a, b Price) Price {
	if a.GreaterThanOrEqual(b) {
		return a
	}
	return b
}

// Round rounds to the given number of decimal places, half away from zero
// (shopspring/decimal's Round; RoundBank is its banker's-rounding variant).
func (p Price) Round(places int32) Price {
	return Price{d: p.d.Round(places)}
}

// RoundDownLot rounds down to the nearest multiple of lot (the venue's
// minimum tradable unit). A zero or negative lot is a no-op.
func (p Price) RoundDownLot(lot Price) Price {
	if lot.d.IsZero() || lot.d.IsNegative() {
		return p
	}
	units := p.d.Div(lot.d).Floor()
	return Price{d: units.Mul(lot.d)}
}

func (p Price) Float64() float64 {
	f, _ := p.d.Float64()
	return f
}

func (p Price) String() string { return p.d.String() }

func (p Price) MarshalJSON() ([]byte, error) {
	return p.d.MarshalJSON()
}

func (p *Price) UnmarshalJSON(data []byte) error {
	return p.d.UnmarshalJSON(data)
}

// Value implements driver.Valuer for direct use with database/sql and sqlx.
func (p Price) Value() (driver.Value, error) {
	return p.d.String(), nil
}

// Scan implements sql.Scanner.
func (p *Price) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	p.d = d
	return nil
}
