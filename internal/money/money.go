// Package money holds the fixed-point decimal type used for every
// balance and amount in the system. Scale is two fractional digits;
// arithmetic is exact. Floats never touch monetary values.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every amount carries.
const Scale = 2

var ErrInvalid = errors.New("invalid money amount")

// Money is an exact decimal amount at scale 2.
type Money struct {
	dec decimal.Decimal
}

// Zero is the 0.00 amount.
var Zero = Money{}

// Parse converts an external decimal string like "100.00" or "40.5"
// into a Money value. More than two fractional digits or malformed
// input is rejected, never silently rounded.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	if d.Exponent() < -Scale {
		return Money{}, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalid, s, Scale)
	}
	return Money{dec: d}, nil
}

// MustParse is Parse for trusted literals in tests and seed data.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal wraps a decimal read back from the store.
func FromDecimal(d decimal.Decimal) Money {
	return Money{dec: d}
}

func (m Money) Add(o Money) Money { return Money{dec: m.dec.Add(o.dec)} }
func (m Money) Sub(o Money) Money { return Money{dec: m.dec.Sub(o.dec)} }
func (m Money) Neg() Money        { return Money{dec: m.dec.Neg()} }

// Cmp returns -1, 0 or 1 like decimal.Cmp.
func (m Money) Cmp(o Money) int { return m.dec.Cmp(o.dec) }

func (m Money) IsPositive() bool { return m.dec.IsPositive() }
func (m Money) IsNegative() bool { return m.dec.IsNegative() }
func (m Money) IsZero() bool     { return m.dec.IsZero() }

func (m Money) LessThan(o Money) bool { return m.dec.Cmp(o.dec) < 0 }

// String renders the amount with exactly two decimal places, the
// same form the store persists.
func (m Money) String() string {
	return m.dec.StringFixed(Scale)
}

// Decimal exposes the underlying decimal for store drivers.
func (m Money) Decimal() decimal.Decimal { return m.dec }

// MarshalJSON emits the amount as a quoted decimal string so clients
// never see binary floating point.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
