// Package money holds currency amounts as integer cents.
//
// Rates stay in shopspring/decimal; every multiplication of an amount by a
// rate is rounded back to whole cents so that multi-decade projections never
// accumulate floating point drift.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a currency amount in cents.
type Money int64

// Zero is the zero amount.
const Zero Money = 0

var hundred = decimal.NewFromInt(100)

// FromCents creates a Money from a count of cents.
func FromCents(cents int64) Money {
	return Money(cents)
}

// FromDollars creates a Money from whole dollars.
func FromDollars(dollars int64) Money {
	return Money(dollars * 100)
}

// FromDecimal converts a dollar amount to cents, rounding half away from zero.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Mul(hundred).Round(0).IntPart())
}

// Parse parses a dollar amount such as "1234.56", "$1,234.56" or "-12".
func Parse(s string) (Money, error) {
	clean := strings.TrimSpace(s)
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.ReplaceAll(clean, "_", "")
	neg := false
	if strings.HasPrefix(clean, "-") {
		neg = true
		clean = clean[1:]
	}
	clean = strings.TrimPrefix(clean, "$")
	if clean == "" {
		return Zero, fmt.Errorf("invalid money amount %q", s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return Zero, fmt.Errorf("invalid money amount %q: %w", s, err)
	}
	if neg {
		d = d.Neg()
	}
	return FromDecimal(d), nil
}

// MustParse is Parse that panics on error. Intended for tables and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Cents returns the raw cent count.
func (m Money) Cents() int64 {
	return int64(m)
}

// Decimal returns the amount in dollars.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// MulRate multiplies by a rate and rounds to the nearest cent.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money(decimal.NewFromInt(int64(m)).Mul(rate).Round(0).IntPart())
}

// MulRateFloor multiplies by a rate and truncates toward negative infinity.
func (m Money) MulRateFloor(rate decimal.Decimal) Money {
	return Money(decimal.NewFromInt(int64(m)).Mul(rate).Floor().IntPart())
}

// DivFactor divides by a factor and rounds to the nearest cent.
// A zero factor yields Zero.
func (m Money) DivFactor(factor decimal.Decimal) Money {
	if factor.IsZero() {
		return Zero
	}
	return Money(decimal.NewFromInt(int64(m)).Div(factor).Round(0).IntPart())
}

// Ratio returns m/other as a decimal, or zero when other is zero.
func (m Money) Ratio(other Money) decimal.Decimal {
	if other == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(m)).Div(decimal.NewFromInt(int64(other)))
}

// NonNegative clamps negative amounts to zero.
func (m Money) NonNegative() Money {
	if m < 0 {
		return Zero
	}
	return m
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m == 0 }

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool { return m > 0 }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m < 0 }

// Sum adds amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// String returns the amount with two decimals and no currency symbol.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format returns the amount with a dollar sign and thousands separators.
func (m Money) Format() string {
	cents := int64(m)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := fmt.Sprintf("%d", cents/100)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}

// MarshalJSON encodes the amount as a JSON number in dollars.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted dollar string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*m = Zero
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalText encodes the amount as a dollar string.
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a dollar string. yaml.v3 routes every scalar through it.
func (m *Money) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Percent formats a rate fraction such as 0.22 as "22.00%".
func Percent(rate decimal.Decimal) string {
	return rate.Mul(hundred).StringFixed(2) + "%"
}
