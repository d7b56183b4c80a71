// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Decimal arithmetic for parsing and
// percentages goes through shopspring/decimal.
package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

var (
	hundred   = decimal.NewFromInt(100)
	maxAmount = decimal.New(1, 15)
)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding to two places. Returns ErrInvalidAmount for invalid formats,
// negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return 0, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2).IntPart()
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseMoney parses a positive decimal amount.
func ParseMoney(s string) (Money, error) {
	c, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: c}, nil
}

// FromDecimal converts a decimal to cents, rounding half away from zero.
func FromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals, e.g. "12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Float returns the amount in major units for display purposes.
// Use cents for calculations.
func (m Money) Float() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a decimal string. Sign is preserved;
// range checks belong to Validate.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*m = Money{}
		return nil
	}
	var raw string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return ErrInvalidAmount
		}
		raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	} else {
		raw = string(b)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return ErrInvalidAmount
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return ErrInvalidAmount
	}
	*m = FromDecimal(d)
	return nil
}

// Ratio returns part/whole, or 0 when whole is not positive.
func Ratio(part, whole Money) float64 {
	if whole.Cents <= 0 {
		return 0
	}
	r, _ := decimal.NewFromInt(part.Cents).Div(decimal.NewFromInt(whole.Cents)).Round(4).Float64()
	return r
}

// Percent returns part/whole*100 rounded to one decimal, or 0 when whole is not positive.
func Percent(part, whole Money) float64 {
	if whole.Cents <= 0 {
		return 0
	}
	p, _ := decimal.NewFromInt(part.Cents).Mul(hundred).Div(decimal.NewFromInt(whole.Cents)).Round(1).Float64()
	return p
}

// Sum adds up amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
