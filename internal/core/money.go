// Package core provides the budgeting domain model.
//
// This file contains money parsing, rounding and percentage helpers. Amounts
// are held as integer cents; floats only appear at the JSON boundary and in
// the derived one-decimal percentage.
package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. Both dot and comma separators are
// accepted. Returns an error for invalid formats, negative or zero amounts.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// MoneyFromFloat converts a currency-unit float (as received on the JSON
// boundary) to cents with half-up rounding.
func MoneyFromFloat(v float64) Money {
	return Money{Cents: int64(math.Round(v * 100))}
}

// Amount returns the currency-unit value as a float64 for serialization.
// Use cents for calculations.
func (m Money) Amount() float64 {
	return float64(m.Cents) / 100.0
}

// PercentOf returns m as a percentage of income, rounded to one decimal
// place. Zero when income is not positive.
func (m Money) PercentOf(income Money) float64 {
	if income.Cents <= 0 {
		return 0
	}
	pct := float64(m.Cents) / float64(income.Cents) * 100.0
	return math.Round(pct*10) / 10
}

// MarshalJSON encodes the amount as a plain currency-unit number, matching
// the API payload shape.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Amount())
}

// UnmarshalJSON accepts a currency-unit number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = MoneyFromFloat(v)
	return nil
}
