package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered decimal string into an amount rounded
// half-up to two places.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidAmount for signed, malformed, or non-positive input.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// RoundAmount rounds to cents. Non-finite values are returned unchanged.
func RoundAmount(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// FormatAmount renders an amount with the currency symbol, e.g. "$12.50".
func FormatAmount(amount float64, c Currency) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return c.Symbol + "-"
	}
	return c.Symbol + decimal.NewFromFloat(amount).StringFixed(2)
}
