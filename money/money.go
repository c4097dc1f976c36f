package money

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnparseable is returned when a stored price string cannot be read as a number.
	ErrUnparseable = errors.New("price is not a parseable amount")
	// ErrNegative is returned when a stored price parses to a negative amount.
	ErrNegative = errors.New("price is negative")
)

// Catalog prices arrive as display strings ("₹299", "₹1,299.50"). Strip
// everything that isn't part of a plain decimal number before parsing.
var displayCleaner = regexp.MustCompile(`[^0-9.\-]`)

// ParseDisplay converts a display price string into a decimal amount.
// Fails on corrupt or negative input; never guesses.
func ParseDisplay(s string) (decimal.Decimal, error) {
	cleaned := displayCleaner.ReplaceAllString(strings.TrimSpace(s), "")
	if cleaned == "" {
		return decimal.Zero, ErrUnparseable
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrUnparseable
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegative
	}
	return d, nil
}

// ToMinorUnits converts a decimal amount to integer minor units (paise/cents).
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts integer minor units back to a decimal amount.
func FromMinorUnits(n int64) decimal.Decimal {
	return decimal.NewFromInt(n).Shift(-2)
}

// FormatMinorUnits renders minor units as a fixed two-decimal string ("598.00").
// Formatting happens only at presentation boundaries; arithmetic stays integral.
func FormatMinorUnits(n int64) string {
	return FromMinorUnits(n).StringFixed(2)
}
