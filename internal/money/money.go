// Package money holds the rounding and formatting rules shared by the
// cart, checkout and shift reconciliation code. Currency has no
// sub-cent granularity in this domain; quantities carry up to three
// decimals except for piece goods which are whole numbers.
package money

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// UnitType enumerates the units a product can be sold in.
type UnitType string

const (
	UnitPiece  UnitType = "piece"
	UnitKg     UnitType = "kg"
	UnitGram   UnitType = "g"
	UnitLiter  UnitType = "liter"
	UnitMl     UnitType = "ml"
	UnitBundle UnitType = "bundle"
	UnitPack   UnitType = "pack"
)

// Valid reports whether u is one of the supported unit types.
func (u UnitType) Valid() bool {
	switch u {
	case UnitPiece, UnitKg, UnitGram, UnitLiter, UnitMl, UnitBundle, UnitPack:
		return true
	}
	return false
}

// Fractional reports whether quantities of this unit may carry decimals.
func (u UnitType) Fractional() bool {
	return u != UnitPiece
}

// RoundPrice rounds a currency amount to two decimal places.
func RoundPrice(value float64) float64 {
	return math.Round(value*100) / 100
}

// RoundQuantity normalises a quantity for the given unit type: piece
// goods round to the nearest whole number, everything else to three
// decimal places.
func RoundQuantity(unit UnitType, value float64) float64 {
	if unit == UnitPiece {
		return math.Round(value)
	}
	return math.Round(value*1000) / 1000
}

// IsFinite reports whether v is a usable numeric input. NaN and
// infinities are clamped to the last known valid value by callers
// rather than propagated.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var printer = message.NewPrinter(language.English)

// FormatCurrency renders an amount with a currency symbol and thousand
// separators. Presentation only; the numeric value is never altered.
func FormatCurrency(symbol string, value float64) string {
	return printer.Sprintf("%s%.2f", symbol, RoundPrice(value))
}

// FormatQuantity renders a quantity for display. Piece quantities print
// without decimals, fractional units with trailing zeros trimmed.
func FormatQuantity(unit UnitType, value float64) string {
	if unit == UnitPiece {
		return strconv.FormatInt(int64(math.Round(value)), 10)
	}
	s := strconv.FormatFloat(RoundQuantity(unit, value), 'f', 3, 64)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
