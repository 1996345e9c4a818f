package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// PriceDecimals is the number of decimal places quotes are displayed with.
const PriceDecimals = 2

var two = decimal.NewFromInt(2)

// PriceFromFloat converts a wire-level float64 into a decimal price using the
// shortest decimal representation of f, so 170.02 stays 170.02. NaN and
// infinities are rejected.
func PriceFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("price must be a finite number")
	}
	return decimal.NewFromFloat(f), nil
}

// PriceToFloat converts a decimal price to float64 for JSON encoding.
func PriceToFloat(p decimal.Decimal) float64 {
	return p.InexactFloat64()
}

// RoundPrice rounds p to PriceDecimals places, half away from zero
// (169.995 → 170.00, 170.005 → 170.01).
func RoundPrice(p decimal.Decimal) decimal.Decimal {
	return p.Round(PriceDecimals)
}

// MidOf returns (bid+ask)/2 when both sides are positive and zero otherwise.
func MidOf(bid, ask decimal.Decimal) decimal.Decimal {
	if bid.IsPositive() && ask.IsPositive() {
		return bid.Add(ask).Div(two)
	}
	return decimal.Zero
}
