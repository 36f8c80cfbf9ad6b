package calculator

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders a derived value for display. Zero renders as the empty
// string and a trailing ".00" is dropped, so 12 renders "12" and 12.345
// renders "12.35".
func Format(d decimal.Decimal) string {
	rounded := Round2(d)
	if rounded.IsZero() {
		return ""
	}
	return strings.TrimSuffix(rounded.StringFixed(2), ".00")
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
