package calculator

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var entryPattern = regexp.MustCompile(`^\d*\.?\d*$`)

// SumEntry adds up a "+"-delimited list of operands such as "10+5+2.5".
// Operands that are empty or not plain decimals count as zero.
func SumEntry(raw string) decimal.Decimal {
	total := decimal.Zero
	for _, term := range strings.Split(raw, "+") {
		total = total.Add(parseTerm(term))
	}
	return total
}

func parseTerm(term string) decimal.Decimal {
	term = strings.TrimSpace(term)
	if term == "" || !entryPattern.MatchString(term) {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(term)
	if err != nil {
		return decimal.Zero
	}
	return value
}

// ValidEntry reports whether raw may be typed into a numeric field. Each term
// must be digits with at most one decimal point; "+" joins terms only when
// allowSum is set. The empty string is always accepted.
func ValidEntry(raw string, allowSum bool) bool {
	if raw == "" {
		return true
	}
	terms := []string{raw}
	if allowSum {
		terms = strings.Split(raw, "+")
	}
	for _, term := range terms {
		if !entryPattern.MatchString(strings.TrimSpace(term)) {
			return false
		}
	}
	return true
}

// IsSum reports whether raw was entered as a sum of terms.
func IsSum(raw string) bool {
	return strings.Contains(raw, "+")
}

// LotNote is the sale note recorded when a quantity was keyed in as several
// partial lot draws. It is empty when raw is a single value.
func LotNote(lotNumber, raw string) string {
	if lotNumber == "" || !IsSum(raw) {
		return ""
	}
	return lotNumber + " :- " + raw
}

func digitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
