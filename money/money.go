/*
Package money converts between operator-facing euro strings and the int64
minor units the core works in.

The core never leaves integers; this package is the presentation boundary.
Parsing accepts what people actually type: "1234.56", "1.234,56", "1 234,56"
and plain "1234". Formatting always produces two decimal places.
*/
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseCents parses a euro amount string into minor units. A comma is the
// decimal mark and dots are grouping when a comma is present; without a
// comma, a dot followed by exactly three digits is read as a thousands
// separator ("1.234" is 1234 euros, "12.34" is 12 euros 34 cents).
func ParseCents(s string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}

	switch {
	case strings.Contains(cleaned, ","):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	case strings.Count(cleaned, ".") == 1:
		if i := strings.Index(cleaned, "."); len(cleaned)-i-1 == 3 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

// FormatEuros renders minor units as a major-unit decimal string with two
// decimal places ("123456" cents -> "1234.56").
func FormatEuros(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
