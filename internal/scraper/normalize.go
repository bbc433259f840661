package scraper

import (
	"strconv"
	"strings"
)

// NormalizePrice extracts a whole-unit amount from noisy price text.
// Every non-digit rune is dropped and the remaining digit run is parsed
// base 10, so "₹ 3,45,000" becomes 345000. Returns nil when the text
// carries no digits or the digit run does not fit an int64.
func NormalizePrice(text string) *int64 {
	digits := digitOnly(text)
	if digits == "" {
		return nil
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	return &value
}

// NormalizeQuantity extracts a usage figure (odometer reading, item count)
// from noisy text. Same contract as NormalizePrice.
func NormalizeQuantity(text string) *int64 {
	return NormalizePrice(text)
}

// digitOnly keeps only ASCII digits
func digitOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
