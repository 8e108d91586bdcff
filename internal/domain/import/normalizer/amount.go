// Package normalizer turns raw statement cells into typed values: signed
// decimal amounts, dates and the content fingerprint used for deduplication.
package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrEmptyValue = errors.New("empty value")

// spaceRemover drops the thousands separators Swedish exports use.
var spaceRemover = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "")

// ParseAmount parses a locale-formatted amount such as "-1 234,50". Spaces
// are thousands separators and a comma is the decimal separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyValue
	}

	cleaned := spaceRemover.Replace(s)
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	cleaned = strings.TrimPrefix(cleaned, "+")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// ParseOptionalAmount is ParseAmount for optional columns: empty or
// unparseable input yields nil.
func ParseOptionalAmount(s string) *decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		return nil
	}
	return &d
}

// CanonicalAmount renders d with trailing zeros trimmed but at least one
// fractional digit, e.g. "1000.0" and "-456.5".
func CanonicalAmount(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
