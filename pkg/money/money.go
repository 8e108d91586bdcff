// Package money formats and compares amounts in minor units using the
// Fowler Money pattern. Amounts are stored as decimals; this package is used
// where they are shown to people.
package money

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency codes (ISO-4217) seen in bank exports.
const (
	SEK = "SEK"
	EUR = "EUR"
)

// DefaultCurrency is the currency of every stored amount.
const DefaultCurrency = SEK

// swedish writes SEK the way Swedish banks print it: space thousands and
// decimal comma. go-money's own SEK entry uses comma and dot.
var swedish = money.NewFormatter(2, ",", " ", "kr", "1 $")

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a Money value from minor units.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{m: money.New(amountCents, currencyCode)}
}

// NewFromDecimal rounds amount half away from zero to the currency's minor unit.
// Unknown currency codes fall back to SEK.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(strings.ToUpper(currencyCode))
	if currency == nil {
		currency = money.GetCurrency(DefaultCurrency)
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0).IntPart()

	return New(cents, currency.Code)
}

// SEKFromDecimal is NewFromDecimal in the default currency.
func SEKFromDecimal(amount decimal.Decimal) *Money {
	return NewFromDecimal(amount, DefaultCurrency)
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Abs returns the absolute value
func (m *Money) Abs() *Money {
	if m == nil || m.m == nil {
		return Zero(DefaultCurrency)
	}
	return &Money{m: m.m.Absolute()}
}

// Add adds two Money values. Returns error if currencies don't match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}

	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Display returns the amount the way the currency writes it, e.g. "1 234,50 kr".
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return swedish.Format(0)
	}
	if m.m.Currency().Code == SEK {
		return swedish.Format(m.m.Amount())
	}
	return m.m.Display()
}

// ToDecimal converts back to decimal.Decimal.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	currency := m.m.Currency()
	d := decimal.NewFromInt(m.m.Amount())
	divisor := decimal.New(1, int32(currency.Fraction))
	return d.Div(divisor)
}

// PercentageOf returns m as a percentage of total, rounded to two decimals.
// A zero total yields zero.
func (m *Money) PercentageOf(total *Money) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return m.ToDecimal().Div(total.ToDecimal()).Mul(decimal.NewFromInt(100)).Round(2)
}
