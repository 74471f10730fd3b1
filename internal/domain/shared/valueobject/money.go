package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyEpsilon is the tolerance used when comparing monetary sums
var MoneyEpsilon = decimal.New(1, -2)

// RoundMoney rounds an amount to the currency's natural precision (half away from zero)
func RoundMoney(amount decimal.Decimal, c Currency) decimal.Decimal {
	return amount.Round(c.Precision())
}

// RoundRate rounds an exchange rate to RatePrecision
func RoundRate(rate decimal.Decimal) decimal.Decimal {
	return rate.Round(RatePrecision)
}

// MoneyEquals reports whether two amounts differ by less than MoneyEpsilon
func MoneyEquals(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(MoneyEpsilon)
}

// Money is a value object representing monetary amounts.
// It is immutable - all operations return new Money instances.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency code
func (m Money) Currency() Currency { return m.currency }

// IsPositive returns true if the amount is strictly positive
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// Add returns a new Money with the sum of both amounts.
// Returns error if currencies don't match.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns a new Money with the difference
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Rounded returns the amount rounded to the currency's precision
func (m Money) Rounded() Money {
	return Money{amount: RoundMoney(m.amount, m.currency), currency: m.currency}
}

// Equals reports same currency and amounts within MoneyEpsilon
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && MoneyEquals(m.amount, other.amount)
}

// String returns a string representation using the currency's precision
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(m.currency.Precision()), m.currency)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.String(),
		Currency: m.currency,
	})
}
