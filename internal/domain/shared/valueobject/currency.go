package valueobject

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	KRW Currency = "KRW"
	BHD Currency = "BHD"
	KWD Currency = "KWD"
	OMR Currency = "OMR"
	JOD Currency = "JOD"
)

// DefaultPrecision is used for every currency without an explicit entry
const DefaultPrecision int32 = 2

// RatePrecision is the scale exchange rates are rounded to
const RatePrecision int32 = 6

var currencyPrecision = map[Currency]int32{
	JPY: 0,
	KRW: 0,
	BHD: 3,
	KWD: 3,
	OMR: 3,
	JOD: 3,
}

// NewCurrency normalizes and validates an ISO 4217 code
func NewCurrency(code string) (Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != 3 {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	if _, err := currency.ParseISO(normalized); err != nil {
		return "", fmt.Errorf("invalid currency code %q: %w", code, err)
	}
	return Currency(normalized), nil
}

// Precision returns the natural number of decimal places of the currency
func (c Currency) Precision() int32 {
	if p, ok := currencyPrecision[c]; ok {
		return p
	}
	return DefaultPrecision
}

// String returns the ISO code
func (c Currency) String() string {
	return string(c)
}

// CurrencyPrecision returns the decimal places for a raw currency code
func CurrencyPrecision(code string) int32 {
	return Currency(strings.ToUpper(code)).Precision()
}
