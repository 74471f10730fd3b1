package valueobject

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Triangulation is the result of converting a line amount into the base currency
// through the line→voucher parity and the voucher→base header rate.
type Triangulation struct {
	EffectiveRate decimal.Decimal
	BaseAmount    decimal.Decimal
}

// Triangulate is the single conversion used by every create/update path:
//
//	effectiveRate = round(parity * headerRate)
//	baseAmount    = round(amount * parity * headerRate)
//
// baseAmount is computed from the unrounded product so rate rounding never leaks into amounts.
func Triangulate(amount, parity, headerRate decimal.Decimal, base Currency) (Triangulation, error) {
	if !amount.IsPositive() {
		return Triangulation{}, errors.New("amount must be positive")
	}
	if !parity.IsPositive() {
		return Triangulation{}, errors.New("parity must be positive")
	}
	if !headerRate.IsPositive() {
		return Triangulation{}, errors.New("exchange rate must be positive")
	}
	product := parity.Mul(headerRate)
	return Triangulation{
		EffectiveRate: RoundRate(product),
		BaseAmount:    RoundMoney(amount.Mul(product), base),
	}, nil
}
