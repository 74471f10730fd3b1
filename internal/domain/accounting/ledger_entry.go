package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry is one immutable ledger row written when a voucher line is posted
type LedgerEntry struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	VoucherID    uuid.UUID
	VoucherNo    string
	LineID       int
	AccountID    string
	Side         Side
	Amount       decimal.Decimal
	Currency     string
	BaseAmount   decimal.Decimal
	BaseCurrency string
	ExchangeRate decimal.Decimal
	Date         string
	CostCenterID string
	Notes        string
	PostedAt     time.Time
}

// LedgerEntriesFor projects a posted voucher into its ledger rows, one per line
func LedgerEntriesFor(v *Voucher) []LedgerEntry {
	postedAt := v.GetUpdatedAt()
	if v.postedAt != nil {
		postedAt = *v.postedAt
	}
	entries := make([]LedgerEntry, 0, len(v.lines))
	for _, l := range v.lines {
		entries = append(entries, LedgerEntry{
			ID:           uuid.New(),
			CompanyID:    v.GetTenantID(),
			VoucherID:    v.GetID(),
			VoucherNo:    v.voucherNo,
			LineID:       l.id,
			AccountID:    l.accountID,
			Side:         l.side,
			Amount:       l.amount,
			Currency:     l.currency.String(),
			BaseAmount:   l.baseAmount,
			BaseCurrency: l.baseCurrency.String(),
			ExchangeRate: l.exchangeRate,
			Date:         v.date,
			CostCenterID: l.costCenterID,
			Notes:        l.notes,
			PostedAt:     postedAt,
		})
	}
	return entries
}

// ToLineInput converts the row back into voucher line values
func (e LedgerEntry) ToLineInput() VoucherLineInput {
	return VoucherLineInput{
		ID:           e.LineID,
		AccountID:    e.AccountID,
		Side:         e.Side,
		Amount:       e.Amount,
		Currency:     e.Currency,
		BaseAmount:   e.BaseAmount,
		BaseCurrency: e.BaseCurrency,
		ExchangeRate: e.ExchangeRate,
		Notes:        e.Notes,
		CostCenterID: e.CostCenterID,
	}
}

// SignedBase returns the base amount as a signed balance contribution (debit positive)
func (e LedgerEntry) SignedBase() decimal.Decimal {
	if e.Side == SideCredit {
		return e.BaseAmount.Neg()
	}
	return e.BaseAmount
}
