package accounting

import (
	"fmt"
	"maps"
	"strings"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// VoucherLineInput carries the raw values of one posting line
type VoucherLineInput struct {
	ID           int
	AccountID    string
	Side         Side
	Amount       decimal.Decimal
	Currency     string
	BaseAmount   decimal.Decimal
	BaseCurrency string
	ExchangeRate decimal.Decimal
	Notes        string
	CostCenterID string
	Metadata     map[string]string
}

// VoucherLine is one immutable debit or credit posting line
type VoucherLine struct {
	id           int
	accountID    string
	side         Side
	amount       decimal.Decimal
	currency     valueobject.Currency
	baseAmount   decimal.Decimal
	baseCurrency valueobject.Currency
	exchangeRate decimal.Decimal
	notes        string
	costCenterID string
	metadata     map[string]string
}

// NewVoucherLine validates the input and creates a line
func NewVoucherLine(in VoucherLineInput) (VoucherLine, error) {
	accountID := strings.TrimSpace(in.AccountID)
	if accountID == "" {
		return VoucherLine{}, shared.NewCoreInvariantError(CodeMissingAccount,
			fmt.Sprintf("Line %d: account is required", in.ID))
	}
	if !in.Side.IsValid() {
		return VoucherLine{}, shared.NewValidationError(CodeInvalidLine,
			fmt.Sprintf("Line %d: side must be Debit or Credit", in.ID))
	}
	if !in.Amount.IsPositive() {
		return VoucherLine{}, shared.NewCoreInvariantError(CodeNonPositiveAmount,
			fmt.Sprintf("Line %d: amount must be positive", in.ID))
	}
	if !in.BaseAmount.IsPositive() {
		return VoucherLine{}, shared.NewCoreInvariantError(CodeNonPositiveAmount,
			fmt.Sprintf("Line %d: base amount must be positive", in.ID))
	}
	if !in.ExchangeRate.IsPositive() {
		return VoucherLine{}, shared.NewCoreInvariantError(CodeNonPositiveAmount,
			fmt.Sprintf("Line %d: exchange rate must be positive", in.ID))
	}
	currency, err := valueobject.NewCurrency(in.Currency)
	if err != nil {
		return VoucherLine{}, shared.NewValidationError(CodeInvalidCurrency,
			fmt.Sprintf("Line %d: %s", in.ID, err.Error()))
	}
	baseCurrency, err := valueobject.NewCurrency(in.BaseCurrency)
	if err != nil {
		return VoucherLine{}, shared.NewValidationError(CodeInvalidCurrency,
			fmt.Sprintf("Line %d: %s", in.ID, err.Error()))
	}

	return VoucherLine{
		id:           in.ID,
		accountID:    accountID,
		side:         in.Side,
		amount:       in.Amount,
		currency:     currency,
		baseAmount:   in.BaseAmount,
		baseCurrency: baseCurrency,
		exchangeRate: in.ExchangeRate,
		notes:        in.Notes,
		costCenterID: strings.TrimSpace(in.CostCenterID),
		metadata:     maps.Clone(in.Metadata),
	}, nil
}

// TriangulatedLineInput describes a line entered in its own currency with a parity to the voucher currency
type TriangulatedLineInput struct {
	ID           int
	AccountID    string
	Side         Side
	Amount       decimal.Decimal
	Currency     string
	Parity       decimal.Decimal
	Notes        string
	CostCenterID string
	Metadata     map[string]string
}

// NewTriangulatedLine converts the line into base currency through the voucher header rate
func NewTriangulatedLine(in TriangulatedLineInput, headerRate decimal.Decimal, baseCurrency valueobject.Currency) (VoucherLine, error) {
	tr, err := valueobject.Triangulate(in.Amount, in.Parity, headerRate, baseCurrency)
	if err != nil {
		return VoucherLine{}, shared.NewCoreInvariantError(CodeNonPositiveAmount,
			fmt.Sprintf("Line %d: %s", in.ID, err.Error()))
	}
	return NewVoucherLine(VoucherLineInput{
		ID:           in.ID,
		AccountID:    in.AccountID,
		Side:         in.Side,
		Amount:       in.Amount,
		Currency:     in.Currency,
		BaseAmount:   tr.BaseAmount,
		BaseCurrency: baseCurrency.String(),
		ExchangeRate: tr.EffectiveRate,
		Notes:        in.Notes,
		CostCenterID: in.CostCenterID,
		Metadata:     in.Metadata,
	})
}

// ID returns the ordinal of the line within its voucher
func (l VoucherLine) ID() int { return l.id }

// AccountID returns the posting account reference
func (l VoucherLine) AccountID() string { return l.accountID }

// Side returns Debit or Credit
func (l VoucherLine) Side() Side { return l.side }

// Amount returns the amount in the line currency
func (l VoucherLine) Amount() decimal.Decimal { return l.amount }

// Currency returns the line transaction currency
func (l VoucherLine) Currency() valueobject.Currency { return l.currency }

// BaseAmount returns the amount in company base currency
func (l VoucherLine) BaseAmount() decimal.Decimal { return l.baseAmount }

// BaseCurrency returns the company base currency
func (l VoucherLine) BaseCurrency() valueobject.Currency { return l.baseCurrency }

// ExchangeRate returns the line→base rate
func (l VoucherLine) ExchangeRate() decimal.Decimal { return l.exchangeRate }

// Notes returns free-form notes
func (l VoucherLine) Notes() string { return l.notes }

// CostCenterID returns the cost center, empty when unset
func (l VoucherLine) CostCenterID() string { return l.costCenterID }

// Metadata returns a copy of the line metadata
func (l VoucherLine) Metadata() map[string]string { return maps.Clone(l.metadata) }

// IsDebit reports whether the line is on the debit side
func (l VoucherLine) IsDebit() bool { return l.side == SideDebit }

// DebitBase returns the base amount if the line is a debit, zero otherwise
func (l VoucherLine) DebitBase() decimal.Decimal {
	if l.side == SideDebit {
		return l.baseAmount
	}
	return decimal.Zero
}

// CreditBase returns the base amount if the line is a credit, zero otherwise
func (l VoucherLine) CreditBase() decimal.Decimal {
	if l.side == SideCredit {
		return l.baseAmount
	}
	return decimal.Zero
}

// Inverted returns a copy with Debit and Credit swapped
func (l VoucherLine) Inverted() VoucherLine {
	cp := l
	cp.side = l.side.Opposite()
	cp.metadata = maps.Clone(l.metadata)
	return cp
}

// withID returns a copy renumbered to id
func (l VoucherLine) withID(id int) VoucherLine {
	cp := l
	cp.id = id
	return cp
}

// WithAccountID returns a copy pointing at a different account reference
func (l VoucherLine) WithAccountID(accountID string) VoucherLine {
	cp := l
	cp.accountID = accountID
	return cp
}

// Input returns the raw values of the line
func (l VoucherLine) Input() VoucherLineInput {
	return VoucherLineInput{
		ID:           l.id,
		AccountID:    l.accountID,
		Side:         l.side,
		Amount:       l.amount,
		Currency:     l.currency.String(),
		BaseAmount:   l.baseAmount,
		BaseCurrency: l.baseCurrency.String(),
		ExchangeRate: l.exchangeRate,
		Notes:        l.notes,
		CostCenterID: l.costCenterID,
		Metadata:     maps.Clone(l.metadata),
	}
}
