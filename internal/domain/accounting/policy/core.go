package policy

import (
	"fmt"

	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CoreInvariants checks the structural rules every voucher must satisfy before posting.
// They cannot be disabled by configuration.
type CoreInvariants struct{}

// NewCoreInvariants creates the core invariant validator
func NewCoreInvariants() CoreInvariants {
	return CoreInvariants{}
}

// Validate returns a CORE_INVARIANT error for the first broken rule
func (CoreInvariants) Validate(v *accounting.Voucher) error {
	if v == nil {
		return shared.NewCoreInvariantError(accounting.CodeInvalidLine, "Voucher is required")
	}
	lines := v.Lines()
	if len(lines) < accounting.MinVoucherLines {
		return shared.NewCoreInvariantError(accounting.CodeMinLines,
			fmt.Sprintf("Voucher must have at least %d lines, got %d", accounting.MinVoucherLines, len(lines)))
	}

	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range lines {
		if l.AccountID() == "" {
			return shared.NewCoreInvariantError(accounting.CodeMissingAccount,
				fmt.Sprintf("Line %d: account is required", l.ID())).
				WithDetail("fieldHints", []string{fmt.Sprintf("lines[%d].accountId", l.ID()-1)})
		}
		if !l.Amount().IsPositive() || !l.BaseAmount().IsPositive() {
			return shared.NewCoreInvariantError(accounting.CodeNonPositiveAmount,
				fmt.Sprintf("Line %d: amounts must be positive", l.ID())).
				WithDetail("fieldHints", []string{fmt.Sprintf("lines[%d].amount", l.ID()-1)})
		}
		if l.BaseCurrency() != v.BaseCurrency() {
			return shared.NewCoreInvariantError(accounting.CodeBaseCurrencyMismatch,
				fmt.Sprintf("Line %d base currency %s does not match voucher base currency %s",
					l.ID(), l.BaseCurrency(), v.BaseCurrency()))
		}
		debit = debit.Add(l.DebitBase())
		credit = credit.Add(l.CreditBase())
	}

	if !valueobject.MoneyEquals(debit, credit) {
		return shared.NewCoreInvariantError(accounting.CodeUnbalanced,
			fmt.Sprintf("Voucher is not balanced: debit %s, credit %s", debit, credit)).
			WithDetail("totalDebit", debit.String()).
			WithDetail("totalCredit", credit.String())
	}
	return nil
}
