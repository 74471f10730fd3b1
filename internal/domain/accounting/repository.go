package accounting

import (
	"context"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/shared"
)

// VoucherFilter extends shared.Filter with voucher-specific criteria
type VoucherFilter struct {
	shared.Filter
	Status   VoucherStatus
	Type     VoucherType
	DateFrom string
	DateTo   string
	Posted   *bool
}

// VoucherRepository persists voucher aggregates.
// Find methods return (nil, nil) when the voucher does not exist.
type VoucherRepository interface {
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Voucher, error)
	// FindByIDForUpdate loads the voucher holding a row lock until the transaction ends
	FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Voucher, error)
	// FindByReversalOf returns the reversal voucher of originalID, if any
	FindByReversalOf(ctx context.Context, companyID, originalID uuid.UUID) (*Voucher, error)
	FindByCompany(ctx context.Context, companyID uuid.UUID, filter VoucherFilter) ([]*Voucher, int64, error)
	// Save inserts new vouchers and updates existing ones guarded by their persisted version
	Save(ctx context.Context, v *Voucher) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}

// LedgerRepository writes and reads posted ledger rows
type LedgerRepository interface {
	RecordForVoucher(ctx context.Context, v *Voucher) error
	DeleteForVoucher(ctx context.Context, companyID, voucherID uuid.UUID) error
	FindByVoucher(ctx context.Context, companyID, voucherID uuid.UUID) ([]LedgerEntry, error)
}

// PermissionChecker asserts that a user holds a permission within a company
type PermissionChecker interface {
	AssertOrThrow(ctx context.Context, userID, companyID uuid.UUID, permission string) error
}

// AccountingPolicyConfigProvider loads a company's accounting policy configuration
type AccountingPolicyConfigProvider interface {
	GetConfig(ctx context.Context, companyID uuid.UUID) (ApprovalPolicyConfig, error)
}

// AccountLookupService resolves chart-of-accounts entries by id or by code.
// Unknown references are omitted from the result.
type AccountLookupService interface {
	GetAccountsByIDs(ctx context.Context, companyID uuid.UUID, ids []string) ([]Account, error)
	GetAccountsByCodes(ctx context.Context, companyID uuid.UUID, codes []string) ([]Account, error)
}

// UserAccessScopeProvider resolves the organisational scope of a user
type UserAccessScopeProvider interface {
	GetScope(ctx context.Context, userID, companyID uuid.UUID) (UserAccessScope, error)
}

// ExchangeRateRepository stores company exchange rates
type ExchangeRateRepository interface {
	GetRecentRates(ctx context.Context, companyID uuid.UUID, from, to string, limit int) ([]ExchangeRate, error)
	// GetMostRecentRateBeforeDate returns the latest rate dated on or before date, nil when none
	GetMostRecentRateBeforeDate(ctx context.Context, companyID uuid.UUID, from, to, date string) (*ExchangeRate, error)
	GetRateOnDate(ctx context.Context, companyID uuid.UUID, from, to, date string) (*ExchangeRate, error)
	Save(ctx context.Context, r *ExchangeRate) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}

// VoucherNumberGenerator allocates sequential voucher numbers
type VoucherNumberGenerator interface {
	Next(ctx context.Context, companyID uuid.UUID, voucherType VoucherType, date string) (string, error)
}
