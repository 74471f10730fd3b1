package accounting

import (
	"context"

	"github.com/ledger/backend/internal/domain/accounting"
)

// TransactionScope provides transactional access to voucher and ledger repositories.
// All repository operations inside fn commit or roll back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories bound to the current transaction
type TransactionalRepositories interface {
	// Vouchers returns the voucher repository scoped to the current transaction
	Vouchers() accounting.VoucherRepository
	// Ledger returns the ledger repository scoped to the current transaction
	Ledger() accounting.LedgerRepository
	// Numbers allocates voucher numbers that roll back with the transaction
	Numbers() accounting.VoucherNumberGenerator
}

// NoOpTransactionScope runs the function without a real transaction.
// This is useful for testing.
type NoOpTransactionScope struct {
	vouchers accounting.VoucherRepository
	ledger   accounting.LedgerRepository
	numbers  accounting.VoucherNumberGenerator
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(vouchers accounting.VoucherRepository, ledger accounting.LedgerRepository, numbers accounting.VoucherNumberGenerator) *NoOpTransactionScope {
	return &NoOpTransactionScope{vouchers: vouchers, ledger: ledger, numbers: numbers}
}

// Execute runs fn directly against the wrapped repositories
func (s *NoOpTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error {
	return fn(ctx, s)
}

// Vouchers returns the voucher repository
func (s *NoOpTransactionScope) Vouchers() accounting.VoucherRepository {
	return s.vouchers
}

// Ledger returns the ledger repository
func (s *NoOpTransactionScope) Ledger() accounting.LedgerRepository {
	return s.ledger
}

// Numbers returns the voucher number generator
func (s *NoOpTransactionScope) Numbers() accounting.VoucherNumberGenerator {
	return s.numbers
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
