package persistence

import (
	"context"

	appacc "github.com/ledger/backend/internal/application/accounting"
	"github.com/ledger/backend/internal/domain/accounting"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Voucher and ledger writes inside one Execute call commit or roll back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos appacc.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to the repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Vouchers returns the voucher repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Vouchers() accounting.VoucherRepository {
	return NewGormVoucherRepository(r.tx)
}

// Ledger returns the ledger repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Ledger() accounting.LedgerRepository {
	return NewGormLedgerRepository(r.tx)
}

// Numbers returns the voucher number generator scoped to the current transaction.
func (r *gormTransactionalRepositories) Numbers() accounting.VoucherNumberGenerator {
	return NewGormVoucherNumberGenerator(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appacc.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appacc.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
