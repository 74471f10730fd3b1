package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ledgerBatchSize bounds the rows per INSERT when recording a voucher
const ledgerBatchSize = 100

// GormLedgerRepository implements LedgerRepository using GORM.
// Rows are append-only; balances are aggregated on read.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// RecordForVoucher writes one ledger row per voucher line
func (r *GormLedgerRepository) RecordForVoucher(ctx context.Context, v *accounting.Voucher) error {
	entries := accounting.LedgerEntriesFor(v)
	if len(entries) == 0 {
		return nil
	}
	rows := make([]models.LedgerEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.LedgerEntryModelFromDomain(e)
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, ledgerBatchSize).Error
}

// DeleteForVoucher removes every ledger row of a voucher
func (r *GormLedgerRepository) DeleteForVoucher(ctx context.Context, companyID, voucherID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("company_id = ? AND voucher_id = ?", companyID, voucherID).
		Delete(&models.LedgerEntryModel{}).Error
}

// FindByVoucher returns the ledger rows of a voucher in line order
func (r *GormLedgerRepository) FindByVoucher(ctx context.Context, companyID, voucherID uuid.UUID) ([]accounting.LedgerEntry, error) {
	var rows []models.LedgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND voucher_id = ?", companyID, voucherID).
		Order("line_no ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]accounting.LedgerEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

// accountBalanceRow is the scan target of the balance aggregation
type accountBalanceRow struct {
	AccountID string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// AccountBalances aggregates base-currency balances (debit positive) per account up to and including asOf.
// An empty asOf includes every row.
func (r *GormLedgerRepository) AccountBalances(ctx context.Context, companyID uuid.UUID, asOf string) (map[string]decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.LedgerEntryModel{}).
		Select("account_id, "+
			"SUM(CASE WHEN side = ? THEN base_amount ELSE 0 END) AS debit, "+
			"SUM(CASE WHEN side = ? THEN base_amount ELSE 0 END) AS credit",
			accounting.SideDebit, accounting.SideCredit).
		Scopes(forCompany(companyID))
	if asOf != "" {
		query = query.Where("date <= ?", models.ParseDate(asOf))
	}

	var rows []accountBalanceRow
	if err := query.Group("account_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	balances := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		balances[row.AccountID] = row.Debit.Sub(row.Credit)
	}
	return balances, nil
}

// Ensure GormLedgerRepository implements LedgerRepository
var _ accounting.LedgerRepository = (*GormLedgerRepository)(nil)
