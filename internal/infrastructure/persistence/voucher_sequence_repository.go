package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVoucherNumberGenerator allocates voucher numbers from voucher_sequences.
// Numbers look like RV-2025-000001 and restart every calendar year of the voucher date.
// Built on a transaction handle, allocation nests as a savepoint and rolls back
// with the voucher write, so the sequence has no gaps and needs no second connection.
type GormVoucherNumberGenerator struct {
	db *gorm.DB
}

// NewGormVoucherNumberGenerator creates a new GormVoucherNumberGenerator
func NewGormVoucherNumberGenerator(db *gorm.DB) *GormVoucherNumberGenerator {
	return &GormVoucherNumberGenerator{db: db}
}

// Next allocates the next number for the voucher type and date
func (g *GormVoucherNumberGenerator) Next(ctx context.Context, companyID uuid.UUID, voucherType accounting.VoucherType, date string) (string, error) {
	year := models.ParseDate(date).Year()
	if date == "" || year <= 1 {
		year = time.Now().UTC().Year()
	}
	prefix := voucherType.NumberPrefix()

	var next int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := &models.VoucherSequenceModel{
			CompanyID: companyID,
			Prefix:    prefix,
			Year:      year,
			UpdatedAt: time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
			return err
		}

		var seq models.VoucherSequenceModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("company_id = ? AND prefix = ? AND year = ?", companyID, prefix, year).
			First(&seq).Error; err != nil {
			return err
		}
		next = seq.LastValue + 1
		return tx.Model(&models.VoucherSequenceModel{}).
			Where("company_id = ? AND prefix = ? AND year = ?", companyID, prefix, year).
			Updates(map[string]any{"last_value": next, "updated_at": time.Now()}).Error
	})
	if err != nil {
		return "", fmt.Errorf("allocate voucher number: %w", err)
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, year, next), nil
}

// Ensure GormVoucherNumberGenerator implements VoucherNumberGenerator
var _ accounting.VoucherNumberGenerator = (*GormVoucherNumberGenerator)(nil)
