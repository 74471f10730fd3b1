package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVoucherRepository implements VoucherRepository using GORM
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewGormVoucherRepository creates a new GormVoucherRepository
func NewGormVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormVoucherRepository) WithTx(tx *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: tx}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

func (r *GormVoucherRepository) findOne(query *gorm.DB) (*accounting.Voucher, error) {
	var model models.VoucherModel
	if err := query.Preload("Lines", orderedLines).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	v, err := model.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("stored voucher %s is invalid: %w", model.ID, err)
	}
	return v, nil
}

// FindByID finds a voucher by ID within a company
func (r *GormVoucherRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*accounting.Voucher, error) {
	return r.findOne(r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id))
}

// FindByIDForUpdate finds a voucher and locks its row until the surrounding transaction ends
func (r *GormVoucherRepository) FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*accounting.Voucher, error) {
	return r.findOne(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND id = ?", companyID, id))
}

// FindByReversalOf finds the reversal voucher of an original voucher
func (r *GormVoucherRepository) FindByReversalOf(ctx context.Context, companyID, originalID uuid.UUID) (*accounting.Voucher, error) {
	return r.findOne(r.db.WithContext(ctx).
		Where("company_id = ? AND reversal_of_voucher_id = ?", companyID, originalID).
		Order("created_at ASC"))
}

// FindByCompany lists a company's vouchers with filtering and pagination
func (r *GormVoucherRepository) FindByCompany(ctx context.Context, companyID uuid.UUID, filter accounting.VoucherFilter) ([]*accounting.Voucher, int64, error) {
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.VoucherModel{}).Scopes(forCompany(companyID)),
		filter).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var voucherModels []models.VoucherModel
	if err := r.applyFilter(query, filter).
		Preload("Lines", orderedLines).
		Find(&voucherModels).Error; err != nil {
		return nil, 0, err
	}

	vouchers := make([]*accounting.Voucher, 0, len(voucherModels))
	for i := range voucherModels {
		v, err := voucherModels[i].ToDomain()
		if err != nil {
			return nil, 0, fmt.Errorf("stored voucher %s is invalid: %w", voucherModels[i].ID, err)
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, total, nil
}

// Save inserts a new voucher or updates an existing one with optimistic locking.
// Lines are replaced as a whole.
func (r *GormVoucherRepository) Save(ctx context.Context, v *accounting.Voucher) error {
	model := models.VoucherModelFromDomain(v)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if v.IsNew() {
			if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return shared.ErrAlreadyExists
				}
				return err
			}
		} else {
			result := tx.Model(model).
				Where("company_id = ? AND version = ?", model.CompanyID, v.PersistedVersion()).
				Select("*").
				Omit("id", "company_id", "created_at", "created_by", clause.Associations).
				Updates(model)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				var count int64
				if err := tx.Model(&models.VoucherModel{}).
					Where("company_id = ? AND id = ?", model.CompanyID, model.ID).
					Count(&count).Error; err != nil {
					return fmt.Errorf("check voucher %s exists: %w", model.ID, err)
				}
				if count == 0 {
					return shared.ErrNotFound
				}
				return shared.ErrConcurrencyConflict
			}
			if err := tx.Where("voucher_id = ?", model.ID).Delete(&models.VoucherLineModel{}).Error; err != nil {
				return err
			}
		}
		if len(model.Lines) == 0 {
			return nil
		}
		return tx.Create(&model.Lines).Error
	})
}

// Delete removes a voucher and its lines
func (r *GormVoucherRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("voucher_id = ? AND voucher_id IN (?)", id,
			tx.Model(&models.VoucherModel{}).Select("id").Scopes(forCompany(companyID)),
		).Delete(&models.VoucherLineModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("company_id = ? AND id = ?", companyID, id).Delete(&models.VoucherModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// applyFilter applies filter options to the query
func (r *GormVoucherRepository) applyFilter(query *gorm.DB, filter accounting.VoucherFilter) *gorm.DB {
	return query.Offset(filter.Offset()).Limit(filter.Limit()).
		Order(voucherOrder(filter.OrderBy, filter.OrderDir))
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormVoucherRepository) applyFilterWithoutPagination(query *gorm.DB, filter accounting.VoucherFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.DateFrom != "" {
		query = query.Where("date >= ?", models.ParseDate(filter.DateFrom))
	}
	if filter.DateTo != "" {
		query = query.Where("date <= ?", models.ParseDate(filter.DateTo))
	}
	if filter.Posted != nil {
		if *filter.Posted {
			query = query.Where("posted_at IS NOT NULL")
		} else {
			query = query.Where("posted_at IS NULL")
		}
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("voucher_no LIKE ? OR description LIKE ? OR reference LIKE ?", search, search, search)
	}
	return query
}

// Ensure GormVoucherRepository implements VoucherRepository
var _ accounting.VoucherRepository = (*GormVoucherRepository)(nil)
