package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPolicyConfigRepository stores accounting policy configuration per company
type GormPolicyConfigRepository struct {
	db *gorm.DB
}

// NewGormPolicyConfigRepository creates a new GormPolicyConfigRepository
func NewGormPolicyConfigRepository(db *gorm.DB) *GormPolicyConfigRepository {
	return &GormPolicyConfigRepository{db: db}
}

// GetConfig returns the company's configuration, or the defaults when none is stored
func (r *GormPolicyConfigRepository) GetConfig(ctx context.Context, companyID uuid.UUID) (accounting.ApprovalPolicyConfig, error) {
	var model models.AccountingPolicyConfigModel
	if err := r.db.WithContext(ctx).Scopes(forCompany(companyID)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return accounting.DefaultApprovalPolicyConfig(), nil
		}
		return accounting.ApprovalPolicyConfig{}, err
	}
	return model.ToDomain(), nil
}

// SaveConfig creates or replaces the company's configuration
func (r *GormPolicyConfigRepository) SaveConfig(ctx context.Context, companyID uuid.UUID, cfg accounting.ApprovalPolicyConfig) error {
	model := models.AccountingPolicyConfigModelFromDomain(companyID, cfg, time.Now())
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}},
		UpdateAll: true,
	}).Create(model).Error
}

// Ensure GormPolicyConfigRepository implements AccountingPolicyConfigProvider
var _ accounting.AccountingPolicyConfigProvider = (*GormPolicyConfigRepository)(nil)
