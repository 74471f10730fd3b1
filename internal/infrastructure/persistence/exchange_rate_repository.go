package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormExchangeRateRepository implements ExchangeRateRepository using GORM
type GormExchangeRateRepository struct {
	db *gorm.DB
}

// NewGormExchangeRateRepository creates a new GormExchangeRateRepository
func NewGormExchangeRateRepository(db *gorm.DB) *GormExchangeRateRepository {
	return &GormExchangeRateRepository{db: db}
}

func (r *GormExchangeRateRepository) pair(ctx context.Context, companyID uuid.UUID, from, to string) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("company_id = ? AND from_currency = ? AND to_currency = ?", companyID, from, to)
}

func (r *GormExchangeRateRepository) first(query *gorm.DB) (*accounting.ExchangeRate, error) {
	var model models.ExchangeRateModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rate := model.ToDomain()
	return &rate, nil
}

// GetRecentRates returns the latest rates of a pair, newest first
func (r *GormExchangeRateRepository) GetRecentRates(ctx context.Context, companyID uuid.UUID, from, to string, limit int) ([]accounting.ExchangeRate, error) {
	var rateModels []models.ExchangeRateModel
	if err := r.pair(ctx, companyID, from, to).
		Order("date DESC").Order("created_at DESC").
		Limit(limit).
		Find(&rateModels).Error; err != nil {
		return nil, err
	}
	rates := make([]accounting.ExchangeRate, len(rateModels))
	for i := range rateModels {
		rates[i] = rateModels[i].ToDomain()
	}
	return rates, nil
}

// GetMostRecentRateBeforeDate returns the latest rate dated on or before date
func (r *GormExchangeRateRepository) GetMostRecentRateBeforeDate(ctx context.Context, companyID uuid.UUID, from, to, date string) (*accounting.ExchangeRate, error) {
	return r.first(r.pair(ctx, companyID, from, to).
		Where("date <= ?", models.ParseDate(date)).
		Order("date DESC").Order("created_at DESC"))
}

// GetRateOnDate returns the latest rate recorded for exactly date
func (r *GormExchangeRateRepository) GetRateOnDate(ctx context.Context, companyID uuid.UUID, from, to, date string) (*accounting.ExchangeRate, error) {
	return r.first(r.pair(ctx, companyID, from, to).
		Where("date = ?", models.ParseDate(date)).
		Order("created_at DESC"))
}

// Save stores a new exchange rate
func (r *GormExchangeRateRepository) Save(ctx context.Context, rate *accounting.ExchangeRate) error {
	return r.db.WithContext(ctx).Create(models.ExchangeRateModelFromDomain(rate)).Error
}

// Delete removes an exchange rate of a company
func (r *GormExchangeRateRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Delete(&models.ExchangeRateModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError(accounting.CodeExchangeRateNotFound, "Exchange rate not found").
			WithDetail("id", id.String())
	}
	return nil
}

// Ensure GormExchangeRateRepository implements ExchangeRateRepository
var _ accounting.ExchangeRateRepository = (*GormExchangeRateRepository)(nil)
