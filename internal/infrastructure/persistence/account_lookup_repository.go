package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAccountLookupService implements AccountLookupService over the accounts table
type GormAccountLookupService struct {
	db *gorm.DB
}

// NewGormAccountLookupService creates a new GormAccountLookupService
func NewGormAccountLookupService(db *gorm.DB) *GormAccountLookupService {
	return &GormAccountLookupService{db: db}
}

// GetAccountsByIDs returns the accounts matching ids. Ids that are not UUIDs cannot match and are skipped.
func (s *GormAccountLookupService) GetAccountsByIDs(ctx context.Context, companyID uuid.UUID, ids []string) ([]accounting.Account, error) {
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil {
			parsed = append(parsed, u)
		}
	}
	if len(parsed) == 0 {
		return []accounting.Account{}, nil
	}
	return s.find(s.db.WithContext(ctx).Where("company_id = ? AND id IN ?", companyID, parsed))
}

// GetAccountsByCodes returns the accounts matching codes
func (s *GormAccountLookupService) GetAccountsByCodes(ctx context.Context, companyID uuid.UUID, codes []string) ([]accounting.Account, error) {
	if len(codes) == 0 {
		return []accounting.Account{}, nil
	}
	return s.find(s.db.WithContext(ctx).Where("company_id = ? AND code IN ?", companyID, codes))
}

func (s *GormAccountLookupService) find(query *gorm.DB) ([]accounting.Account, error) {
	var accountModels []models.AccountModel
	if err := query.Find(&accountModels).Error; err != nil {
		return nil, err
	}
	accounts := make([]accounting.Account, len(accountModels))
	for i := range accountModels {
		accounts[i] = accountModels[i].ToDomain()
	}
	return accounts, nil
}

// Ensure GormAccountLookupService implements AccountLookupService
var _ accounting.AccountLookupService = (*GormAccountLookupService)(nil)
