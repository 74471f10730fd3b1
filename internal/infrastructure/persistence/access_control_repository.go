package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccessScopeProvider reads user organisational scopes
type GormAccessScopeProvider struct {
	db *gorm.DB
}

// NewGormAccessScopeProvider creates a new GormAccessScopeProvider
func NewGormAccessScopeProvider(db *gorm.DB) *GormAccessScopeProvider {
	return &GormAccessScopeProvider{db: db}
}

// GetScope returns the user's scope; a user without a stored scope belongs to no unit
func (p *GormAccessScopeProvider) GetScope(ctx context.Context, userID, companyID uuid.UUID) (accounting.UserAccessScope, error) {
	var model models.UserAccessScopeModel
	if err := p.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return accounting.UserAccessScope{UserID: userID}, nil
		}
		return accounting.UserAccessScope{}, err
	}
	return model.ToDomain(), nil
}

// SaveScope creates or replaces the user's scope
func (p *GormAccessScopeProvider) SaveScope(ctx context.Context, companyID uuid.UUID, scope accounting.UserAccessScope) error {
	model := &models.UserAccessScopeModel{
		CompanyID: companyID,
		UserID:    scope.UserID,
		IsSuper:   scope.IsSuper,
		UnitIDs:   scope.UnitIDs,
		UpdatedAt: time.Now(),
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "user_id"}},
		UpdateAll: true,
	}).Create(model).Error
}

// GormPermissionChecker checks user permissions stored in user_permissions
type GormPermissionChecker struct {
	db *gorm.DB
}

// NewGormPermissionChecker creates a new GormPermissionChecker
func NewGormPermissionChecker(db *gorm.DB) *GormPermissionChecker {
	return &GormPermissionChecker{db: db}
}

// permissionCandidates returns every grant that would satisfy permission,
// e.g. "a.b.c" is satisfied by "a.b.c", "a.b.*", "a.*" and "*"
func permissionCandidates(permission string) []string {
	candidates := []string{permission, "*"}
	parts := strings.Split(permission, ".")
	for i := len(parts) - 1; i > 0; i-- {
		candidates = append(candidates, strings.Join(parts[:i], ".")+".*")
	}
	return candidates
}

// HasPermission reports whether the user holds permission within the company
func (c *GormPermissionChecker) HasPermission(ctx context.Context, userID, companyID uuid.UUID, permission string) (bool, error) {
	var count int64
	if err := c.db.WithContext(ctx).
		Model(&models.UserPermissionModel{}).
		Where("company_id = ? AND user_id = ? AND permission IN ?", companyID, userID, permissionCandidates(permission)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AssertOrThrow returns PERMISSION_DENIED unless the user holds permission
func (c *GormPermissionChecker) AssertOrThrow(ctx context.Context, userID, companyID uuid.UUID, permission string) error {
	ok, err := c.HasPermission(ctx, userID, companyID, permission)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewAuthError("PERMISSION_DENIED", "Permission denied").
			WithDetail("permission", permission)
	}
	return nil
}

// Grant gives a permission to a user; granting twice is a no-op
func (c *GormPermissionChecker) Grant(ctx context.Context, userID, companyID uuid.UUID, permission string) error {
	model := &models.UserPermissionModel{
		ID:         uuid.New(),
		CompanyID:  companyID,
		UserID:     userID,
		Permission: permission,
		CreatedAt:  time.Now(),
	}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "user_id"}, {Name: "permission"}},
		DoNothing: true,
	}).Create(model).Error
}

// Ensure the access control types implement their domain interfaces
var (
	_ accounting.UserAccessScopeProvider = (*GormAccessScopeProvider)(nil)
	_ accounting.PermissionChecker       = (*GormPermissionChecker)(nil)
)
