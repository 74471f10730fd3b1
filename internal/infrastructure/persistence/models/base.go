package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// CompanyModel scopes a row to one company (tenant)
type CompanyModel struct {
	BaseModel
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// AggregateModel provides common persistence fields for company-scoped aggregate roots.
// It extends CompanyModel with version for optimistic locking.
type AggregateModel struct {
	CompanyModel
	Version int `gorm:"not null;default:1"`
}
