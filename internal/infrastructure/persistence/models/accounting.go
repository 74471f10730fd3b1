package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/shopspring/decimal"
)

// ExchangeRateModel is a recorded from→to rate for one day
type ExchangeRateModel struct {
	CompanyModel
	FromCurrency string          `gorm:"type:varchar(3);not null;index:idx_exchange_rate_pair"`
	ToCurrency   string          `gorm:"type:varchar(3);not null;index:idx_exchange_rate_pair"`
	Rate         decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	Date         time.Time       `gorm:"type:date;not null;index"`
	Source       string          `gorm:"type:varchar(30);not null;default:'manual'"`
	CreatedBy    uuid.UUID       `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ExchangeRateModel) TableName() string {
	return "exchange_rates"
}

// ToDomain converts the persistence model to a domain ExchangeRate
func (m *ExchangeRateModel) ToDomain() accounting.ExchangeRate {
	return accounting.ExchangeRate{
		ID:           m.ID,
		CompanyID:    m.CompanyID,
		FromCurrency: m.FromCurrency,
		ToCurrency:   m.ToCurrency,
		Rate:         m.Rate,
		Date:         FormatDate(m.Date),
		Source:       m.Source,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
	}
}

// ExchangeRateModelFromDomain converts a domain ExchangeRate to the persistence model
func ExchangeRateModelFromDomain(r *accounting.ExchangeRate) *ExchangeRateModel {
	m := &ExchangeRateModel{
		FromCurrency: r.FromCurrency,
		ToCurrency:   r.ToCurrency,
		Rate:         r.Rate,
		Date:         ParseDate(r.Date),
		Source:       r.Source,
		CreatedBy:    r.CreatedBy,
	}
	m.ID = r.ID
	m.CompanyID = r.CompanyID
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.CreatedAt
	return m
}

// AccountModel is a chart-of-accounts entry as read by the posting engine
type AccountModel struct {
	CompanyModel
	Code                        string                 `gorm:"type:varchar(30);not null;index"`
	Name                        string                 `gorm:"type:varchar(200);not null"`
	Type                        string                 `gorm:"type:varchar(30)"`
	Role                        accounting.AccountRole `gorm:"type:varchar(10);not null;default:'POSTING'"`
	IsActive                    bool                   `gorm:"not null;default:true"`
	Currency                    string                 `gorm:"type:varchar(3)"`
	RequiresApproval            bool                   `gorm:"not null;default:false"`
	RequiresCustodyConfirmation bool                   `gorm:"not null;default:false"`
	CustodianUserID             *uuid.UUID             `gorm:"type:uuid"`
	OwnerScope                  string                 `gorm:"type:varchar(20)"`
	OwnerUnitIDs                []string               `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() accounting.Account {
	return accounting.Account{
		ID:                          m.ID.String(),
		Code:                        m.Code,
		Name:                        m.Name,
		Type:                        m.Type,
		Role:                        m.Role,
		Active:                      m.IsActive,
		Currency:                    m.Currency,
		RequiresApproval:            m.RequiresApproval,
		RequiresCustodyConfirmation: m.RequiresCustodyConfirmation,
		CustodianUserID:             m.CustodianUserID,
		OwnerScope:                  m.OwnerScope,
		OwnerUnitIDs:                m.OwnerUnitIDs,
	}
}

// AccountingPolicyConfigModel is a company's accounting governance configuration
type AccountingPolicyConfigModel struct {
	CompanyID                  uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	BaseCurrency               string                      `gorm:"type:varchar(3)"`
	FinancialApprovalEnabled   bool                        `gorm:"not null;default:false"`
	FAApplyMode                accounting.FAApplyMode      `gorm:"column:fa_apply_mode;type:varchar(20);not null;default:'ALL'"`
	CustodyConfirmationEnabled bool                        `gorm:"not null;default:false"`
	LockedThroughDate          *time.Time                  `gorm:"type:date"`
	AccountAccessEnabled       bool                        `gorm:"not null;default:false"`
	CostCenterPolicy           accounting.CostCenterPolicy `gorm:"type:jsonb;serializer:json"`
	PolicyErrorMode            accounting.PolicyErrorMode  `gorm:"type:varchar(20);not null;default:'FAIL_FAST'"`
	AllowEditDeletePosted      bool                        `gorm:"not null;default:false"`
	UpdatedAt                  time.Time                   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountingPolicyConfigModel) TableName() string {
	return "accounting_policy_configs"
}

// ToDomain converts the persistence model to a domain ApprovalPolicyConfig
func (m *AccountingPolicyConfigModel) ToDomain() accounting.ApprovalPolicyConfig {
	cfg := accounting.ApprovalPolicyConfig{
		BaseCurrency:               m.BaseCurrency,
		FinancialApprovalEnabled:   m.FinancialApprovalEnabled,
		FAApplyMode:                m.FAApplyMode,
		CustodyConfirmationEnabled: m.CustodyConfirmationEnabled,
		AccountAccessEnabled:       m.AccountAccessEnabled,
		CostCenterPolicy:           m.CostCenterPolicy,
		PolicyErrorMode:            m.PolicyErrorMode,
		AllowEditDeletePosted:      m.AllowEditDeletePosted,
	}
	if m.LockedThroughDate != nil {
		cfg.LockedThroughDate = FormatDate(*m.LockedThroughDate)
	}
	return cfg
}

// AccountingPolicyConfigModelFromDomain converts a domain config to the persistence model
func AccountingPolicyConfigModelFromDomain(companyID uuid.UUID, cfg accounting.ApprovalPolicyConfig, now time.Time) *AccountingPolicyConfigModel {
	m := &AccountingPolicyConfigModel{
		CompanyID:                  companyID,
		BaseCurrency:               cfg.BaseCurrency,
		FinancialApprovalEnabled:   cfg.FinancialApprovalEnabled,
		FAApplyMode:                cfg.FAApplyMode,
		CustodyConfirmationEnabled: cfg.CustodyConfirmationEnabled,
		AccountAccessEnabled:       cfg.AccountAccessEnabled,
		CostCenterPolicy:           cfg.CostCenterPolicy,
		PolicyErrorMode:            cfg.PolicyErrorMode,
		AllowEditDeletePosted:      cfg.AllowEditDeletePosted,
		UpdatedAt:                  now,
	}
	if m.FAApplyMode == "" {
		m.FAApplyMode = accounting.FAApplyAll
	}
	if m.PolicyErrorMode == "" {
		m.PolicyErrorMode = accounting.PolicyErrorFailFast
	}
	if cfg.LockedThroughDate != "" {
		d := ParseDate(cfg.LockedThroughDate)
		m.LockedThroughDate = &d
	}
	return m
}

// UserAccessScopeModel lists the organisational units a user belongs to within a company
type UserAccessScopeModel struct {
	CompanyID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	IsSuper   bool      `gorm:"not null;default:false"`
	UnitIDs   []string  `gorm:"type:jsonb;serializer:json"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserAccessScopeModel) TableName() string {
	return "user_access_scopes"
}

// ToDomain converts the persistence model to a domain UserAccessScope
func (m *UserAccessScopeModel) ToDomain() accounting.UserAccessScope {
	return accounting.UserAccessScope{
		UserID:  m.UserID,
		IsSuper: m.IsSuper,
		UnitIDs: m.UnitIDs,
	}
}

// UserPermissionModel grants one permission code to a user within a company.
// A trailing ".*" grants every permission under the prefix, "*" grants all.
type UserPermissionModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_permission,priority:1"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_permission,priority:2"`
	Permission string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_user_permission,priority:3"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserPermissionModel) TableName() string {
	return "user_permissions"
}

// VoucherSequenceModel is the last allocated voucher number per company, prefix and year
type VoucherSequenceModel struct {
	CompanyID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Prefix    string    `gorm:"type:varchar(10);primaryKey"`
	Year      int       `gorm:"primaryKey;autoIncrement:false"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VoucherSequenceModel) TableName() string {
	return "voucher_sequences"
}

// AllModels returns every model of the ledger schema, in dependency order
func AllModels() []any {
	return []any{
		&AccountModel{},
		&AccountingPolicyConfigModel{},
		&UserAccessScopeModel{},
		&UserPermissionModel{},
		&VoucherSequenceModel{},
		&ExchangeRateModel{},
		&VoucherModel{},
		&VoucherLineModel{},
		&LedgerEntryModel{},
	}
}
