package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/shopspring/decimal"
)

// VoucherModel is the persistence model for the Voucher aggregate root.
// Lines are stored in voucher_lines and replaced as a whole on every save.
type VoucherModel struct {
	AggregateModel
	VoucherNo           string                     `gorm:"type:varchar(50);not null;index"`
	Type                accounting.VoucherType     `gorm:"type:varchar(30);not null;index"`
	Date                time.Time                  `gorm:"type:date;not null;index"`
	Description         string                     `gorm:"type:text"`
	Currency            string                     `gorm:"type:varchar(3);not null"`
	BaseCurrency        string                     `gorm:"type:varchar(3);not null"`
	ExchangeRate        decimal.Decimal            `gorm:"type:decimal(18,6);not null"`
	TotalDebit          decimal.Decimal            `gorm:"type:decimal(20,6);not null"`
	TotalCredit         decimal.Decimal            `gorm:"type:decimal(20,6);not null"`
	Status              accounting.VoucherStatus   `gorm:"type:varchar(20);not null;index"`
	Metadata            accounting.VoucherMetadata `gorm:"type:jsonb;serializer:json"`
	CreatedBy           uuid.UUID                  `gorm:"type:uuid;not null"`
	ApprovedBy          *uuid.UUID                 `gorm:"type:uuid"`
	ApprovedAt          *time.Time
	RejectedBy          *uuid.UUID `gorm:"type:uuid"`
	RejectedAt          *time.Time
	RejectionReason     string     `gorm:"type:varchar(500)"`
	CancelledBy         *uuid.UUID `gorm:"type:uuid"`
	CancelledAt         *time.Time
	PostedBy            *uuid.UUID `gorm:"type:uuid"`
	PostedAt            *time.Time `gorm:"index"`
	LockedBy            *uuid.UUID `gorm:"type:uuid"`
	LockedAt            *time.Time
	PostingLockPolicy   accounting.PostingLockPolicy `gorm:"type:varchar(20)"`
	ReversalOfVoucherID *uuid.UUID                   `gorm:"type:uuid;index"`
	Reference           string                       `gorm:"type:varchar(100)"`
	Lines               []VoucherLineModel           `gorm:"foreignKey:VoucherID;references:ID"`
}

// TableName returns the table name for GORM
func (VoucherModel) TableName() string {
	return "vouchers"
}

// VoucherLineModel is one posting line of a voucher
type VoucherLineModel struct {
	VoucherID    uuid.UUID         `gorm:"type:uuid;primaryKey"`
	LineNo       int               `gorm:"primaryKey;autoIncrement:false"`
	AccountID    string            `gorm:"type:varchar(64);not null;index"`
	Side         accounting.Side   `gorm:"type:varchar(10);not null"`
	Amount       decimal.Decimal   `gorm:"type:decimal(20,6);not null"`
	Currency     string            `gorm:"type:varchar(3);not null"`
	BaseAmount   decimal.Decimal   `gorm:"type:decimal(20,6);not null"`
	BaseCurrency string            `gorm:"type:varchar(3);not null"`
	ExchangeRate decimal.Decimal   `gorm:"type:decimal(18,6);not null"`
	CostCenterID string            `gorm:"type:varchar(64)"`
	Notes        string            `gorm:"type:text"`
	Metadata     map[string]string `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (VoucherLineModel) TableName() string {
	return "voucher_lines"
}

// ToDomain converts the persistence model to a domain Voucher, re-checking its invariants
func (m *VoucherModel) ToDomain() (*accounting.Voucher, error) {
	lines := make([]accounting.VoucherLineInput, len(m.Lines))
	for i, l := range m.Lines {
		lines[i] = accounting.VoucherLineInput{
			ID:           l.LineNo,
			AccountID:    l.AccountID,
			Side:         l.Side,
			Amount:       l.Amount,
			Currency:     l.Currency,
			BaseAmount:   l.BaseAmount,
			BaseCurrency: l.BaseCurrency,
			ExchangeRate: l.ExchangeRate,
			Notes:        l.Notes,
			CostCenterID: l.CostCenterID,
			Metadata:     l.Metadata,
		}
	}
	return accounting.RestoreVoucher(accounting.VoucherState{
		ID:                  m.ID,
		CompanyID:           m.CompanyID,
		Version:             m.Version,
		VoucherNo:           m.VoucherNo,
		Type:                m.Type,
		Date:                FormatDate(m.Date),
		Description:         m.Description,
		Currency:            m.Currency,
		BaseCurrency:        m.BaseCurrency,
		ExchangeRate:        m.ExchangeRate,
		Lines:               lines,
		TotalDebit:          m.TotalDebit,
		TotalCredit:         m.TotalCredit,
		Status:              m.Status,
		Metadata:            m.Metadata,
		CreatedBy:           m.CreatedBy,
		CreatedAt:           m.CreatedAt,
		ApprovedBy:          m.ApprovedBy,
		ApprovedAt:          m.ApprovedAt,
		RejectedBy:          m.RejectedBy,
		RejectedAt:          m.RejectedAt,
		RejectionReason:     m.RejectionReason,
		CancelledBy:         m.CancelledBy,
		CancelledAt:         m.CancelledAt,
		PostedBy:            m.PostedBy,
		PostedAt:            m.PostedAt,
		LockedBy:            m.LockedBy,
		LockedAt:            m.LockedAt,
		PostingLockPolicy:   m.PostingLockPolicy,
		ReversalOfVoucherID: m.ReversalOfVoucherID,
		Reference:           m.Reference,
		UpdatedAt:           m.UpdatedAt,
	})
}

// VoucherModelFromDomain converts a domain Voucher to the persistence model
func VoucherModelFromDomain(v *accounting.Voucher) *VoucherModel {
	s := v.State()
	m := &VoucherModel{
		VoucherNo:           s.VoucherNo,
		Type:                s.Type,
		Date:                ParseDate(s.Date),
		Description:         s.Description,
		Currency:            s.Currency,
		BaseCurrency:        s.BaseCurrency,
		ExchangeRate:        s.ExchangeRate,
		TotalDebit:          s.TotalDebit,
		TotalCredit:         s.TotalCredit,
		Status:              s.Status,
		Metadata:            s.Metadata,
		CreatedBy:           s.CreatedBy,
		ApprovedBy:          s.ApprovedBy,
		ApprovedAt:          s.ApprovedAt,
		RejectedBy:          s.RejectedBy,
		RejectedAt:          s.RejectedAt,
		RejectionReason:     s.RejectionReason,
		CancelledBy:         s.CancelledBy,
		CancelledAt:         s.CancelledAt,
		PostedBy:            s.PostedBy,
		PostedAt:            s.PostedAt,
		LockedBy:            s.LockedBy,
		LockedAt:            s.LockedAt,
		PostingLockPolicy:   s.PostingLockPolicy,
		ReversalOfVoucherID: s.ReversalOfVoucherID,
		Reference:           s.Reference,
	}
	m.ID = s.ID
	m.CompanyID = s.CompanyID
	m.Version = s.Version
	m.CreatedAt = s.CreatedAt
	m.UpdatedAt = s.UpdatedAt

	m.Lines = make([]VoucherLineModel, len(s.Lines))
	for i, l := range s.Lines {
		m.Lines[i] = VoucherLineModel{
			VoucherID:    s.ID,
			LineNo:       l.ID,
			AccountID:    l.AccountID,
			Side:         l.Side,
			Amount:       l.Amount,
			Currency:     l.Currency,
			BaseAmount:   l.BaseAmount,
			BaseCurrency: l.BaseCurrency,
			ExchangeRate: l.ExchangeRate,
			CostCenterID: l.CostCenterID,
			Notes:        l.Notes,
			Metadata:     l.Metadata,
		}
	}
	return m
}

// LedgerEntryModel is one immutable ledger row. Balances are always aggregated from these rows.
type LedgerEntryModel struct {
	CompanyModel
	VoucherID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	VoucherNo    string          `gorm:"type:varchar(50);not null"`
	LineNo       int             `gorm:"not null"`
	AccountID    string          `gorm:"type:varchar(64);not null;index"`
	Side         accounting.Side `gorm:"type:varchar(10);not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Currency     string          `gorm:"type:varchar(3);not null"`
	BaseAmount   decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	BaseCurrency string          `gorm:"type:varchar(3);not null"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	Date         time.Time       `gorm:"type:date;not null;index"`
	CostCenterID string          `gorm:"type:varchar(64)"`
	Notes        string          `gorm:"type:text"`
	PostedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToDomain converts the persistence model to a domain LedgerEntry
func (m *LedgerEntryModel) ToDomain() accounting.LedgerEntry {
	return accounting.LedgerEntry{
		ID:           m.ID,
		CompanyID:    m.CompanyID,
		VoucherID:    m.VoucherID,
		VoucherNo:    m.VoucherNo,
		LineID:       m.LineNo,
		AccountID:    m.AccountID,
		Side:         m.Side,
		Amount:       m.Amount,
		Currency:     m.Currency,
		BaseAmount:   m.BaseAmount,
		BaseCurrency: m.BaseCurrency,
		ExchangeRate: m.ExchangeRate,
		Date:         FormatDate(m.Date),
		CostCenterID: m.CostCenterID,
		Notes:        m.Notes,
		PostedAt:     m.PostedAt,
	}
}

// LedgerEntryModelFromDomain converts a domain LedgerEntry to the persistence model
func LedgerEntryModelFromDomain(e accounting.LedgerEntry) LedgerEntryModel {
	m := LedgerEntryModel{
		VoucherID:    e.VoucherID,
		VoucherNo:    e.VoucherNo,
		LineNo:       e.LineID,
		AccountID:    e.AccountID,
		Side:         e.Side,
		Amount:       e.Amount,
		Currency:     e.Currency,
		BaseAmount:   e.BaseAmount,
		BaseCurrency: e.BaseCurrency,
		ExchangeRate: e.ExchangeRate,
		Date:         ParseDate(e.Date),
		CostCenterID: e.CostCenterID,
		Notes:        e.Notes,
		PostedAt:     e.PostedAt,
	}
	m.ID = e.ID
	m.CompanyID = e.CompanyID
	m.CreatedAt = e.PostedAt
	m.UpdatedAt = e.PostedAt
	return m
}

// ParseDate converts a YYYY-MM-DD accounting date into a UTC midnight timestamp.
// Malformed input yields the zero time; domain constructors reject such dates earlier.
func ParseDate(day string) time.Time {
	t, err := time.Parse(accounting.DateLayout, day)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatDate converts a stored date column back into YYYY-MM-DD
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(accounting.DateLayout)
}
