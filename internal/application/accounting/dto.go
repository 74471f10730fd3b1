package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/shopspring/decimal"
)

// Actor identifies who performs a use case and in which company
type Actor struct {
	CompanyID uuid.UUID
	UserID    uuid.UUID
}

// LineCommand is one voucher line as entered by a user.
// Amount is in the line currency; Parity converts it to the voucher currency.
type LineCommand struct {
	AccountID    string
	Side         accounting.Side
	Amount       decimal.Decimal
	Currency     string
	Parity       decimal.Decimal
	CostCenterID string
	Notes        string
	Metadata     map[string]string
}

// CreateVoucherCommand creates a draft voucher
type CreateVoucherCommand struct {
	Type         accounting.VoucherType
	Date         string
	Description  string
	Currency     string
	ExchangeRate decimal.Decimal
	Reference    string
	Lines        []LineCommand
	// Submit sends the voucher into approval right after creation
	Submit bool
	// PostImmediately submits, and posts when the voucher ends up APPROVED
	PostImmediately bool
	Metadata        accounting.VoucherMetadata
}

// UpdateVoucherCommand replaces the content of a voucher
type UpdateVoucherCommand struct {
	VoucherID    uuid.UUID
	Date         string
	Description  string
	Currency     string
	ExchangeRate decimal.Decimal
	Reference    string
	Lines        []LineCommand
}

// ReverseCommand reverses a posted voucher and optionally creates its replacement
type ReverseCommand struct {
	VoucherID uuid.UUID
	// ReversalDate is "today" to date the reversal now; empty keeps the original date
	ReversalDate    string
	Reason          string
	Replacement     *CreateVoucherCommand
	PostReplacement bool
}

// ReverseResult is the outcome of ReverseAndReplace
type ReverseResult struct {
	Reversal          *accounting.Voucher
	Replacement       *accounting.Voucher
	CorrectionGroupID uuid.UUID
	AlreadyReversed   bool
}

// ListVouchersQuery filters the voucher list
type ListVouchersQuery struct {
	Status   accounting.VoucherStatus
	Type     accounting.VoucherType
	DateFrom string
	DateTo   string
	Page     int
	PageSize int
}

// VoucherLineResponse is the API representation of a voucher line
type VoucherLineResponse struct {
	ID           int               `json:"id"`
	AccountID    string            `json:"accountId"`
	Side         accounting.Side   `json:"side"`
	Amount       decimal.Decimal   `json:"amount"`
	Currency     string            `json:"currency"`
	BaseAmount   decimal.Decimal   `json:"baseAmount"`
	BaseCurrency string            `json:"baseCurrency"`
	ExchangeRate decimal.Decimal   `json:"exchangeRate"`
	CostCenterID string            `json:"costCenterId,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// VoucherResponse is the API representation of a voucher
type VoucherResponse struct {
	ID                  uuid.UUID                    `json:"id"`
	CompanyID           uuid.UUID                    `json:"companyId"`
	VoucherNo           string                       `json:"voucherNo"`
	Type                accounting.VoucherType       `json:"type"`
	Date                string                       `json:"date"`
	Description         string                       `json:"description"`
	Currency            string                       `json:"currency"`
	BaseCurrency        string                       `json:"baseCurrency"`
	ExchangeRate        decimal.Decimal              `json:"exchangeRate"`
	Lines               []VoucherLineResponse        `json:"lines"`
	TotalDebit          decimal.Decimal              `json:"totalDebit"`
	TotalCredit         decimal.Decimal              `json:"totalCredit"`
	Status              accounting.VoucherStatus     `json:"status"`
	Posted              bool                         `json:"posted"`
	Metadata            accounting.VoucherMetadata   `json:"metadata"`
	CreatedBy           uuid.UUID                    `json:"createdBy"`
	CreatedAt           time.Time                    `json:"createdAt"`
	ApprovedBy          *uuid.UUID                   `json:"approvedBy,omitempty"`
	ApprovedAt          *time.Time                   `json:"approvedAt,omitempty"`
	RejectedBy          *uuid.UUID                   `json:"rejectedBy,omitempty"`
	RejectedAt          *time.Time                   `json:"rejectedAt,omitempty"`
	RejectionReason     string                       `json:"rejectionReason,omitempty"`
	CancelledBy         *uuid.UUID                   `json:"cancelledBy,omitempty"`
	CancelledAt         *time.Time                   `json:"cancelledAt,omitempty"`
	PostedBy            *uuid.UUID                   `json:"postedBy,omitempty"`
	PostedAt            *time.Time                   `json:"postedAt,omitempty"`
	PostingLockPolicy   accounting.PostingLockPolicy `json:"postingLockPolicy,omitempty"`
	ReversalOfVoucherID *uuid.UUID                   `json:"reversalOfVoucherId,omitempty"`
	Reference           string                       `json:"reference,omitempty"`
	Version             int                          `json:"version"`
	UpdatedAt           time.Time                    `json:"updatedAt"`
}

// NewVoucherResponse maps a voucher to its API representation
func NewVoucherResponse(v *accounting.Voucher) VoucherResponse {
	s := v.State()
	lines := make([]VoucherLineResponse, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = VoucherLineResponse{
			ID:           l.ID,
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
	return VoucherResponse{
		ID:                  s.ID,
		CompanyID:           s.CompanyID,
		VoucherNo:           s.VoucherNo,
		Type:                s.Type,
		Date:                s.Date,
		Description:         s.Description,
		Currency:            s.Currency,
		BaseCurrency:        s.BaseCurrency,
		ExchangeRate:        s.ExchangeRate,
		Lines:               lines,
		TotalDebit:          s.TotalDebit,
		TotalCredit:         s.TotalCredit,
		Status:              s.Status,
		Posted:              s.PostedAt != nil,
		Metadata:            s.Metadata,
		CreatedBy:           s.CreatedBy,
		CreatedAt:           s.CreatedAt,
		ApprovedBy:          s.ApprovedBy,
		ApprovedAt:          s.ApprovedAt,
		RejectedBy:          s.RejectedBy,
		RejectedAt:          s.RejectedAt,
		RejectionReason:     s.RejectionReason,
		CancelledBy:         s.CancelledBy,
		CancelledAt:         s.CancelledAt,
		PostedBy:            s.PostedBy,
		PostedAt:            s.PostedAt,
		PostingLockPolicy:   s.PostingLockPolicy,
		ReversalOfVoucherID: s.ReversalOfVoucherID,
		Reference:           s.Reference,
		Version:             s.Version,
		UpdatedAt:           s.UpdatedAt,
	}
}

// NewVoucherResponses maps a list of vouchers
func NewVoucherResponses(vs []*accounting.Voucher) []VoucherResponse {
	out := make([]VoucherResponse, len(vs))
	for i, v := range vs {
		out[i] = NewVoucherResponse(v)
	}
	return out
}
