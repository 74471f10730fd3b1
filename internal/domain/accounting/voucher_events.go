package accounting

import (
	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants for Voucher
const (
	EventTypeVoucherCreated   = "VoucherCreated"
	EventTypeVoucherUpdated   = "VoucherUpdated"
	EventTypeVoucherSubmitted = "VoucherSubmitted"
	EventTypeCustodyConfirmed = "VoucherCustodyConfirmed"
	EventTypeVoucherApproved  = "VoucherApproved"
	EventTypeVoucherRejected  = "VoucherRejected"
	EventTypeVoucherCancelled = "VoucherCancelled"
	EventTypeVoucherPosted    = "VoucherPosted"
	EventTypeVoucherReversed  = "VoucherReversed"
	EventTypeVoucherDeleted   = "VoucherDeleted"
)

func newVoucherEvent(eventType string, v *Voucher) shared.BaseDomainEvent {
	return shared.NewBaseDomainEvent(eventType, AggregateTypeVoucher, v.GetID(), v.GetTenantID(), v.GetUpdatedAt())
}

// VoucherCreatedEvent is raised when a draft voucher is created
type VoucherCreatedEvent struct {
	shared.BaseDomainEvent
	VoucherNo   string          `json:"voucher_no"`
	VoucherType VoucherType     `json:"voucher_type"`
	Date        string          `json:"date"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	CreatedBy   uuid.UUID       `json:"created_by"`
}

// NewVoucherCreatedEvent creates a VoucherCreatedEvent
func NewVoucherCreatedEvent(v *Voucher) *VoucherCreatedEvent {
	return &VoucherCreatedEvent{
		BaseDomainEvent: newVoucherEvent(EventTypeVoucherCreated, v),
		VoucherNo:       v.voucherNo,
		VoucherType:     v.voucherType,
		Date:            v.date,
		TotalDebit:      v.totalDebit,
		CreatedBy:       v.createdBy,
	}
}

// VoucherUpdatedEvent is raised when voucher content is edited
type VoucherUpdatedEvent struct {
	shared.BaseDomainEvent
	VoucherNo string    `json:"voucher_no"`
	WasPosted bool      `json:"was_posted"`
	EditedBy  uuid.UUID `json:"edited_by"`
}

// NewVoucherUpdatedEvent creates a VoucherUpdatedEvent
func NewVoucherUpdatedEvent(v *Voucher, by uuid.UUID) *VoucherUpdatedEvent {
	return &VoucherUpdatedEvent{
		BaseDomainEvent: newVoucherEvent(EventTypeVoucherUpdated, v),
		VoucherNo:       v.voucherNo,
		WasPosted:       v.IsPosted(),
		EditedBy:        by,
	}
}

// VoucherSubmittedEvent is raised when a voucher enters approval
type VoucherSubmittedEvent struct {
	shared.BaseDomainEvent
	VoucherNo          string       `json:"voucher_no"`
	Mode               ApprovalMode `json:"mode"`
	NeedsFinancial     bool         `json:"needs_financial_approval"`
	RequiredCustodians []uuid.UUID  `json:"required_custodians,omitempty"`
	SubmittedBy        uuid.UUID    `json:"submitted_by"`
}

// NewVoucherSubmittedEvent creates a VoucherSubmittedEvent
func NewVoucherSubmittedEvent(v *Voucher, by uuid.UUID, gates GateEvaluation) *VoucherSubmittedEvent {
	return &VoucherSubmittedEvent{
		BaseDomainEvent:    newVoucherEvent(EventTypeVoucherSubmitted, v),
		VoucherNo:          v.voucherNo,
		Mode:               gates.Mode,
		NeedsFinancial:     gates.NeedsFinancialApproval,
		RequiredCustodians: gates.RequiredCustodians,
		SubmittedBy:        by,
	}
}

// CustodyConfirmedEvent is raised when one custodian confirms
type CustodyConfirmedEvent struct {
	shared.BaseDomainEvent
	CustodianID uuid.UUID `json:"custodian_id"`
	Remaining   int       `json:"remaining"`
}

// NewCustodyConfirmedEvent creates a CustodyConfirmedEvent
func NewCustodyConfirmedEvent(v *Voucher, custodian uuid.UUID) *CustodyConfirmedEvent {
	return &CustodyConfirmedEvent{
		BaseDomainEvent: newVoucherEvent(EventTypeCustodyConfirmed, v),
		CustodianID:     custodian,
		Remaining:       len(v.metadata.PendingCustodyConfirmations),
	}
}

// VoucherApprovedEvent is raised when the last gate is satisfied or the voucher is fast-tracked
type VoucherApprovedEvent struct {
	shared.BaseDomainEvent
	VoucherNo     string    `json:"voucher_no"`
	ApprovedBy    uuid.UUID `json:"approved_by"`
	GatesBypassed bool      `json:"gates_bypassed,omitempty"`
}

// NewVoucherApprovedEvent creates a VoucherApprovedEvent
func NewVoucherApprovedEvent(v *Voucher, by uuid.UUID) *VoucherApprovedEvent {
	return &VoucherApprovedEvent{
		BaseDomainEvent: newVoucherEvent(EventTypeVoucherApproved, v),
		VoucherNo:       v.voucherNo,
		ApprovedBy:      by,
		GatesBypassed:   v.metadata.ApprovalBypassed,
	}
}

// VoucherRejectedEvent is raised when a pending voucher is rejected
type VoucherRejectedEvent struct {
	shared.BaseDomainEvent
	RejectedBy uuid.UUID `json:"rejected_by"`
	Reason     string    `json:"reason,omitempty"`
}

// NewVoucherRejectedEvent creates a VoucherRejectedEvent
func NewVoucherRejectedEvent(v *Voucher, by uuid.UUID, reason string) *VoucherRejectedEvent {
	return &VoucherRejectedEvent{
		BaseDomainEvent: newVoucherEvent(EventTypeVoucherRejected, v),
		RejectedBy:      by,
		Reason:          reason,
	}
}

// VoucherCancelledEvent is raised when a voucher is cancelled
type VoucherCancelledEvent struct {
	shared.BaseDomainEvent
	CancelledBy uuid.UUID `json:"cancelled_by"`
}

// NewVoucherCancelledEvent creates a VoucherCancelledEvent
func NewVoucherCancelledEvent(v *Voucher, by uuid.UUID) *VoucherCancelledEvent {
	return &VoucherCancelledEvent{
		BaseDomainEvent: newVoucherEvent(EventTypeVoucherCancelled, v),
		CancelledBy:     by,
	}
}

// VoucherPostedEvent is raised when a voucher is posted to the ledger
type VoucherPostedEvent struct {
	shared.BaseDomainEvent
	VoucherNo           string            `json:"voucher_no"`
	VoucherType         VoucherType       `json:"voucher_type"`
	Date                string            `json:"date"`
	BaseCurrency        string            `json:"base_currency"`
	TotalDebit          decimal.Decimal   `json:"total_debit"`
	LockPolicy          PostingLockPolicy `json:"lock_policy"`
	PostedBy            uuid.UUID         `json:"posted_by"`
	ReversalOfVoucherID *uuid.UUID        `json:"reversal_of_voucher_id,omitempty"`
}

// NewVoucherPostedEvent creates a VoucherPostedEvent
func NewVoucherPostedEvent(v *Voucher, by uuid.UUID) *VoucherPostedEvent {
	return &VoucherPostedEvent{
		BaseDomainEvent:     newVoucherEvent(EventTypeVoucherPosted, v),
		VoucherNo:           v.voucherNo,
		VoucherType:         v.voucherType,
		Date:                v.date,
		BaseCurrency:        v.baseCurrency.String(),
		TotalDebit:          v.totalDebit,
		LockPolicy:          v.postingLockPolicy,
		PostedBy:            by,
		ReversalOfVoucherID: cloneUUID(v.reversalOfVoucherID),
	}
}

// VoucherReversedEvent is raised on the original voucher once its reversal is posted
type VoucherReversedEvent struct {
	shared.BaseDomainEvent
	VoucherNo         string     `json:"voucher_no"`
	ReversalVoucherID uuid.UUID  `json:"reversal_voucher_id"`
	CorrectionGroupID *uuid.UUID `json:"correction_group_id,omitempty"`
}

// NewVoucherReversedEvent creates a VoucherReversedEvent
func NewVoucherReversedEvent(v *Voucher, reversalID uuid.UUID) *VoucherReversedEvent {
	return &VoucherReversedEvent{
		BaseDomainEvent:   newVoucherEvent(EventTypeVoucherReversed, v),
		VoucherNo:         v.voucherNo,
		ReversalVoucherID: reversalID,
		CorrectionGroupID: cloneUUID(v.metadata.CorrectionGroupID),
	}
}

// VoucherDeletedEvent is raised by the delete use case after the voucher row is removed
type VoucherDeletedEvent struct {
	shared.BaseDomainEvent
	VoucherNo string    `json:"voucher_no"`
	WasPosted bool      `json:"was_posted"`
	DeletedBy uuid.UUID `json:"deleted_by"`
}

// NewVoucherDeletedEvent creates a VoucherDeletedEvent
func NewVoucherDeletedEvent(v *Voucher, by uuid.UUID) *VoucherDeletedEvent {
	return &VoucherDeletedEvent{
		BaseDomainEvent: newVoucherEvent(EventTypeVoucherDeleted, v),
		VoucherNo:       v.voucherNo,
		WasPosted:       v.IsPosted(),
		DeletedBy:       by,
	}
}
