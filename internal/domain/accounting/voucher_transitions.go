package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Submit moves a DRAFT or REJECTED voucher into PENDING and freezes the gate requirements
func (v *Voucher) Submit(by uuid.UUID, gates GateEvaluation, at time.Time) (*Voucher, error) {
	if v.IsPosted() {
		return nil, transitionError("submit", v.status).WithDetail("posted", true)
	}
	if !v.status.CanSubmit() {
		return nil, transitionError("submit", v.status)
	}

	next := v.clone(at)
	next.status = VoucherStatusPending
	next.metadata = v.metadata.withGates(gates)
	next.rejectedBy = nil
	next.rejectedAt = nil
	next.rejectionReason = ""
	return next.rebuild(NewVoucherSubmittedEvent(next, by, gates))
}

// SatisfyFinancialApproval records the financial approval gate.
// When financial approval is not pending the receiver is returned unchanged.
func (v *Voucher) SatisfyFinancialApproval(by uuid.UUID, at time.Time) (*Voucher, error) {
	if !v.status.CanSatisfyGate() {
		return nil, transitionError("approve", v.status)
	}
	if !v.metadata.PendingFinancialApproval {
		return v, nil
	}

	next := v.clone(at)
	next.metadata.PendingFinancialApproval = false
	if !next.metadata.CanFinalize() {
		return next.rebuild()
	}
	next.markApproved(by, at)
	return next.rebuild(NewVoucherApprovedEvent(next, by))
}

// ConfirmCustody records the confirmation of one pending custodian
func (v *Voucher) ConfirmCustody(userID uuid.UUID, at time.Time) (*Voucher, error) {
	if !v.status.CanSatisfyGate() {
		return nil, transitionError("confirm custody of", v.status)
	}
	if !v.metadata.IsCustodianPending(userID) {
		return nil, shared.NewAuthError(CodeCustodianNotRequired,
			"User is not a pending custodian for this voucher").
			WithDetail("userId", userID.String())
	}

	next := v.clone(at)
	next.metadata = v.metadata.withCustodyConfirmed(userID)
	events := []shared.DomainEvent{NewCustodyConfirmedEvent(next, userID)}
	if next.metadata.CanFinalize() {
		next.markApproved(userID, at)
		events = append(events, NewVoucherApprovedEvent(next, userID))
	}
	return next.rebuild(events...)
}

// Approve fast-tracks a DRAFT or PENDING voucher to APPROVED, clearing every pending gate
func (v *Voucher) Approve(by uuid.UUID, at time.Time) (*Voucher, error) {
	if v.IsPosted() || !v.status.CanFastTrackApprove() {
		return nil, transitionError("approve", v.status)
	}

	next := v.clone(at)
	next.metadata = v.metadata.withGatesCleared()
	next.markApproved(by, at)
	return next.rebuild(NewVoucherApprovedEvent(next, by))
}

// ApproveReversal approves a DRAFT reversal voucher without evaluating approval
// gates. The bypass is recorded in metadata.ApprovalBypassed.
func (v *Voucher) ApproveReversal(by uuid.UUID, at time.Time) (*Voucher, error) {
	if !v.IsReversal() {
		return nil, shared.NewConflictError(CodeInvalidTransition, "Only reversal vouchers can skip the approval gates")
	}
	if v.IsPosted() || !v.status.CanFastTrackApprove() {
		return nil, transitionError("approve", v.status)
	}

	next := v.clone(at)
	next.metadata = v.metadata.withGatesCleared()
	next.metadata.ApprovalBypassed = true
	next.markApproved(by, at)
	return next.rebuild(NewVoucherApprovedEvent(next, by))
}

func (v *Voucher) markApproved(by uuid.UUID, at time.Time) {
	v.status = VoucherStatusApproved
	v.approvedBy = ptr(by)
	v.approvedAt = ptr(at)
}

// Reject moves a PENDING voucher to REJECTED
func (v *Voucher) Reject(by uuid.UUID, reason string, at time.Time) (*Voucher, error) {
	if v.IsPosted() {
		return nil, lockError(CodePostedRejectForbid, "Posted vouchers cannot be rejected", v.postingLockPolicy)
	}
	if !v.status.CanReject() {
		return nil, transitionError("reject", v.status)
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > 500 {
		return nil, shared.NewValidationError(CodeInvalidReason, "Rejection reason cannot exceed 500 characters")
	}

	next := v.clone(at)
	next.status = VoucherStatusRejected
	next.rejectedBy = ptr(by)
	next.rejectedAt = ptr(at)
	next.rejectionReason = reason
	return next.rebuild(NewVoucherRejectedEvent(next, by, reason))
}

// Cancel moves any non-posted, non-cancelled voucher to CANCELLED
func (v *Voucher) Cancel(by uuid.UUID, at time.Time) (*Voucher, error) {
	if v.IsPosted() {
		return nil, lockError(CodePostedCancelForbid,
			"Posted vouchers cannot be cancelled; create a reversal instead", v.postingLockPolicy)
	}
	if v.status == VoucherStatusCancelled {
		return nil, lockError(CodeCancelledImmutable, "Voucher is already cancelled", v.postingLockPolicy)
	}

	next := v.clone(at)
	next.status = VoucherStatusCancelled
	next.cancelledBy = ptr(by)
	next.cancelledAt = ptr(at)
	return next.rebuild(NewVoucherCancelledEvent(next, by))
}

// Post gives an APPROVED voucher financial effect and freezes the lock policy
func (v *Voucher) Post(by uuid.UUID, policy PostingLockPolicy, at time.Time) (*Voucher, error) {
	if v.IsPosted() {
		return nil, shared.NewConflictError(CodeAlreadyPosted, "Voucher is already posted")
	}
	if !v.status.CanPost() {
		return nil, transitionError("post", v.status)
	}
	if !policy.IsValid() {
		return nil, shared.NewValidationError("INVALID_LOCK_POLICY", fmt.Sprintf("Unknown posting lock policy %q", policy))
	}

	next := v.clone(at)
	next.postedBy = ptr(by)
	next.postedAt = ptr(at)
	next.lockedBy = ptr(by)
	next.lockedAt = ptr(at)
	next.postingLockPolicy = policy
	return next.rebuild(NewVoucherPostedEvent(next, by))
}

// ReversalParams describes the reversal voucher to build
type ReversalParams struct {
	VoucherNo         string
	Date              string
	CorrectionGroupID uuid.UUID
	Reason            string
	CreatedBy         uuid.UUID
	Now               time.Time
}

// CreateReversal builds a DRAFT reversal voucher whose lines invert the posted ledger rows
func (v *Voucher) CreateReversal(entries []LedgerEntry, p ReversalParams) (*Voucher, error) {
	if !v.IsPosted() {
		return nil, shared.NewConflictError(CodeNotPosted, "Only posted vouchers can be reversed")
	}
	if v.IsReversal() {
		return nil, shared.NewConflictError("VOUCHER_REVERSAL_OF_REVERSAL", "A reversal voucher cannot itself be reversed")
	}
	if len(entries) == 0 {
		return nil, shared.NewConflictError("VOUCHER_LEDGER_MISSING", "Posted voucher has no ledger rows to reverse")
	}

	lines := make([]VoucherLine, 0, len(entries))
	for _, e := range entries {
		line, err := NewVoucherLine(e.ToLineInput())
		if err != nil {
			return nil, err
		}
		lines = append(lines, line.Inverted())
	}

	date := p.Date
	if date == "" {
		date = v.date
	}
	description := fmt.Sprintf("Reversal of %s", v.voucherNo)
	if reason := strings.TrimSpace(p.Reason); reason != "" {
		description += ": " + reason
	}
	originalID := v.GetID()
	groupID := p.CorrectionGroupID

	return NewVoucher(NewVoucherParams{
		CompanyID:    v.GetTenantID(),
		VoucherNo:    p.VoucherNo,
		Type:         VoucherTypeReversal,
		Date:         date,
		Description:  description,
		Currency:     v.currency.String(),
		BaseCurrency: v.baseCurrency.String(),
		ExchangeRate: v.exchangeRate,
		Lines:        lines,
		Reference:    v.voucherNo,
		Metadata: VoucherMetadata{
			CorrectionGroupID:   &groupID,
			ReversalOfVoucherID: &originalID,
		},
		CreatedBy: p.CreatedBy,
		Now:       p.Now,
	})
}

// TagCorrectionGroup links the voucher to a correction group without touching financial fields
func (v *Voucher) TagCorrectionGroup(groupID uuid.UUID, at time.Time) (*Voucher, error) {
	if v.metadata.CorrectionGroupID != nil && *v.metadata.CorrectionGroupID == groupID {
		return v, nil
	}
	next := v.clone(at)
	next.metadata.CorrectionGroupID = ptr(groupID)
	return next.rebuild()
}

// MarkReversed records that the posted voucher was reversed by reversalID
func (v *Voucher) MarkReversed(reversalID uuid.UUID, at time.Time) (*Voucher, error) {
	if !v.IsPosted() {
		return nil, shared.NewConflictError(CodeNotPosted, "Only posted vouchers can be marked reversed")
	}
	if v.metadata.IsReversed && v.metadata.ReversedByVoucherID != nil && *v.metadata.ReversedByVoucherID == reversalID {
		return v, nil
	}

	next := v.clone(at)
	next.metadata.IsReversed = true
	next.metadata.ReversedByVoucherID = ptr(reversalID)
	return next.rebuild(NewVoucherReversedEvent(next, reversalID))
}

// EditParams carries the replacement content of an edited voucher
type EditParams struct {
	Date         string
	Description  string
	ExchangeRate decimal.Decimal
	Reference    string
	Lines        []VoucherLine
	EditedBy     uuid.UUID
	Config       LockConfig
	Now          time.Time
}

// WithLines rebuilds the voucher with new content.
// PENDING and unposted APPROVED vouchers fall back to DRAFT and must be resubmitted.
// Posted vouchers stay APPROVED and are flagged as edited; the caller resyncs their ledger rows.
func (v *Voucher) WithLines(p EditParams) (*Voucher, error) {
	if err := v.AssertCanEdit(p.Config); err != nil {
		return nil, err
	}

	next := v.clone(p.Now)
	if p.Date != "" {
		date, err := NormalizeDate(p.Date)
		if err != nil {
			return nil, err
		}
		next.date = date
	}
	if p.ExchangeRate.IsPositive() {
		next.exchangeRate = p.ExchangeRate
	}
	next.description = p.Description
	next.reference = p.Reference
	lines := make([]VoucherLine, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = l.withID(i + 1)
	}
	next.lines = lines
	next.totalDebit, next.totalCredit = sumLines(lines)

	switch {
	case v.IsPosted():
		next.metadata.IsEdited = true
	case v.status == VoucherStatusPending || v.status == VoucherStatusApproved:
		next.status = VoucherStatusDraft
		next.metadata = next.metadata.withGates(GateEvaluation{})
		next.metadata.ApprovalMode = ""
		next.approvedBy = nil
		next.approvedAt = nil
	}
	return next.rebuild(NewVoucherUpdatedEvent(next, p.EditedBy))
}

// WithNormalizedAccounts rewrites account references (codes) to canonical account ids
func (v *Voucher) WithNormalizedAccounts(resolved map[string]string, at time.Time) (*Voucher, error) {
	changed := false
	for _, l := range v.lines {
		if id, ok := resolved[l.accountID]; ok && id != l.accountID {
			changed = true
			break
		}
	}
	if !changed {
		return v, nil
	}

	next := v.clone(at)
	for i, l := range next.lines {
		if id, ok := resolved[l.accountID]; ok {
			next.lines[i] = l.WithAccountID(id)
		}
	}
	return next.rebuild()
}
