package accounting

import (
	"maps"
	"slices"

	"github.com/google/uuid"
)

// VoucherMetadata holds gate state, correction linkage and audit flags.
// Extensions keeps source-specific fields that have no typed home.
type VoucherMetadata struct {
	ApprovalMode                ApprovalMode   `json:"approvalMode,omitempty"`
	FinancialApprovalRequired   bool           `json:"financialApprovalRequired,omitempty"`
	PendingFinancialApproval    bool           `json:"pendingFinancialApproval,omitempty"`
	CustodyConfirmationRequired bool           `json:"custodyConfirmationRequired,omitempty"`
	RequiredCustodians          []uuid.UUID    `json:"requiredCustodians,omitempty"`
	PendingCustodyConfirmations []uuid.UUID    `json:"pendingCustodyConfirmations,omitempty"`
	ConfirmedCustodians         []uuid.UUID    `json:"confirmedCustodians,omitempty"`
	CorrectionGroupID           *uuid.UUID     `json:"correctionGroupId,omitempty"`
	ReversalOfVoucherID         *uuid.UUID     `json:"reversalOfVoucherId,omitempty"`
	ReplacesVoucherID           *uuid.UUID     `json:"replacesVoucherId,omitempty"`
	ReversedByVoucherID         *uuid.UUID     `json:"reversedByVoucherId,omitempty"`
	IsReversed                  bool           `json:"isReversed,omitempty"`
	IsEdited                    bool           `json:"isEdited,omitempty"`
	ApprovalBypassed            bool           `json:"approvalBypassed,omitempty"`
	Extensions                  map[string]any `json:"extensions,omitempty"`
}

// Clone returns a deep copy so callers can never alias another voucher's metadata
func (m VoucherMetadata) Clone() VoucherMetadata {
	cp := m
	cp.RequiredCustodians = slices.Clone(m.RequiredCustodians)
	cp.PendingCustodyConfirmations = slices.Clone(m.PendingCustodyConfirmations)
	cp.ConfirmedCustodians = slices.Clone(m.ConfirmedCustodians)
	cp.CorrectionGroupID = cloneUUID(m.CorrectionGroupID)
	cp.ReversalOfVoucherID = cloneUUID(m.ReversalOfVoucherID)
	cp.ReplacesVoucherID = cloneUUID(m.ReplacesVoucherID)
	cp.ReversedByVoucherID = cloneUUID(m.ReversedByVoucherID)
	cp.Extensions = maps.Clone(m.Extensions)
	return cp
}

// CanFinalize reports whether no approval gate is still pending
func (m VoucherMetadata) CanFinalize() bool {
	return !m.PendingFinancialApproval && len(m.PendingCustodyConfirmations) == 0
}

// IsCustodianPending reports whether userID still has to confirm custody
func (m VoucherMetadata) IsCustodianPending(userID uuid.UUID) bool {
	return slices.Contains(m.PendingCustodyConfirmations, userID)
}

// withGates freezes a gate evaluation into the metadata
func (m VoucherMetadata) withGates(g GateEvaluation) VoucherMetadata {
	cp := m.Clone()
	cp.ApprovalMode = g.Mode
	cp.FinancialApprovalRequired = g.NeedsFinancialApproval
	cp.PendingFinancialApproval = g.NeedsFinancialApproval
	cp.CustodyConfirmationRequired = g.NeedsCustodyConfirmation
	cp.RequiredCustodians = slices.Clone(g.RequiredCustodians)
	cp.PendingCustodyConfirmations = slices.Clone(g.RequiredCustodians)
	cp.ConfirmedCustodians = nil
	return cp
}

// withCustodyConfirmed moves userID from pending to confirmed
func (m VoucherMetadata) withCustodyConfirmed(userID uuid.UUID) VoucherMetadata {
	cp := m.Clone()
	cp.PendingCustodyConfirmations = slices.DeleteFunc(cp.PendingCustodyConfirmations, func(id uuid.UUID) bool {
		return id == userID
	})
	if !slices.Contains(cp.ConfirmedCustodians, userID) {
		cp.ConfirmedCustodians = append(cp.ConfirmedCustodians, userID)
	}
	return cp
}

// withGatesCleared marks every gate as satisfied
func (m VoucherMetadata) withGatesCleared() VoucherMetadata {
	cp := m.Clone()
	cp.PendingFinancialApproval = false
	cp.PendingCustodyConfirmations = nil
	return cp
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
