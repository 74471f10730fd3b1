package accounting

// VoucherStatus represents the workflow status of a voucher.
// Posting is not a status: a posted voucher stays APPROVED and IsPosted reports the financial effect.
type VoucherStatus string

const (
	VoucherStatusDraft     VoucherStatus = "DRAFT"
	VoucherStatusPending   VoucherStatus = "PENDING"
	VoucherStatusApproved  VoucherStatus = "APPROVED"
	VoucherStatusRejected  VoucherStatus = "REJECTED"
	VoucherStatusCancelled VoucherStatus = "CANCELLED"
)

// IsValid checks if the status is a valid VoucherStatus
func (s VoucherStatus) IsValid() bool {
	switch s {
	case VoucherStatusDraft, VoucherStatusPending, VoucherStatusApproved, VoucherStatusRejected, VoucherStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of VoucherStatus
func (s VoucherStatus) String() string {
	return string(s)
}

// CanSubmit returns true if the voucher can enter approval from this status
func (s VoucherStatus) CanSubmit() bool {
	return s == VoucherStatusDraft || s == VoucherStatusRejected
}

// CanFastTrackApprove returns true if the voucher may be approved directly
func (s VoucherStatus) CanFastTrackApprove() bool {
	return s == VoucherStatusDraft || s == VoucherStatusPending
}

// CanSatisfyGate returns true if approval gates can be satisfied in this status
func (s VoucherStatus) CanSatisfyGate() bool {
	return s == VoucherStatusPending
}

// CanReject returns true if the voucher can be rejected in this status
func (s VoucherStatus) CanReject() bool {
	return s == VoucherStatusPending
}

// CanPost returns true if the voucher can be posted in this status
func (s VoucherStatus) CanPost() bool {
	return s == VoucherStatusApproved
}

// VoucherType classifies the financial document
type VoucherType string

const (
	VoucherTypePayment        VoucherType = "payment"
	VoucherTypeReceipt        VoucherType = "receipt"
	VoucherTypeJournalEntry   VoucherType = "journal_entry"
	VoucherTypeOpeningBalance VoucherType = "opening_balance"
	VoucherTypeReversal       VoucherType = "reversal"
)

// IsValid checks if the type is a known VoucherType
func (t VoucherType) IsValid() bool {
	switch t {
	case VoucherTypePayment, VoucherTypeReceipt, VoucherTypeJournalEntry, VoucherTypeOpeningBalance, VoucherTypeReversal:
		return true
	}
	return false
}

// NumberPrefix returns the prefix used for voucher numbers of this type
func (t VoucherType) NumberPrefix() string {
	switch t {
	case VoucherTypePayment:
		return "PV"
	case VoucherTypeReceipt:
		return "RV"
	case VoucherTypeOpeningBalance:
		return "OB"
	case VoucherTypeReversal:
		return "REV"
	default:
		return "JE"
	}
}

// Side is the debit/credit side of a voucher line
type Side string

const (
	SideDebit  Side = "Debit"
	SideCredit Side = "Credit"
)

// IsValid checks if the side is Debit or Credit
func (s Side) IsValid() bool {
	return s == SideDebit || s == SideCredit
}

// Opposite returns the other side
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// PostingLockPolicy is frozen onto a voucher when it is posted
type PostingLockPolicy string

const (
	// PostingLockStrict is permanent: the voucher can never be edited or deleted
	PostingLockStrict PostingLockPolicy = "STRICT_LOCKED"
	// PostingLockFlexibleLocked may be unlocked by the company's edit-posted toggle
	PostingLockFlexibleLocked PostingLockPolicy = "FLEXIBLE_LOCKED"
	// PostingLockFlexibleEditable was posted while the edit-posted toggle was on
	PostingLockFlexibleEditable PostingLockPolicy = "FLEXIBLE_EDITABLE"
)

// IsValid checks if the policy is known
func (p PostingLockPolicy) IsValid() bool {
	switch p {
	case PostingLockStrict, PostingLockFlexibleLocked, PostingLockFlexibleEditable:
		return true
	}
	return false
}
