package accounting

// LockConfig is the part of the company configuration consulted by edit/delete guards
type LockConfig struct {
	StrictMode            bool
	AllowEditDeletePosted bool
}

// ComputePostingLockPolicy snapshots the lock policy applied when a voucher is posted
func ComputePostingLockPolicy(cfg ApprovalPolicyConfig) PostingLockPolicy {
	switch {
	case cfg.IsStrictMode():
		return PostingLockStrict
	case cfg.AllowEditDeletePosted:
		return PostingLockFlexibleEditable
	default:
		return PostingLockFlexibleLocked
	}
}

// AssertCanEdit returns an error when the voucher may not be edited under cfg.
// STRICT_LOCKED vouchers and posted correction pairs are immutable under every configuration.
func (v *Voucher) AssertCanEdit(cfg LockConfig) error {
	return v.assertMutable(cfg, CodePostedEditForbidden, "edited")
}

// AssertCanDelete returns an error when the voucher may not be deleted under cfg
func (v *Voucher) AssertCanDelete(cfg LockConfig) error {
	return v.assertMutable(cfg, CodePostedDeleteForbid, "deleted")
}

func (v *Voucher) assertMutable(cfg LockConfig, forbiddenCode, verb string) error {
	if v.status == VoucherStatusCancelled {
		return lockError(CodeCancelledImmutable, "Cancelled vouchers cannot be "+verb, v.postingLockPolicy)
	}
	if !v.IsPosted() {
		return nil
	}
	// a posted correction pair is frozen
	if v.metadata.IsReversed {
		return lockError(CodeReversedImmutable,
			"Reversed vouchers cannot be "+verb+"; correct the replacement voucher instead",
			v.postingLockPolicy)
	}
	if v.IsReversal() {
		return lockError(CodeReversedImmutable, "Posted reversal vouchers cannot be "+verb, v.postingLockPolicy)
	}
	if v.postingLockPolicy == PostingLockStrict {
		return lockError(CodeStrictLockForever,
			"Voucher was posted under strict approval and can never be "+verb+"; create a reversal instead",
			v.postingLockPolicy)
	}
	if cfg.StrictMode || !cfg.AllowEditDeletePosted {
		return lockError(forbiddenCode,
			"Posted vouchers cannot be "+verb+" with the current company settings; create a reversal instead",
			v.postingLockPolicy)
	}
	return nil
}
