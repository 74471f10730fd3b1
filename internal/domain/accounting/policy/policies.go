package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledger/backend/internal/domain/accounting"
)

// ApprovalRequired rejects posting of vouchers that have not cleared approval
type ApprovalRequired struct{}

// ID returns the policy identifier
func (ApprovalRequired) ID() string { return IDApprovalRequired }

// Validate requires the voucher to be APPROVED
func (ApprovalRequired) Validate(_ context.Context, pc Context) Result {
	if pc.Voucher.Status() != accounting.VoucherStatusApproved {
		return Fail(CodeApprovalRequired,
			fmt.Sprintf("Voucher must be approved before posting (status %s)", pc.Voucher.Status()),
			"status")
	}
	return Pass
}

// PeriodLock rejects vouchers dated inside a closed period
type PeriodLock struct {
	LockedThrough string
}

// ID returns the policy identifier
func (PeriodLock) ID() string { return IDPeriodLock }

// Validate rejects voucher dates on or before the lock date
func (p PeriodLock) Validate(_ context.Context, pc Context) Result {
	locked, err := accounting.NormalizeDate(p.LockedThrough)
	if err != nil {
		return Pass
	}
	date, err := accounting.NormalizeDate(pc.Voucher.Date())
	if err != nil {
		return Fail(CodePeriodLocked, "Voucher date is invalid", "date")
	}
	// YYYY-MM-DD compares chronologically as a string
	if date <= locked {
		return Fail(CodePeriodLocked,
			fmt.Sprintf("Period is locked through %s; voucher dated %s cannot be posted", locked, date),
			"date")
	}
	return Pass
}

// AccountAccess rejects lines on accounts owned by units the user does not belong to
type AccountAccess struct{}

// ID returns the policy identifier
func (AccountAccess) ID() string { return IDAccountAccess }

// Validate checks every line account against the user's scope
func (AccountAccess) Validate(_ context.Context, pc Context) Result {
	var denied []string
	var hints []string
	for i, l := range pc.Voucher.Lines() {
		account, ok := pc.Account(l.AccountID())
		if !ok {
			continue
		}
		if !pc.Scope.CanAccess(account) {
			denied = append(denied, accountLabel(account))
			hints = append(hints, fmt.Sprintf("lines[%d].accountId", i))
		}
	}
	if len(denied) > 0 {
		return Fail(CodeAccountAccessDenied,
			fmt.Sprintf("No access to account(s): %s", strings.Join(denied, ", ")),
			hints...)
	}
	return Pass
}

// CostCenterRequired requires a cost center on lines posting to configured accounts
type CostCenterRequired struct {
	Policy accounting.CostCenterPolicy
}

// ID returns the policy identifier
func (CostCenterRequired) ID() string { return IDCostCenterRequired }

// Validate checks that each covered line carries a cost center
func (p CostCenterRequired) Validate(_ context.Context, pc Context) Result {
	var hints []string
	for i, l := range pc.Voucher.Lines() {
		account, ok := pc.Account(l.AccountID())
		if !ok {
			account = accounting.Account{ID: l.AccountID()}
		}
		if p.Policy.Applies(account) && strings.TrimSpace(l.CostCenterID()) == "" {
			hints = append(hints, fmt.Sprintf("lines[%d].costCenterId", i))
		}
	}
	if len(hints) > 0 {
		return Fail(CodeCostCenterRequired,
			fmt.Sprintf("Cost center is required on %d line(s)", len(hints)),
			hints...)
	}
	return Pass
}

func accountLabel(a accounting.Account) string {
	if a.Code != "" {
		return a.Code
	}
	return a.ID
}

// BuildPolicies returns the enabled policies for cfg in their fixed evaluation order
func BuildPolicies(cfg accounting.ApprovalPolicyConfig) []Policy {
	var policies []Policy
	if cfg.IsStrictMode() {
		policies = append(policies, ApprovalRequired{})
	}
	if strings.TrimSpace(cfg.LockedThroughDate) != "" {
		policies = append(policies, PeriodLock{LockedThrough: cfg.LockedThroughDate})
	}
	if cfg.AccountAccessEnabled {
		policies = append(policies, AccountAccess{})
	}
	if cfg.CostCenterPolicy.IsActive() {
		policies = append(policies, CostCenterRequired{Policy: cfg.CostCenterPolicy})
	}
	return policies
}
