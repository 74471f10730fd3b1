// Package policy holds the posting validation pipeline: the always-on core invariants
// followed by the optional, company-configured governance policies.
package policy

import (
	"context"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
)

// Policy identifiers
const (
	IDApprovalRequired   = "approval_required"
	IDPeriodLock         = "period_lock"
	IDAccountAccess      = "account_access"
	IDCostCenterRequired = "cost_center_required"
)

// Violation codes
const (
	CodeApprovalRequired    = "APPROVAL_REQUIRED"
	CodePeriodLocked        = "PERIOD_LOCKED"
	CodeAccountAccessDenied = "ACCOUNT_ACCESS_DENIED"
	CodeCostCenterRequired  = "COST_CENTER_REQUIRED"
	CodePolicyViolation     = "POLICY_VIOLATION"
)

// Context is everything a policy may consult while validating a voucher
type Context struct {
	Voucher  *accounting.Voucher
	Config   accounting.ApprovalPolicyConfig
	UserID   uuid.UUID
	Scope    accounting.UserAccessScope
	Accounts map[string]accounting.Account // keyed by canonical account id
}

// Account returns the resolved account referenced by a line
func (c Context) Account(id string) (accounting.Account, bool) {
	a, ok := c.Accounts[id]
	return a, ok
}

// Result is the outcome of one policy. The zero value is a pass.
type Result struct {
	Code       string
	Message    string
	FieldHints []string
}

// OK reports whether the policy passed
func (r Result) OK() bool {
	return r.Code == ""
}

// Pass is the passing result
var Pass = Result{}

// Fail builds a failing result
func Fail(code, message string, fieldHints ...string) Result {
	return Result{Code: code, Message: message, FieldHints: fieldHints}
}

// Policy is one optional governance rule
type Policy interface {
	ID() string
	Validate(ctx context.Context, pc Context) Result
}
