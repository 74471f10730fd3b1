package accounting

import (
	"slices"

	"github.com/google/uuid"
)

// FAApplyMode selects which vouchers need financial approval
type FAApplyMode string

const (
	FAApplyAll        FAApplyMode = "ALL"
	FAApplyMarkedOnly FAApplyMode = "MARKED_ONLY"
)

// PolicyErrorMode selects how optional policy failures are reported
type PolicyErrorMode string

const (
	PolicyErrorFailFast  PolicyErrorMode = "FAIL_FAST"
	PolicyErrorAggregate PolicyErrorMode = "AGGREGATE"
)

// CostCenterPolicy lists the accounts whose lines must carry a cost center
type CostCenterPolicy struct {
	Enabled      bool     `json:"enabled"`
	AccountIDs   []string `json:"accountIds,omitempty"`
	AccountTypes []string `json:"accountTypes,omitempty"`
}

// Applies reports whether the policy covers the account
func (p CostCenterPolicy) Applies(a Account) bool {
	return slices.Contains(p.AccountIDs, a.ID) || (a.Type != "" && slices.Contains(p.AccountTypes, a.Type))
}

// IsActive reports whether the policy is enabled and has at least one target
func (p CostCenterPolicy) IsActive() bool {
	return p.Enabled && (len(p.AccountIDs) > 0 || len(p.AccountTypes) > 0)
}

// ApprovalPolicyConfig is a company's accounting governance configuration
type ApprovalPolicyConfig struct {
	BaseCurrency               string           `json:"baseCurrency,omitempty"`
	FinancialApprovalEnabled   bool             `json:"financialApprovalEnabled"`
	FAApplyMode                FAApplyMode      `json:"faApplyMode"`
	CustodyConfirmationEnabled bool             `json:"custodyConfirmationEnabled"`
	LockedThroughDate          string           `json:"lockedThroughDate,omitempty"`
	AccountAccessEnabled       bool             `json:"accountAccessEnabled"`
	CostCenterPolicy           CostCenterPolicy `json:"costCenterPolicy"`
	PolicyErrorMode            PolicyErrorMode  `json:"policyErrorMode"`
	AllowEditDeletePosted      bool             `json:"allowEditDeletePosted"`
}

// DefaultApprovalPolicyConfig returns mode A with fail-fast reporting
func DefaultApprovalPolicyConfig() ApprovalPolicyConfig {
	return ApprovalPolicyConfig{
		FAApplyMode:     FAApplyAll,
		PolicyErrorMode: PolicyErrorFailFast,
	}
}

// IsStrictMode reports whether any approval gate is enabled
func (c ApprovalPolicyConfig) IsStrictMode() bool {
	return c.FinancialApprovalEnabled || c.CustodyConfirmationEnabled
}

// Mode returns the operating mode derived from the two gate toggles
func (c ApprovalPolicyConfig) Mode() ApprovalMode {
	switch {
	case c.FinancialApprovalEnabled && c.CustodyConfirmationEnabled:
		return ApprovalModeD
	case c.FinancialApprovalEnabled:
		return ApprovalModeC
	case c.CustodyConfirmationEnabled:
		return ApprovalModeB
	default:
		return ApprovalModeA
	}
}

// LockConfig returns the slice of the configuration consulted by edit/delete guards
func (c ApprovalPolicyConfig) LockConfig() LockConfig {
	return LockConfig{
		StrictMode:            c.IsStrictMode(),
		AllowEditDeletePosted: c.AllowEditDeletePosted,
	}
}

// ErrorMode returns the configured policy error mode, defaulting to fail-fast
func (c ApprovalPolicyConfig) ErrorMode() PolicyErrorMode {
	if c.PolicyErrorMode == PolicyErrorAggregate {
		return PolicyErrorAggregate
	}
	return PolicyErrorFailFast
}

// ApprovalMode is the operating mode of the dual-gate approval
type ApprovalMode string

const (
	ApprovalModeA ApprovalMode = "A" // no gates, auto-approve
	ApprovalModeB ApprovalMode = "B" // custody confirmation only
	ApprovalModeC ApprovalMode = "C" // financial approval only
	ApprovalModeD ApprovalMode = "D" // both gates
)

// GateEvaluation is the frozen outcome of evaluating the approval gates for a voucher
type GateEvaluation struct {
	Mode                     ApprovalMode
	NeedsFinancialApproval   bool
	NeedsCustodyConfirmation bool
	RequiredCustodians       []uuid.UUID
}

// ShouldAutoApprove reports whether no gate is required
func (g GateEvaluation) ShouldAutoApprove() bool {
	return !g.NeedsFinancialApproval && !g.NeedsCustodyConfirmation
}

// ApprovalPolicyService maps company config and touched accounts to required approval gates.
// It is stateless and has no side effects.
type ApprovalPolicyService struct{}

// NewApprovalPolicyService creates a new ApprovalPolicyService
func NewApprovalPolicyService() *ApprovalPolicyService {
	return &ApprovalPolicyService{}
}

// EvaluateGates computes which gates the touched accounts require under cfg
func (s *ApprovalPolicyService) EvaluateGates(cfg ApprovalPolicyConfig, touched []Account) GateEvaluation {
	eval := GateEvaluation{Mode: cfg.Mode()}

	if cfg.FinancialApprovalEnabled {
		if cfg.FAApplyMode != FAApplyMarkedOnly {
			eval.NeedsFinancialApproval = true
		} else {
			eval.NeedsFinancialApproval = slices.ContainsFunc(touched, func(a Account) bool {
				return a.RequiresApproval
			})
		}
	}

	if cfg.CustodyConfirmationEnabled {
		seen := make(map[uuid.UUID]struct{})
		for _, a := range touched {
			if !a.RequiresCustodyConfirmation || a.CustodianUserID == nil {
				continue
			}
			if _, ok := seen[*a.CustodianUserID]; ok {
				continue
			}
			seen[*a.CustodianUserID] = struct{}{}
			eval.RequiredCustodians = append(eval.RequiredCustodians, *a.CustodianUserID)
		}
		slices.SortFunc(eval.RequiredCustodians, func(a, b uuid.UUID) int {
			return compareUUID(a, b)
		})
		// A custody gate with nobody to confirm could never complete.
		eval.NeedsCustodyConfirmation = len(eval.RequiredCustodians) > 0
	}

	return eval
}

// CanFinalize reports whether every gate frozen on the voucher is satisfied
func (s *ApprovalPolicyService) CanFinalize(meta VoucherMetadata) bool {
	return meta.CanFinalize()
}

func compareUUID(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
