package policy

import (
	"context"
	"fmt"

	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/shared"
)

// Pipeline runs the core invariants and then an ordered list of optional policies
type Pipeline struct {
	core     CoreInvariants
	policies []Policy
}

// NewPipeline creates a pipeline over policies, evaluated in the given order
func NewPipeline(policies ...Policy) *Pipeline {
	return &Pipeline{core: NewCoreInvariants(), policies: policies}
}

// NewPipelineForConfig creates a pipeline with the policies enabled by cfg
func NewPipelineForConfig(cfg accounting.ApprovalPolicyConfig) *Pipeline {
	return NewPipeline(BuildPolicies(cfg)...)
}

// Policies returns the policy identifiers in evaluation order
func (p *Pipeline) Policies() []string {
	ids := make([]string, len(p.policies))
	for i, pol := range p.policies {
		ids[i] = pol.ID()
	}
	return ids
}

// Run validates pc.Voucher. Core invariant failures are returned as they are;
// optional policy failures become one POLICY_VIOLATION error carrying every collected violation.
func (p *Pipeline) Run(ctx context.Context, pc Context, mode accounting.PolicyErrorMode) error {
	if err := p.core.Validate(pc.Voucher); err != nil {
		return err
	}

	var violations []shared.Violation
	for _, pol := range p.policies {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := pol.Validate(ctx, pc)
		if res.OK() {
			continue
		}
		violations = append(violations, shared.Violation{
			Code:       res.Code,
			Message:    res.Message,
			FieldHints: res.FieldHints,
			PolicyID:   pol.ID(),
		})
		if mode != accounting.PolicyErrorAggregate {
			break
		}
	}

	if len(violations) == 0 {
		return nil
	}
	message := violations[0].Message
	if len(violations) > 1 {
		message = fmt.Sprintf("%d posting policies failed", len(violations))
	}
	return shared.NewPolicyError(CodePolicyViolation, message, violations)
}
