package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/accounting/policy"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CodePostingInProgress is returned when another process is posting the same voucher
const CodePostingInProgress = "VOUCHER_POSTING_IN_PROGRESS"

// Post gives an APPROVED voucher financial effect by writing its ledger rows.
// Posting an already posted voucher returns it unchanged without a second ledger write.
func (s *VoucherService) Post(ctx context.Context, actor Actor, id uuid.UUID) (*accounting.Voucher, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", "post")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrVoucherID, id.String(),
		telemetry.SpanAttrCompanyID, actor.CompanyID.String(),
		telemetry.SpanAttrUserID, actor.UserID.String(),
	)

	if err := s.assertAll(ctx, actor, PermissionPost); err != nil {
		return nil, err
	}

	release, err := s.obtainPostingLock(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	start := time.Now()
	var posted *accounting.Voucher
	var events []shared.DomainEvent
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("post_voucher", actor.CompanyID.String()), func(ctx context.Context) {
		err = s.tx.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
			v, evs, err := s.postInTx(ctx, repos, actor, id)
			if err != nil {
				return err
			}
			posted, events = v, evs
			return nil
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrVoucherNo, posted.VoucherNo(),
		telemetry.SpanAttrVoucherType, string(posted.Type()),
		telemetry.SpanAttrLineCount, len(posted.Lines()),
	)
	if len(events) > 0 {
		s.metrics.RecordPosted(ctx, actor.CompanyID, string(posted.Type()), time.Since(start))
		s.logger.Info("Voucher posted",
			zap.String("voucher_id", id.String()),
			zap.String("voucher_no", posted.VoucherNo()),
			zap.String("lock_policy", string(posted.PostingLockPolicy())))
	}
	s.publish(ctx, events)
	return posted, nil
}

// obtainPostingLock takes the best-effort distributed lock. Lock backend failures are logged and ignored.
func (s *VoucherService) obtainPostingLock(ctx context.Context, id uuid.UUID) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	release, err := s.locker.Obtain(ctx, "posting:"+id.String(), s.lockTTL)
	if errors.Is(err, ErrPostingLockNotObtained) {
		return noop, shared.NewConflictError(CodePostingInProgress, "Voucher is being posted by another request").
			WithDetail("voucherId", id.String())
	}
	if err != nil {
		s.logger.Warn("Posting lock unavailable, relying on row lock",
			zap.String("voucher_id", id.String()),
			zap.Error(err))
		return noop, nil
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Debug("Failed to release posting lock", zap.Error(err))
		}
	}, nil
}

// postInTx is the only path that writes ledger rows. It must run inside a transaction.
// The returned events are empty when the voucher was already posted.
func (s *VoucherService) postInTx(ctx context.Context, repos TransactionalRepositories, actor Actor, id uuid.UUID) (*accounting.Voucher, []shared.DomainEvent, error) {
	v, err := s.loadForUpdate(ctx, repos, actor.CompanyID, id)
	if err != nil {
		return nil, nil, err
	}
	if v.IsPosted() {
		return v, nil, nil
	}

	cfg, err := s.loadConfig(ctx, actor.CompanyID)
	if err != nil {
		return nil, nil, err
	}

	if v, err = s.validateForLedger(ctx, actor, cfg, v); err != nil {
		return nil, nil, err
	}

	posted, err := v.Post(actor.UserID, accounting.ComputePostingLockPolicy(cfg), s.now())
	if err != nil {
		return nil, nil, err
	}
	if err := repos.Ledger().RecordForVoucher(ctx, posted); err != nil {
		return nil, nil, fmt.Errorf("failed to record ledger rows: %w", err)
	}
	if err := repos.Vouchers().Save(ctx, posted); err != nil {
		return nil, nil, fmt.Errorf("failed to save voucher: %w", err)
	}
	events := posted.GetDomainEvents()

	if originalID := posted.ReversalOfVoucherID(); originalID != nil {
		original, err := s.loadForUpdate(ctx, repos, actor.CompanyID, *originalID)
		if err != nil {
			return nil, nil, err
		}
		marked, err := original.MarkReversed(posted.GetID(), s.now())
		if err != nil {
			return nil, nil, err
		}
		if marked != original {
			if err := repos.Vouchers().Save(ctx, marked); err != nil {
				return nil, nil, fmt.Errorf("failed to mark original voucher reversed: %w", err)
			}
			events = append(events, marked.GetDomainEvents()...)
		}
	}
	return posted, events, nil
}

// validateForLedger resolves and normalizes line accounts, then runs the core
// invariants and the policies enabled in cfg. Ledger rows are written only for
// vouchers that passed it, on posting and on a posted edit alike.
func (s *VoucherService) validateForLedger(ctx context.Context, actor Actor, cfg accounting.ApprovalPolicyConfig, v *accounting.Voucher) (*accounting.Voucher, error) {
	resolved, err := s.resolveAccounts(ctx, actor.CompanyID, v.AccountIDs())
	if err != nil {
		return nil, err
	}
	normalized, err := validateAccounts(v, resolved)
	if err != nil {
		return nil, err
	}
	if v, err = v.WithNormalizedAccounts(normalized, s.now()); err != nil {
		return nil, err
	}

	pc := policy.Context{
		Voucher:  v,
		Config:   cfg,
		UserID:   actor.UserID,
		Accounts: make(map[string]accounting.Account, len(resolved)),
	}
	for _, a := range resolved {
		pc.Accounts[a.ID] = a
	}
	if cfg.AccountAccessEnabled {
		scope, err := s.scopes.GetScope(ctx, actor.UserID, actor.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("failed to load user access scope: %w", err)
		}
		pc.Scope = scope
	}
	if err := s.runPolicies(ctx, actor, cfg, policy.NewPipelineForConfig(cfg), pc); err != nil {
		return nil, err
	}
	return v, nil
}

// assertPeriodOpen rejects changes to a posted voucher whose stored date is in a locked period
func (s *VoucherService) assertPeriodOpen(ctx context.Context, actor Actor, cfg accounting.ApprovalPolicyConfig, v *accounting.Voucher) error {
	if !v.IsPosted() || cfg.LockedThroughDate == "" {
		return nil
	}
	pipeline := policy.NewPipeline(policy.PeriodLock{LockedThrough: cfg.LockedThroughDate})
	return s.runPolicies(ctx, actor, cfg, pipeline, policy.Context{Voucher: v, Config: cfg, UserID: actor.UserID})
}

func (s *VoucherService) runPolicies(ctx context.Context, actor Actor, cfg accounting.ApprovalPolicyConfig, pipeline *policy.Pipeline, pc policy.Context) error {
	err := pipeline.Run(ctx, pc, cfg.ErrorMode())
	if de, ok := shared.AsDomainError(err); ok && de.Category == shared.CategoryPolicy {
		s.metrics.RecordPolicyViolations(ctx, actor.CompanyID, de.Violations)
	}
	return err
}
