package accounting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CodeSubmitRequired is returned when a DRAFT voucher is approved while approval gates are configured
const CodeSubmitRequired = "VOUCHER_SUBMIT_REQUIRED"

// submitVoucher evaluates the gates for the voucher's accounts and submits it,
// approving it straight away when no gate applies
func (s *VoucherService) submitVoucher(ctx context.Context, cfg accounting.ApprovalPolicyConfig, v *accounting.Voucher, by uuid.UUID) (*accounting.Voucher, error) {
	resolved, err := s.resolveAccounts(ctx, v.GetTenantID(), v.AccountIDs())
	if err != nil {
		return nil, err
	}
	gates := s.gates.EvaluateGates(cfg, touchedAccounts(v, resolved))

	next, err := v.Submit(by, gates, s.now())
	if err != nil {
		return nil, err
	}
	if gates.ShouldAutoApprove() {
		return next.Approve(by, s.now())
	}
	return next, nil
}

// transition runs one load-change-save unit of work on a voucher
func (s *VoucherService) transition(
	ctx context.Context,
	actor Actor,
	op, permission string,
	id uuid.UUID,
	change func(ctx context.Context, cfg accounting.ApprovalPolicyConfig, v *accounting.Voucher) (*accounting.Voucher, error),
) (*accounting.Voucher, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", op)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrVoucherID, id.String())

	if err := s.assertAll(ctx, actor, permission); err != nil {
		return nil, err
	}

	var result *accounting.Voucher
	err := s.tx.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		v, err := s.loadForUpdate(ctx, repos, actor.CompanyID, id)
		if err != nil {
			return err
		}
		cfg, err := s.loadConfig(ctx, actor.CompanyID)
		if err != nil {
			return err
		}
		next, err := change(ctx, cfg, v)
		if err != nil {
			return err
		}
		if next != v {
			if err := repos.Vouchers().Save(ctx, next); err != nil {
				return fmt.Errorf("failed to save voucher: %w", err)
			}
		}
		result = next
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, result.GetDomainEvents())
	s.logger.Info("Voucher "+op,
		zap.String("voucher_id", id.String()),
		zap.String("user_id", actor.UserID.String()),
		zap.String("status", result.Status().String()))
	return result, nil
}

// Submit sends a DRAFT or REJECTED voucher into approval
func (s *VoucherService) Submit(ctx context.Context, actor Actor, id uuid.UUID) (*accounting.Voucher, error) {
	return s.transition(ctx, actor, "submit", PermissionSubmit, id,
		func(ctx context.Context, cfg accounting.ApprovalPolicyConfig, v *accounting.Voucher) (*accounting.Voucher, error) {
			return s.submitVoucher(ctx, cfg, v, actor.UserID)
		})
}

// Approve satisfies financial approval of a PENDING voucher, or fast-tracks a DRAFT when no gate is configured
func (s *VoucherService) Approve(ctx context.Context, actor Actor, id uuid.UUID) (*accounting.Voucher, error) {
	return s.transition(ctx, actor, "approve", PermissionApprove, id,
		func(_ context.Context, cfg accounting.ApprovalPolicyConfig, v *accounting.Voucher) (*accounting.Voucher, error) {
			switch v.Status() {
			case accounting.VoucherStatusPending:
				return v.SatisfyFinancialApproval(actor.UserID, s.now())
			case accounting.VoucherStatusDraft:
				if cfg.IsStrictMode() {
					return nil, shared.NewConflictError(CodeSubmitRequired,
						"Approval gates are enabled; submit the voucher for approval first").
						WithDetail("mode", string(cfg.Mode()))
				}
			}
			return v.Approve(actor.UserID, s.now())
		})
}

// ConfirmCustody records the acting user's custody confirmation
func (s *VoucherService) ConfirmCustody(ctx context.Context, actor Actor, id uuid.UUID) (*accounting.Voucher, error) {
	return s.transition(ctx, actor, "confirm_custody", PermissionConfirmCustody, id,
		func(_ context.Context, _ accounting.ApprovalPolicyConfig, v *accounting.Voucher) (*accounting.Voucher, error) {
			return v.ConfirmCustody(actor.UserID, s.now())
		})
}

// Reject rejects a PENDING voucher
func (s *VoucherService) Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*accounting.Voucher, error) {
	return s.transition(ctx, actor, "reject", PermissionApprove, id,
		func(_ context.Context, _ accounting.ApprovalPolicyConfig, v *accounting.Voucher) (*accounting.Voucher, error) {
			return v.Reject(actor.UserID, reason, s.now())
		})
}

// Cancel cancels a voucher that has not been posted
func (s *VoucherService) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*accounting.Voucher, error) {
	return s.transition(ctx, actor, "cancel", PermissionCancel, id,
		func(_ context.Context, _ accounting.ApprovalPolicyConfig, v *accounting.Voucher) (*accounting.Voucher, error) {
			return v.Cancel(actor.UserID, s.now())
		})
}

// Delete removes a voucher, and its ledger rows when it was posted under an editable lock
func (s *VoucherService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", "delete")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrVoucherID, id.String())

	if err := s.assertAll(ctx, actor, PermissionDelete); err != nil {
		return err
	}

	var deleted *accounting.Voucher
	err := s.tx.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		v, err := s.loadForUpdate(ctx, repos, actor.CompanyID, id)
		if err != nil {
			return err
		}
		cfg, err := s.loadConfig(ctx, actor.CompanyID)
		if err != nil {
			return err
		}
		if err := v.AssertCanDelete(cfg.LockConfig()); err != nil {
			return err
		}
		if err := s.assertPeriodOpen(ctx, actor, cfg, v); err != nil {
			return err
		}
		if v.IsPosted() {
			if err := repos.Ledger().DeleteForVoucher(ctx, actor.CompanyID, id); err != nil {
				return fmt.Errorf("failed to delete ledger rows: %w", err)
			}
		}
		if err := repos.Vouchers().Delete(ctx, actor.CompanyID, id); err != nil {
			return fmt.Errorf("failed to delete voucher: %w", err)
		}
		deleted = v
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.publish(ctx, []shared.DomainEvent{accounting.NewVoucherDeletedEvent(deleted, actor.UserID)})
	s.logger.Info("Voucher deleted",
		zap.String("voucher_id", id.String()),
		zap.Bool("was_posted", deleted.IsPosted()))
	return nil
}
