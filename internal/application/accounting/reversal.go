package accounting

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReversalDateToday dates the reversal voucher on the current day instead of the original date
const ReversalDateToday = "today"

// ReverseAndReplace reverses a posted voucher and optionally creates its replacement.
// Reversing a voucher twice returns the existing reversal.
func (s *VoucherService) ReverseAndReplace(ctx context.Context, actor Actor, cmd ReverseCommand) (*ReverseResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", "reverse")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrVoucherID, cmd.VoucherID.String())

	perms := []string{PermissionReverse, PermissionPost}
	if cmd.Replacement != nil {
		perms = append(perms, PermissionCreate)
	}
	if err := s.assertAll(ctx, actor, perms...); err != nil {
		return nil, err
	}

	existing, err := s.vouchers.FindByReversalOf(ctx, actor.CompanyID, cmd.VoucherID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up reversal: %w", err)
	}
	if existing != nil {
		return alreadyReversed(existing), nil
	}

	reversalDate, err := s.reversalDate(cmd.ReversalDate)
	if err != nil {
		return nil, err
	}

	var result *ReverseResult
	var events []shared.DomainEvent
	err = s.tx.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		original, err := s.loadForUpdate(ctx, repos, actor.CompanyID, cmd.VoucherID)
		if err != nil {
			return err
		}
		// another request may have reversed it while we waited for the row lock
		existing, err := repos.Vouchers().FindByReversalOf(ctx, actor.CompanyID, cmd.VoucherID)
		if err != nil {
			return fmt.Errorf("failed to look up reversal: %w", err)
		}
		if existing != nil {
			result = alreadyReversed(existing)
			return nil
		}
		if !original.IsPosted() {
			return shared.NewConflictError(accounting.CodeNotPosted, "Only posted vouchers can be reversed")
		}

		entries, err := repos.Ledger().FindByVoucher(ctx, actor.CompanyID, original.GetID())
		if err != nil {
			return fmt.Errorf("failed to load ledger rows: %w", err)
		}
		date := reversalDate
		if date == "" {
			date = original.Date()
		}
		number, err := repos.Numbers().Next(ctx, actor.CompanyID, accounting.VoucherTypeReversal, date)
		if err != nil {
			return fmt.Errorf("failed to allocate voucher number: %w", err)
		}

		groupID := uuid.New()
		reversal, err := original.CreateReversal(entries, accounting.ReversalParams{
			VoucherNo:         number,
			Date:              date,
			CorrectionGroupID: groupID,
			Reason:            cmd.Reason,
			CreatedBy:         actor.UserID,
			Now:               s.now(),
		})
		if err != nil {
			return err
		}
		if reversal, err = reversal.ApproveReversal(actor.UserID, s.now()); err != nil {
			return err
		}
		if err := repos.Vouchers().Save(ctx, reversal); err != nil {
			return fmt.Errorf("failed to save reversal voucher: %w", err)
		}
		events = append(events, reversal.GetDomainEvents()...)

		tagged, err := original.TagCorrectionGroup(groupID, s.now())
		if err != nil {
			return err
		}
		if err := repos.Vouchers().Save(ctx, tagged); err != nil {
			return fmt.Errorf("failed to tag original voucher: %w", err)
		}

		// the reversal goes through the full posting path, policies included
		posted, postEvents, err := s.postInTx(ctx, repos, actor, reversal.GetID())
		if err != nil {
			return err
		}
		events = append(events, postEvents...)

		result = &ReverseResult{Reversal: posted, CorrectionGroupID: groupID}

		if cmd.Replacement != nil {
			replCmd := *cmd.Replacement
			replCmd.Metadata = replCmd.Metadata.Clone()
			originalID := original.GetID()
			replCmd.Metadata.ReplacesVoucherID = &originalID
			replCmd.Metadata.CorrectionGroupID = &groupID
			replCmd.Metadata.ReversalOfVoucherID = nil
			if cmd.PostReplacement {
				replCmd.PostImmediately = true
			}
			replacement, replEvents, err := s.createInTx(ctx, repos, actor, replCmd)
			if err != nil {
				return err
			}
			result.Replacement = replacement
			events = append(events, replEvents...)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !result.AlreadyReversed {
		s.publish(ctx, events)
		s.logger.Info("Voucher reversed",
			zap.String("voucher_id", cmd.VoucherID.String()),
			zap.String("reversal_id", result.Reversal.GetID().String()),
			zap.String("correction_group_id", result.CorrectionGroupID.String()),
			zap.Bool("replaced", result.Replacement != nil))
	}
	return result, nil
}

func (s *VoucherService) reversalDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return "", nil
	case strings.EqualFold(value, ReversalDateToday):
		return accounting.DateOf(s.now()), nil
	default:
		return accounting.NormalizeDate(value)
	}
}

func alreadyReversed(reversal *accounting.Voucher) *ReverseResult {
	res := &ReverseResult{Reversal: reversal, AlreadyReversed: true}
	if id := reversal.Metadata().CorrectionGroupID; id != nil {
		res.CorrectionGroupID = *id
	}
	return res
}
