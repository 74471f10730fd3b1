package accounting

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/shared"
)

// Voucher permissions
const (
	PermissionCreate         = "accounting.voucher.create"
	PermissionUpdate         = "accounting.voucher.update"
	PermissionSubmit         = "accounting.voucher.submit"
	PermissionApprove        = "accounting.voucher.approve"
	PermissionConfirmCustody = "accounting.voucher.confirm_custody"
	PermissionPost           = "accounting.voucher.post"
	PermissionCancel         = "accounting.voucher.cancel"
	PermissionDelete         = "accounting.voucher.delete"
	PermissionReverse        = "accounting.voucher.reverse"
	PermissionView           = "accounting.voucher.view"
)

// ErrPostingLockNotObtained is returned by a PostingLocker when another process holds the lock
var ErrPostingLockNotObtained = errors.New("posting lock not obtained")

// PostingLocker takes a short-lived distributed lock around posting.
// The database row lock stays the correctness guarantee; this only keeps concurrent posts from queueing.
type PostingLocker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// PostingMetrics records posting outcomes
type PostingMetrics interface {
	RecordPosted(ctx context.Context, companyID uuid.UUID, voucherType string, duration time.Duration)
	RecordPolicyViolations(ctx context.Context, companyID uuid.UUID, violations []shared.Violation)
}

type noopPostingMetrics struct{}

func (noopPostingMetrics) RecordPosted(context.Context, uuid.UUID, string, time.Duration) {}

func (noopPostingMetrics) RecordPolicyViolations(context.Context, uuid.UUID, []shared.Violation) {}
