package accounting

import (
	"fmt"

	"github.com/ledger/backend/internal/domain/shared"
)

// Structural error codes (CORE_INVARIANT)
const (
	CodeMinLines             = "VOUCHER_MIN_LINES"
	CodeUnbalanced           = "UNBALANCED_VOUCHER"
	CodeTotalMismatch        = "VOUCHER_TOTAL_MISMATCH"
	CodeBaseCurrencyMismatch = "VOUCHER_BASE_CURRENCY_MISMATCH"
	CodeInvalidLine          = "INVALID_VOUCHER_LINE"
	CodeMissingAccount       = "LINE_ACCOUNT_REQUIRED"
	CodeNonPositiveAmount    = "LINE_AMOUNT_NOT_POSITIVE"
)

// Lock error codes
const (
	CodeStrictLockForever    = "VOUCHER_STRICT_LOCK_FOREVER"
	CodePostedEditForbidden  = "VOUCHER_POSTED_EDIT_FORBIDDEN"
	CodePostedDeleteForbid   = "VOUCHER_POSTED_DELETE_FORBIDDEN"
	CodePostedCancelForbid   = "VOUCHER_POSTED_CANCEL_FORBIDDEN"
	CodePostedRejectForbid   = "VOUCHER_POSTED_REJECT_FORBIDDEN"
	CodeCancelledImmutable   = "VOUCHER_CANCELLED_IMMUTABLE"
	CodeReversedImmutable    = "VOUCHER_REVERSED_IMMUTABLE"
	CodeInvalidTransition    = "VOUCHER_INVALID_TRANSITION"
	CodeAlreadyPosted        = "VOUCHER_ALREADY_POSTED"
	CodeNotPosted            = "VOUCHER_NOT_POSTED"
	CodeCustodianNotRequired = "CUSTODIAN_NOT_REQUIRED"
)

// Lookup/validation codes
const (
	CodeVoucherNotFound      = "VOUCHER_NOT_FOUND"
	CodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	CodeAccountInactive      = "ACCOUNT_INACTIVE"
	CodeAccountNotPostable   = "ACCOUNT_NOT_POSTABLE"
	CodeAccountCurrency      = "ACCOUNT_CURRENCY_NOT_ALLOWED"
	CodeExchangeRateNotFound = "EXCHANGE_RATE_NOT_FOUND"
	CodeInvalidExchangeRate  = "INVALID_EXCHANGE_RATE"
	CodeInvalidDate          = "INVALID_DATE"
	CodeInvalidCurrency      = "INVALID_CURRENCY"
	CodeInvalidVoucherType   = "INVALID_VOUCHER_TYPE"
	CodeInvalidReason        = "INVALID_REASON"
)

func lockError(code, message string, policy PostingLockPolicy) *shared.DomainError {
	return shared.NewConflictError(code, message).
		WithDetail("lockPolicy", string(policy)).
		WithDetail("remedy", "reversal")
}

func transitionError(action string, from VoucherStatus) *shared.DomainError {
	return shared.NewConflictError(CodeInvalidTransition,
		fmt.Sprintf("Cannot %s voucher in %s status", action, from)).
		WithDetail("status", string(from))
}
