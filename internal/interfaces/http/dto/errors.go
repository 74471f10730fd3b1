package dto

import (
	"net/http"

	"github.com/ledger/backend/internal/domain/shared"
)

// Transport-level error codes. Domain errors keep their own codes.
const (
	ErrCodeInternal              = "INTERNAL_ERROR"
	ErrCodeBadRequest            = "BAD_REQUEST"
	ErrCodeInvalidJSON           = "INVALID_JSON"
	ErrCodeValidation            = "VALIDATION_FAILED"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeTokenExpired          = "TOKEN_EXPIRED"
	ErrCodeTokenRevoked          = "TOKEN_REVOKED"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeRateLimited           = "RATE_LIMITED"
	ErrCodeRequestTooLarge       = "REQUEST_TOO_LARGE"
	ErrCodeIdempotencyInProgress = "IDEMPOTENCY_KEY_IN_PROGRESS"
	ErrCodeIdempotencyKeyInvalid = "IDEMPOTENCY_KEY_INVALID"
)

// CategoryInternal is reported for errors that are not domain errors
const CategoryInternal shared.ErrorCategory = "INTERNAL"

var categoryStatus = map[shared.ErrorCategory]int{
	shared.CategoryValidation:    http.StatusBadRequest,
	shared.CategoryAuth:          http.StatusForbidden,
	shared.CategoryNotFound:      http.StatusNotFound,
	shared.CategoryConflict:      http.StatusConflict,
	shared.CategoryPolicy:        http.StatusUnprocessableEntity,
	shared.CategoryCoreInvariant: http.StatusUnprocessableEntity,
}

// StatusForCategory maps an error category to its HTTP status. Unknown categories are 500.
func StatusForCategory(category shared.ErrorCategory) int {
	if status, ok := categoryStatus[category]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NewDomainErrorInfo builds the envelope error for a domain error.
// Violations and domain details are merged into Details.
func NewDomainErrorInfo(err *shared.DomainError, correlationID string) *ErrorInfo {
	info := &ErrorInfo{
		Code:          err.Code,
		Message:       err.Message,
		Category:      string(err.Category),
		CorrelationID: correlationID,
	}
	if len(err.Violations) == 0 && len(err.Details) == 0 {
		return info
	}
	info.Details = make(map[string]any, len(err.Details)+1)
	for k, v := range err.Details {
		info.Details[k] = v
	}
	if len(err.Violations) > 0 {
		info.Details["violations"] = err.Violations
	}
	return info
}
