package shared

import (
	"errors"
	"strings"
)

// ErrorCategory classifies a domain error for propagation and transport mapping
type ErrorCategory string

const (
	// CategoryCoreInvariant marks structural/balance violations. Never configurable.
	CategoryCoreInvariant ErrorCategory = "CORE_INVARIANT"
	// CategoryPolicy marks failures of company-configured governance rules
	CategoryPolicy ErrorCategory = "POLICY"
	// CategoryValidation marks malformed input
	CategoryValidation ErrorCategory = "VALIDATION"
	// CategoryAuth marks permission denials
	CategoryAuth ErrorCategory = "AUTH"
	// CategoryNotFound marks missing resources
	CategoryNotFound ErrorCategory = "NOT_FOUND"
	// CategoryConflict marks state or concurrency conflicts
	CategoryConflict ErrorCategory = "CONFLICT"
)

// Violation is a single machine-readable rule failure
type Violation struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	FieldHints []string `json:"fieldHints,omitempty"`
	PolicyID   string   `json:"policyId,omitempty"`
}

// DomainError represents a domain-level error
type DomainError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Category   ErrorCategory  `json:"category"`
	Violations []Violation    `json:"violations,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so sentinel values work with errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// NewDomainError creates a new domain error. The category is derived from the code.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:     code,
		Message:  message,
		Category: categoryForCode(code),
	}
}

// NewCoreInvariantError creates an error for a violated structural invariant
func NewCoreInvariantError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Category: CategoryCoreInvariant}
}

// NewValidationError creates an error for malformed input
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Category: CategoryValidation}
}

// NewAuthError creates a permission denial
func NewAuthError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Category: CategoryAuth}
}

// NewNotFoundError creates a missing-resource error
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Category: CategoryNotFound}
}

// NewConflictError creates a state conflict error
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Category: CategoryConflict}
}

// NewPolicyError creates a policy failure carrying every collected violation
func NewPolicyError(code, message string, violations []Violation) *DomainError {
	return &DomainError{
		Code:       code,
		Message:    message,
		Category:   CategoryPolicy,
		Violations: violations,
	}
}

// AsDomainError unwraps err into a *DomainError if it is one
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsCategory reports whether err is a domain error of the given category
func IsCategory(err error, category ErrorCategory) bool {
	de, ok := AsDomainError(err)
	return ok && de.Category == category
}

func categoryForCode(code string) ErrorCategory {
	switch {
	case code == "NOT_FOUND" || strings.HasSuffix(code, "_NOT_FOUND"):
		return CategoryNotFound
	case code == "UNAUTHORIZED" || code == "FORBIDDEN" || code == "PERMISSION_DENIED":
		return CategoryAuth
	case code == "ALREADY_EXISTS" || code == "CONCURRENCY_CONFLICT" || code == "INVALID_STATE" ||
		strings.HasPrefix(code, "VOUCHER_"):
		return CategoryConflict
	default:
		return CategoryValidation
	}
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewConflictError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewConflictError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewAuthError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewAuthError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewConflictError("INVALID_STATE", "Operation not allowed in current state")
)
