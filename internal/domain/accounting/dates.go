package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/ledger/backend/internal/domain/shared"
)

// DateLayout is the canonical accounting date format
const DateLayout = "2006-01-02"

// NormalizeDate converts a YYYY-MM-DD or RFC 3339 value into a UTC YYYY-MM-DD date
func NormalizeDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", shared.NewValidationError(CodeInvalidDate, "Date is required")
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t.Format(DateLayout), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return "", shared.NewValidationError(CodeInvalidDate, fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", value))
	}
	return t.UTC().Format(DateLayout), nil
}

// DateOf returns the UTC accounting date of t
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
