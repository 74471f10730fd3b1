package accounting

import (
	"slices"

	"github.com/google/uuid"
)

// AccountRole distinguishes postable leaf accounts from grouping headers
type AccountRole string

const (
	AccountRolePosting AccountRole = "POSTING"
	AccountRoleHeader  AccountRole = "HEADER"
)

// Account ownership scopes
const (
	OwnerScopeShared     = "shared"
	OwnerScopeRestricted = "restricted"
)

// Account is the read model of a chart-of-accounts entry as seen by the posting engine
type Account struct {
	ID                          string
	Code                        string
	Name                        string
	Type                        string
	Role                        AccountRole
	Active                      bool
	Currency                    string // fixed currency; empty accepts any
	RequiresApproval            bool
	RequiresCustodyConfirmation bool
	CustodianUserID             *uuid.UUID
	OwnerScope                  string
	OwnerUnitIDs                []string
}

// IsPostable reports whether lines may be posted to the account
func (a Account) IsPostable() bool {
	return a.Role != AccountRoleHeader
}

// AcceptsCurrency reports whether a line in currency may post to the account
func (a Account) AcceptsCurrency(currency string) bool {
	return a.Currency == "" || a.Currency == currency
}

// IsRestricted reports whether the account is owned by specific units
func (a Account) IsRestricted() bool {
	return a.OwnerScope == OwnerScopeRestricted || len(a.OwnerUnitIDs) > 0
}

// UserAccessScope describes which organisational units a user belongs to
type UserAccessScope struct {
	UserID  uuid.UUID
	IsSuper bool
	UnitIDs []string
}

// CanAccess reports whether the user may post to the account
func (s UserAccessScope) CanAccess(a Account) bool {
	if !a.IsRestricted() || s.IsSuper {
		return true
	}
	for _, unit := range a.OwnerUnitIDs {
		if slices.Contains(s.UnitIDs, unit) {
			return true
		}
	}
	return false
}
