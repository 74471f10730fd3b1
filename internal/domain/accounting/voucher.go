package accounting

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AggregateTypeVoucher is the aggregate type name used in domain events
const AggregateTypeVoucher = "Voucher"

// MinVoucherLines is the minimum number of lines of a double-entry voucher
const MinVoucherLines = 2

// Voucher is the financial transaction document aggregate root.
// It is immutable: every transition returns a new instance and leaves the receiver untouched.
type Voucher struct {
	shared.TenantAggregate

	voucherNo    string
	voucherType  VoucherType
	date         string
	description  string
	currency     valueobject.Currency
	baseCurrency valueobject.Currency
	exchangeRate decimal.Decimal
	lines        []VoucherLine
	totalDebit   decimal.Decimal
	totalCredit  decimal.Decimal
	status       VoucherStatus
	metadata     VoucherMetadata

	createdBy       uuid.UUID
	approvedBy      *uuid.UUID
	approvedAt      *time.Time
	rejectedBy      *uuid.UUID
	rejectedAt      *time.Time
	rejectionReason string
	cancelledBy     *uuid.UUID
	cancelledAt     *time.Time
	postedBy        *uuid.UUID
	postedAt        *time.Time
	lockedBy        *uuid.UUID
	lockedAt        *time.Time

	postingLockPolicy   PostingLockPolicy
	reversalOfVoucherID *uuid.UUID
	reference           string

	events shared.EventLog
}

// NewVoucherParams carries the values of a new draft voucher
type NewVoucherParams struct {
	CompanyID    uuid.UUID
	VoucherNo    string
	Type         VoucherType
	Date         string
	Description  string
	Currency     string
	BaseCurrency string
	ExchangeRate decimal.Decimal
	Lines        []VoucherLine
	Reference    string
	Metadata     VoucherMetadata
	CreatedBy    uuid.UUID
	Now          time.Time
}

// NewVoucher creates a DRAFT voucher. Totals are computed from the lines.
func NewVoucher(p NewVoucherParams) (*Voucher, error) {
	if p.CompanyID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if !p.Type.IsValid() {
		return nil, shared.NewValidationError(CodeInvalidVoucherType, fmt.Sprintf("Unknown voucher type %q", p.Type))
	}
	if strings.TrimSpace(p.VoucherNo) == "" {
		return nil, shared.NewValidationError("INVALID_VOUCHER_NUMBER", "Voucher number cannot be empty")
	}
	if len(p.VoucherNo) > 50 {
		return nil, shared.NewValidationError("INVALID_VOUCHER_NUMBER", "Voucher number cannot exceed 50 characters")
	}
	date, err := NormalizeDate(p.Date)
	if err != nil {
		return nil, err
	}
	currency, err := valueobject.NewCurrency(p.Currency)
	if err != nil {
		return nil, shared.NewValidationError(CodeInvalidCurrency, err.Error())
	}
	baseCurrency, err := valueobject.NewCurrency(p.BaseCurrency)
	if err != nil {
		return nil, shared.NewValidationError(CodeInvalidCurrency, err.Error())
	}
	rate := p.ExchangeRate
	if rate.IsZero() && currency == baseCurrency {
		rate = decimal.NewFromInt(1)
	}
	if !rate.IsPositive() {
		return nil, shared.NewValidationError(CodeInvalidExchangeRate, "Exchange rate must be positive")
	}

	lines := make([]VoucherLine, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = l.withID(i + 1)
	}
	debit, credit := sumLines(lines)

	v := &Voucher{
		TenantAggregate: shared.NewTenantAggregate(p.CompanyID, p.Now),
		voucherNo:       p.VoucherNo,
		voucherType:     p.Type,
		date:            date,
		description:     p.Description,
		currency:        currency,
		baseCurrency:    baseCurrency,
		exchangeRate:    rate,
		lines:           lines,
		totalDebit:      debit,
		totalCredit:     credit,
		status:          VoucherStatusDraft,
		metadata:        p.Metadata.Clone(),
		createdBy:       p.CreatedBy,
		reference:       p.Reference,
	}
	if p.Metadata.ReversalOfVoucherID != nil {
		v.reversalOfVoucherID = cloneUUID(p.Metadata.ReversalOfVoucherID)
	}
	if err := v.CheckInvariants(); err != nil {
		return nil, err
	}
	v.events = v.events.Append(NewVoucherCreatedEvent(v))
	return v, nil
}

// VoucherState is the full persisted state of a voucher, used to rebuild it from storage
type VoucherState struct {
	ID                  uuid.UUID
	CompanyID           uuid.UUID
	Version             int
	VoucherNo           string
	Type                VoucherType
	Date                string
	Description         string
	Currency            string
	BaseCurrency        string
	ExchangeRate        decimal.Decimal
	Lines               []VoucherLineInput
	TotalDebit          decimal.Decimal
	TotalCredit         decimal.Decimal
	Status              VoucherStatus
	Metadata            VoucherMetadata
	CreatedBy           uuid.UUID
	CreatedAt           time.Time
	ApprovedBy          *uuid.UUID
	ApprovedAt          *time.Time
	RejectedBy          *uuid.UUID
	RejectedAt          *time.Time
	RejectionReason     string
	CancelledBy         *uuid.UUID
	CancelledAt         *time.Time
	PostedBy            *uuid.UUID
	PostedAt            *time.Time
	LockedBy            *uuid.UUID
	LockedAt            *time.Time
	PostingLockPolicy   PostingLockPolicy
	ReversalOfVoucherID *uuid.UUID
	Reference           string
	UpdatedAt           time.Time
}

// RestoreVoucher rebuilds a voucher from persisted state, re-checking every invariant
func RestoreVoucher(s VoucherState) (*Voucher, error) {
	lines := make([]VoucherLine, 0, len(s.Lines))
	for _, in := range s.Lines {
		l, err := NewVoucherLine(in)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	slices.SortFunc(lines, func(a, b VoucherLine) int { return a.id - b.id })

	v := &Voucher{
		TenantAggregate:     shared.RestoreTenantAggregate(s.ID, s.CompanyID, s.Version, s.CreatedAt, s.UpdatedAt),
		voucherNo:           s.VoucherNo,
		voucherType:         s.Type,
		date:                s.Date,
		description:         s.Description,
		currency:            valueobject.Currency(s.Currency),
		baseCurrency:        valueobject.Currency(s.BaseCurrency),
		exchangeRate:        s.ExchangeRate,
		lines:               lines,
		totalDebit:          s.TotalDebit,
		totalCredit:         s.TotalCredit,
		status:              s.Status,
		metadata:            s.Metadata.Clone(),
		createdBy:           s.CreatedBy,
		approvedBy:          cloneUUID(s.ApprovedBy),
		approvedAt:          cloneTime(s.ApprovedAt),
		rejectedBy:          cloneUUID(s.RejectedBy),
		rejectedAt:          cloneTime(s.RejectedAt),
		rejectionReason:     s.RejectionReason,
		cancelledBy:         cloneUUID(s.CancelledBy),
		cancelledAt:         cloneTime(s.CancelledAt),
		postedBy:            cloneUUID(s.PostedBy),
		postedAt:            cloneTime(s.PostedAt),
		lockedBy:            cloneUUID(s.LockedBy),
		lockedAt:            cloneTime(s.LockedAt),
		postingLockPolicy:   s.PostingLockPolicy,
		reversalOfVoucherID: cloneUUID(s.ReversalOfVoucherID),
		reference:           s.Reference,
	}
	if err := v.CheckInvariants(); err != nil {
		return nil, err
	}
	return v, nil
}

// State returns a snapshot of the voucher suitable for persistence
func (v *Voucher) State() VoucherState {
	lines := make([]VoucherLineInput, len(v.lines))
	for i, l := range v.lines {
		lines[i] = l.Input()
	}
	return VoucherState{
		ID:                  v.GetID(),
		CompanyID:           v.GetTenantID(),
		Version:             v.GetVersion(),
		VoucherNo:           v.voucherNo,
		Type:                v.voucherType,
		Date:                v.date,
		Description:         v.description,
		Currency:            v.currency.String(),
		BaseCurrency:        v.baseCurrency.String(),
		ExchangeRate:        v.exchangeRate,
		Lines:               lines,
		TotalDebit:          v.totalDebit,
		TotalCredit:         v.totalCredit,
		Status:              v.status,
		Metadata:            v.metadata.Clone(),
		CreatedBy:           v.createdBy,
		CreatedAt:           v.GetCreatedAt(),
		ApprovedBy:          cloneUUID(v.approvedBy),
		ApprovedAt:          cloneTime(v.approvedAt),
		RejectedBy:          cloneUUID(v.rejectedBy),
		RejectedAt:          cloneTime(v.rejectedAt),
		RejectionReason:     v.rejectionReason,
		CancelledBy:         cloneUUID(v.cancelledBy),
		CancelledAt:         cloneTime(v.cancelledAt),
		PostedBy:            cloneUUID(v.postedBy),
		PostedAt:            cloneTime(v.postedAt),
		LockedBy:            cloneUUID(v.lockedBy),
		LockedAt:            cloneTime(v.lockedAt),
		PostingLockPolicy:   v.postingLockPolicy,
		ReversalOfVoucherID: cloneUUID(v.reversalOfVoucherID),
		Reference:           v.reference,
		UpdatedAt:           v.GetUpdatedAt(),
	}
}

// CheckInvariants verifies the structural double-entry invariants
func (v *Voucher) CheckInvariants() error {
	if len(v.lines) < MinVoucherLines {
		return shared.NewCoreInvariantError(CodeMinLines,
			fmt.Sprintf("Voucher must have at least %d lines, got %d", MinVoucherLines, len(v.lines)))
	}
	for _, l := range v.lines {
		if l.baseCurrency != v.baseCurrency {
			return shared.NewCoreInvariantError(CodeBaseCurrencyMismatch,
				fmt.Sprintf("Line %d base currency %s does not match voucher base currency %s",
					l.id, l.baseCurrency, v.baseCurrency))
		}
	}
	debit, credit := sumLines(v.lines)
	if !valueobject.MoneyEquals(debit, credit) {
		return shared.NewCoreInvariantError(CodeUnbalanced,
			fmt.Sprintf("Voucher is not balanced: debit %s, credit %s %s",
				debit.StringFixed(v.baseCurrency.Precision()), credit.StringFixed(v.baseCurrency.Precision()), v.baseCurrency)).
			WithDetail("totalDebit", debit.String()).
			WithDetail("totalCredit", credit.String())
	}
	if !v.totalDebit.Equal(debit) || !v.totalCredit.Equal(credit) {
		return shared.NewCoreInvariantError(CodeTotalMismatch,
			fmt.Sprintf("Voucher totals (%s/%s) do not match line sums (%s/%s)",
				v.totalDebit, v.totalCredit, debit, credit))
	}
	return nil
}

func sumLines(lines []VoucherLine) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.DebitBase())
		credit = credit.Add(l.CreditBase())
	}
	return debit, credit
}

// clone returns a deep copy, one version ahead of the receiver, sharing nothing mutable with it
func (v *Voucher) clone(at time.Time) *Voucher {
	cp := *v
	cp.TenantAggregate = v.Touched(at)
	cp.lines = slices.Clone(v.lines)
	cp.metadata = v.metadata.Clone()
	return &cp
}

// rebuild finalizes a transition: re-checks invariants and records events
func (v *Voucher) rebuild(events ...shared.DomainEvent) (*Voucher, error) {
	if err := v.CheckInvariants(); err != nil {
		return nil, err
	}
	v.events = v.events.Append(events...)
	return v, nil
}

// Getters

// VoucherNo returns the human-readable voucher number
func (v *Voucher) VoucherNo() string { return v.voucherNo }

// Type returns the voucher type
func (v *Voucher) Type() VoucherType { return v.voucherType }

// Date returns the accounting date (YYYY-MM-DD)
func (v *Voucher) Date() string { return v.date }

// Description returns the free-form description
func (v *Voucher) Description() string { return v.description }

// Currency returns the voucher currency
func (v *Voucher) Currency() valueobject.Currency { return v.currency }

// BaseCurrency returns the company base currency
func (v *Voucher) BaseCurrency() valueobject.Currency { return v.baseCurrency }

// ExchangeRate returns the voucher→base header rate
func (v *Voucher) ExchangeRate() decimal.Decimal { return v.exchangeRate }

// Lines returns a copy of the voucher lines
func (v *Voucher) Lines() []VoucherLine { return slices.Clone(v.lines) }

// TotalDebit returns the base-currency debit total
func (v *Voucher) TotalDebit() decimal.Decimal { return v.totalDebit }

// TotalCredit returns the base-currency credit total
func (v *Voucher) TotalCredit() decimal.Decimal { return v.totalCredit }

// Status returns the workflow status
func (v *Voucher) Status() VoucherStatus { return v.status }

// Metadata returns a copy of the voucher metadata
func (v *Voucher) Metadata() VoucherMetadata { return v.metadata.Clone() }

// CreatedBy returns the creating user
func (v *Voucher) CreatedBy() uuid.UUID { return v.createdBy }

// ApprovedBy returns the approving user, nil before approval
func (v *Voucher) ApprovedBy() *uuid.UUID { return cloneUUID(v.approvedBy) }

// ApprovedAt returns the approval time
func (v *Voucher) ApprovedAt() *time.Time { return cloneTime(v.approvedAt) }

// RejectedBy returns the rejecting user
func (v *Voucher) RejectedBy() *uuid.UUID { return cloneUUID(v.rejectedBy) }

// RejectionReason returns the reason given on rejection
func (v *Voucher) RejectionReason() string { return v.rejectionReason }

// PostedBy returns the posting user
func (v *Voucher) PostedBy() *uuid.UUID { return cloneUUID(v.postedBy) }

// PostedAt returns the posting time
func (v *Voucher) PostedAt() *time.Time { return cloneTime(v.postedAt) }

// PostingLockPolicy returns the lock policy frozen at post time
func (v *Voucher) PostingLockPolicy() PostingLockPolicy { return v.postingLockPolicy }

// ReversalOfVoucherID returns the voucher this one reverses, if any
func (v *Voucher) ReversalOfVoucherID() *uuid.UUID { return cloneUUID(v.reversalOfVoucherID) }

// Reference returns the external reference
func (v *Voucher) Reference() string { return v.reference }

// IsPosted reports whether the voucher has financial effect
func (v *Voucher) IsPosted() bool { return v.postedAt != nil }

// IsReversal reports whether the voucher reverses another voucher
func (v *Voucher) IsReversal() bool { return v.reversalOfVoucherID != nil }

// GetDomainEvents returns the events recorded across this voucher's transitions
func (v *Voucher) GetDomainEvents() []shared.DomainEvent { return v.events.Events() }

// AccountIDs returns the distinct account references used by the lines, in line order
func (v *Voucher) AccountIDs() []string {
	ids := make([]string, 0, len(v.lines))
	for _, l := range v.lines {
		if !slices.Contains(ids, l.accountID) {
			ids = append(ids, l.accountID)
		}
	}
	return ids
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func ptr[T any](v T) *T {
	return &v
}
