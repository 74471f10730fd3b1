package accounting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/accounting/policy"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryVoucherRepository keeps voucher state in memory and enforces optimistic versions
type memoryVoucherRepository struct {
	mu     sync.Mutex
	states map[uuid.UUID]accounting.VoucherState
}

func newMemoryVoucherRepository() *memoryVoucherRepository {
	return &memoryVoucherRepository{states: make(map[uuid.UUID]accounting.VoucherState)}
}

func (r *memoryVoucherRepository) load(companyID, id uuid.UUID) (*accounting.Voucher, error) {
	r.mu.Lock()
	st, ok := r.states[id]
	r.mu.Unlock()
	if !ok || st.CompanyID != companyID {
		return nil, nil
	}
	return accounting.RestoreVoucher(st)
}

func (r *memoryVoucherRepository) FindByID(_ context.Context, companyID, id uuid.UUID) (*accounting.Voucher, error) {
	return r.load(companyID, id)
}

func (r *memoryVoucherRepository) FindByIDForUpdate(_ context.Context, companyID, id uuid.UUID) (*accounting.Voucher, error) {
	return r.load(companyID, id)
}

func (r *memoryVoucherRepository) FindByReversalOf(_ context.Context, companyID, originalID uuid.UUID) (*accounting.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.states {
		if st.CompanyID == companyID && st.ReversalOfVoucherID != nil && *st.ReversalOfVoucherID == originalID {
			return accounting.RestoreVoucher(st)
		}
	}
	return nil, nil
}

func (r *memoryVoucherRepository) FindByCompany(_ context.Context, companyID uuid.UUID, _ accounting.VoucherFilter) ([]*accounting.Voucher, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*accounting.Voucher
	for _, st := range r.states {
		if st.CompanyID == companyID {
			v, err := accounting.RestoreVoucher(st)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, v)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryVoucherRepository) Save(_ context.Context, v *accounting.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, exists := r.states[v.GetID()]
	if v.IsNew() {
		if exists {
			return shared.ErrAlreadyExists
		}
	} else if !exists || current.Version != v.PersistedVersion() {
		return shared.ErrConcurrencyConflict
	}
	r.states[v.GetID()] = v.State()
	return nil
}

func (r *memoryVoucherRepository) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, id)
	return nil
}

type memoryLedgerRepository struct {
	mu      sync.Mutex
	entries map[uuid.UUID][]accounting.LedgerEntry
	writes  int
}

func newMemoryLedgerRepository() *memoryLedgerRepository {
	return &memoryLedgerRepository{entries: make(map[uuid.UUID][]accounting.LedgerEntry)}
}

func (r *memoryLedgerRepository) RecordForVoucher(_ context.Context, v *accounting.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[v.GetID()] = append(r.entries[v.GetID()], accounting.LedgerEntriesFor(v)...)
	r.writes++
	return nil
}

func (r *memoryLedgerRepository) DeleteForVoucher(_ context.Context, _ uuid.UUID, voucherID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, voucherID)
	return nil
}

func (r *memoryLedgerRepository) FindByVoucher(_ context.Context, _ uuid.UUID, voucherID uuid.UUID) ([]accounting.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]accounting.LedgerEntry(nil), r.entries[voucherID]...), nil
}

func (r *memoryLedgerRepository) balances() map[string]decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]decimal.Decimal{}
	for _, entries := range r.entries {
		for _, e := range entries {
			out[e.AccountID] = out[e.AccountID].Add(e.SignedBase())
		}
	}
	return out
}

// MockPermissionChecker is a mock implementation of PermissionChecker
type MockPermissionChecker struct {
	mock.Mock
}

func (m *MockPermissionChecker) AssertOrThrow(ctx context.Context, userID, companyID uuid.UUID, permission string) error {
	args := m.Called(ctx, userID, companyID, permission)
	return args.Error(0)
}

// MockConfigProvider is a mock implementation of AccountingPolicyConfigProvider
type MockConfigProvider struct {
	mock.Mock
}

func (m *MockConfigProvider) GetConfig(ctx context.Context, companyID uuid.UUID) (accounting.ApprovalPolicyConfig, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(accounting.ApprovalPolicyConfig), args.Error(1)
}

// MockAccountLookup is a mock implementation of AccountLookupService
type MockAccountLookup struct {
	mock.Mock
}

func (m *MockAccountLookup) GetAccountsByIDs(ctx context.Context, companyID uuid.UUID, ids []string) ([]accounting.Account, error) {
	args := m.Called(ctx, companyID, ids)
	return accountsResult(args, ctx, companyID, ids)
}

func (m *MockAccountLookup) GetAccountsByCodes(ctx context.Context, companyID uuid.UUID, codes []string) ([]accounting.Account, error) {
	args := m.Called(ctx, companyID, codes)
	return accountsResult(args, ctx, companyID, codes)
}

type accountsFunc func(ctx context.Context, companyID uuid.UUID, refs []string) []accounting.Account

func accountsResult(args mock.Arguments, ctx context.Context, companyID uuid.UUID, refs []string) ([]accounting.Account, error) {
	if fn, ok := args.Get(0).(accountsFunc); ok {
		return fn(ctx, companyID, refs), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]accounting.Account), args.Error(1)
}

// MockScopeProvider is a mock implementation of UserAccessScopeProvider
type MockScopeProvider struct {
	mock.Mock
}

func (m *MockScopeProvider) GetScope(ctx context.Context, userID, companyID uuid.UUID) (accounting.UserAccessScope, error) {
	args := m.Called(ctx, userID, companyID)
	return args.Get(0).(accounting.UserAccessScope), args.Error(1)
}

// sequenceNumbers hands out predictable voucher numbers
type sequenceNumbers struct {
	mu   sync.Mutex
	next int
}

func (g *sequenceNumbers) Next(_ context.Context, _ uuid.UUID, t accounting.VoucherType, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return t.NumberPrefix() + "-" + decimal.NewFromInt(int64(g.next)).String(), nil
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockPostingLocker is a mock implementation of PostingLocker
type MockPostingLocker struct {
	mock.Mock
}

func (m *MockPostingLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func(context.Context) error), args.Error(1)
}

type testEnv struct {
	svc         *VoucherService
	vouchers    *memoryVoucherRepository
	ledger      *memoryLedgerRepository
	numbers     *sequenceNumbers
	permissions *MockPermissionChecker
	configs     *MockConfigProvider
	accounts    *MockAccountLookup
	scopes      *MockScopeProvider
	events      *MockEventPublisher
	actor       Actor
}

var (
	cashAccount    = accounting.Account{ID: "acc-cash", Code: "1000", Type: "asset", Role: accounting.AccountRolePosting, Active: true}
	revenueAccount = accounting.Account{ID: "acc-rev", Code: "4000", Type: "revenue", Role: accounting.AccountRolePosting, Active: true}
	expenseAccount = accounting.Account{ID: "acc-exp", Code: "6100", Type: "expense", Role: accounting.AccountRolePosting, Active: true}
)

func newTestEnv(t *testing.T, cfg accounting.ApprovalPolicyConfig, accounts ...accounting.Account) *testEnv {
	t.Helper()
	if len(accounts) == 0 {
		accounts = []accounting.Account{cashAccount, revenueAccount, expenseAccount}
	}
	env := &testEnv{
		vouchers:    newMemoryVoucherRepository(),
		ledger:      newMemoryLedgerRepository(),
		numbers:     &sequenceNumbers{},
		permissions: new(MockPermissionChecker),
		configs:     new(MockConfigProvider),
		accounts:    new(MockAccountLookup),
		scopes:      new(MockScopeProvider),
		events:      new(MockEventPublisher),
		actor:       Actor{CompanyID: uuid.New(), UserID: uuid.New()},
	}
	env.permissions.On("AssertOrThrow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	env.configs.On("GetConfig", mock.Anything, mock.Anything).Return(cfg, nil).Maybe()
	env.accounts.On("GetAccountsByIDs", mock.Anything, mock.Anything, mock.Anything).Return(
		accountsFunc(func(_ context.Context, _ uuid.UUID, ids []string) []accounting.Account {
			return pick(accounts, ids, func(a accounting.Account) string { return a.ID })
		}), nil).Maybe()
	env.accounts.On("GetAccountsByCodes", mock.Anything, mock.Anything, mock.Anything).Return(
		accountsFunc(func(_ context.Context, _ uuid.UUID, codes []string) []accounting.Account {
			return pick(accounts, codes, func(a accounting.Account) string { return a.Code })
		}), nil).Maybe()
	env.events.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	env.svc = NewVoucherService(VoucherServiceDeps{
		TxScope:             NewNoOpTransactionScope(env.vouchers, env.ledger, env.numbers),
		Vouchers:            env.vouchers,
		Permissions:         env.permissions,
		Configs:             env.configs,
		Accounts:            env.accounts,
		Scopes:              env.scopes,
		Events:              env.events,
		DefaultBaseCurrency: "USD",
	})
	return env
}

func pick(accounts []accounting.Account, refs []string, key func(accounting.Account) string) []accounting.Account {
	var out []accounting.Account
	for _, a := range accounts {
		for _, ref := range refs {
			if key(a) == ref {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

func receiptCommand(amount string) CreateVoucherCommand {
	amt := decimal.RequireFromString(amount)
	return CreateVoucherCommand{
		Type:        accounting.VoucherTypeReceipt,
		Date:        "2025-03-10",
		Description: "Cash sale",
		Lines: []LineCommand{
			{AccountID: "1000", Side: accounting.SideDebit, Amount: amt},
			{AccountID: "4000", Side: accounting.SideCredit, Amount: amt},
		},
	}
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok, "expected DomainError, got %T: %v", err, err)
	assert.Equal(t, code, de.Code)
}

func TestVoucherService_Create(t *testing.T) {
	t.Run("creates draft with sequential number", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		v, err := env.svc.Create(context.Background(), env.actor, receiptCommand("100"))
		require.NoError(t, err)

		assert.Equal(t, accounting.VoucherStatusDraft, v.Status())
		assert.Equal(t, "RV-1", v.VoucherNo())
		assert.Equal(t, "USD", v.BaseCurrency().String())
		stored, err := env.vouchers.FindByID(context.Background(), env.actor.CompanyID, v.GetID())
		require.NoError(t, err)
		require.NotNil(t, stored)
		env.events.AssertCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("triangulates foreign lines", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		cmd := CreateVoucherCommand{
			Type:         accounting.VoucherTypeJournalEntry,
			Date:         "2025-03-10",
			Currency:     "EUR",
			ExchangeRate: decimal.RequireFromString("0.9"),
			Lines: []LineCommand{
				{AccountID: "6100", Side: accounting.SideDebit, Amount: decimal.NewFromInt(100), Currency: "GBP", Parity: decimal.RequireFromString("1.2")},
				{AccountID: "1000", Side: accounting.SideCredit, Amount: decimal.NewFromInt(120)},
			},
		}
		v, err := env.svc.Create(context.Background(), env.actor, cmd)
		require.NoError(t, err)

		lines := v.Lines()
		assert.Equal(t, "108.00", lines[0].BaseAmount().StringFixed(2))
		assert.Equal(t, "108.00", lines[1].BaseAmount().StringFixed(2))
		assert.Equal(t, "EUR", v.Currency().String())
	})

	t.Run("foreign line without parity is rejected", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		cmd := receiptCommand("100")
		cmd.Lines[0].Currency = "EUR"
		_, err := env.svc.Create(context.Background(), env.actor, cmd)
		assertDomainCode(t, err, accounting.CodeInvalidExchangeRate)
	})

	t.Run("unbalanced voucher is rejected", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		cmd := receiptCommand("100")
		cmd.Lines[1].Amount = decimal.NewFromInt(90)
		_, err := env.svc.Create(context.Background(), env.actor, cmd)
		assertDomainCode(t, err, accounting.CodeUnbalanced)
	})

	t.Run("permission is checked before anything else", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		env.permissions.ExpectedCalls = nil
		env.permissions.On("AssertOrThrow", mock.Anything, env.actor.UserID, env.actor.CompanyID, PermissionCreate).
			Return(shared.NewAuthError("PERMISSION_DENIED", "denied"))

		_, err := env.svc.Create(context.Background(), env.actor, receiptCommand("100"))
		assertDomainCode(t, err, "PERMISSION_DENIED")
		env.configs.AssertNotCalled(t, "GetConfig", mock.Anything, mock.Anything)
		assert.Empty(t, env.vouchers.states)
	})

	t.Run("post immediately in mode A", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		cmd := receiptCommand("100")
		cmd.PostImmediately = true
		v, err := env.svc.Create(context.Background(), env.actor, cmd)
		require.NoError(t, err)

		assert.True(t, v.IsPosted())
		assert.Equal(t, accounting.PostingLockFlexibleLocked, v.PostingLockPolicy())
		assert.Equal(t, 1, env.ledger.writes)
		assert.Equal(t, "acc-cash", v.Lines()[0].AccountID())
	})
}

func TestVoucherService_SubmitAndApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("mode A auto-approves on submit", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		v, err := env.svc.Create(ctx, env.actor, receiptCommand("50"))
		require.NoError(t, err)

		v, err = env.svc.Submit(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		assert.Equal(t, accounting.VoucherStatusApproved, v.Status())
	})

	t.Run("mode C waits for financial approval", func(t *testing.T) {
		env := newTestEnv(t, accounting.ApprovalPolicyConfig{FinancialApprovalEnabled: true, FAApplyMode: accounting.FAApplyAll})
		v, err := env.svc.Create(ctx, env.actor, receiptCommand("50"))
		require.NoError(t, err)

		_, err = env.svc.Approve(ctx, env.actor, v.GetID())
		assertDomainCode(t, err, CodeSubmitRequired)

		v, err = env.svc.Submit(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		assert.Equal(t, accounting.VoucherStatusPending, v.Status())
		assert.Equal(t, accounting.ApprovalModeC, v.Metadata().ApprovalMode)

		v, err = env.svc.Approve(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		assert.Equal(t, accounting.VoucherStatusApproved, v.Status())
	})

	t.Run("mode D needs custodian confirmation", func(t *testing.T) {
		custodian := uuid.New()
		cash := cashAccount
		cash.RequiresCustodyConfirmation = true
		cash.CustodianUserID = &custodian
		env := newTestEnv(t,
			accounting.ApprovalPolicyConfig{FinancialApprovalEnabled: true, CustodyConfirmationEnabled: true},
			cash, revenueAccount)

		v, err := env.svc.Create(ctx, env.actor, receiptCommand("50"))
		require.NoError(t, err)
		v, err = env.svc.Submit(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{custodian}, v.Metadata().PendingCustodyConfirmations)

		v, err = env.svc.Approve(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		assert.Equal(t, accounting.VoucherStatusPending, v.Status())

		again, err := env.svc.Approve(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		assert.Equal(t, v.GetVersion(), again.GetVersion())

		_, err = env.svc.ConfirmCustody(ctx, env.actor, v.GetID())
		assertDomainCode(t, err, accounting.CodeCustodianNotRequired)

		v, err = env.svc.ConfirmCustody(ctx, Actor{CompanyID: env.actor.CompanyID, UserID: custodian}, v.GetID())
		require.NoError(t, err)
		assert.Equal(t, accounting.VoucherStatusApproved, v.Status())
	})

	t.Run("reject then cancel", func(t *testing.T) {
		env := newTestEnv(t, accounting.ApprovalPolicyConfig{FinancialApprovalEnabled: true})
		v, err := env.svc.Create(ctx, env.actor, receiptCommand("50"))
		require.NoError(t, err)
		v, err = env.svc.Submit(ctx, env.actor, v.GetID())
		require.NoError(t, err)

		v, err = env.svc.Reject(ctx, env.actor, v.GetID(), "missing receipt")
		require.NoError(t, err)
		assert.Equal(t, accounting.VoucherStatusRejected, v.Status())

		v, err = env.svc.Cancel(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		assert.Equal(t, accounting.VoucherStatusCancelled, v.Status())
	})

	t.Run("unknown voucher", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		_, err := env.svc.Submit(ctx, env.actor, uuid.New())
		assertDomainCode(t, err, accounting.CodeVoucherNotFound)
	})
}

func createApproved(t *testing.T, env *testEnv, cmd CreateVoucherCommand) *accounting.Voucher {
	t.Helper()
	cmd.Submit = true
	v, err := env.svc.Create(context.Background(), env.actor, cmd)
	require.NoError(t, err)
	require.Equal(t, accounting.VoucherStatusApproved, v.Status())
	return v
}

func TestVoucherService_Post(t *testing.T) {
	ctx := context.Background()

	t.Run("posting is idempotent", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		v := createApproved(t, env, receiptCommand("100"))

		first, err := env.svc.Post(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		second, err := env.svc.Post(ctx, env.actor, v.GetID())
		require.NoError(t, err)

		assert.True(t, first.IsPosted())
		assert.Equal(t, first.GetVersion(), second.GetVersion())
		assert.Equal(t, 1, env.ledger.writes)
		entries, _ := env.ledger.FindByVoucher(ctx, env.actor.CompanyID, v.GetID())
		assert.Len(t, entries, 2)
	})

	t.Run("requires approval", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		v, err := env.svc.Create(ctx, env.actor, receiptCommand("100"))
		require.NoError(t, err)
		_, err = env.svc.Post(ctx, env.actor, v.GetID())
		assertDomainCode(t, err, accounting.CodeInvalidTransition)
		assert.Equal(t, 0, env.ledger.writes)
	})

	t.Run("rejects inactive and header accounts", func(t *testing.T) {
		inactive := revenueAccount
		inactive.Active = false
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig(), cashAccount, inactive)
		v := createApproved(t, env, receiptCommand("100"))
		_, err := env.svc.Post(ctx, env.actor, v.GetID())
		assertDomainCode(t, err, accounting.CodeAccountInactive)

		header := revenueAccount
		header.Role = accounting.AccountRoleHeader
		env = newTestEnv(t, accounting.DefaultApprovalPolicyConfig(), cashAccount, header)
		v = createApproved(t, env, receiptCommand("100"))
		_, err = env.svc.Post(ctx, env.actor, v.GetID())
		assertDomainCode(t, err, accounting.CodeAccountNotPostable)
	})

	t.Run("rejects unknown account and currency mismatch", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig(), cashAccount)
		v := createApproved(t, env, receiptCommand("100"))
		_, err := env.svc.Post(ctx, env.actor, v.GetID())
		assertDomainCode(t, err, accounting.CodeAccountNotFound)

		eurOnly := revenueAccount
		eurOnly.Currency = "EUR"
		env = newTestEnv(t, accounting.DefaultApprovalPolicyConfig(), cashAccount, eurOnly)
		v = createApproved(t, env, receiptCommand("100"))
		_, err = env.svc.Post(ctx, env.actor, v.GetID())
		assertDomainCode(t, err, accounting.CodeAccountCurrency)
	})

	t.Run("period lock blocks posting", func(t *testing.T) {
		env := newTestEnv(t, accounting.ApprovalPolicyConfig{LockedThroughDate: "2025-03-31"})
		v := createApproved(t, env, receiptCommand("100"))
		_, err := env.svc.Post(ctx, env.actor, v.GetID())
		assertDomainCode(t, err, policy.CodePolicyViolation)
		de, _ := shared.AsDomainError(err)
		assert.Equal(t, policy.CodePeriodLocked, de.Violations[0].Code)
		assert.Equal(t, 0, env.ledger.writes)
	})

	t.Run("account access uses user scope", func(t *testing.T) {
		restricted := revenueAccount
		restricted.OwnerScope = accounting.OwnerScopeRestricted
		restricted.OwnerUnitIDs = []string{"hq"}
		env := newTestEnv(t, accounting.ApprovalPolicyConfig{AccountAccessEnabled: true}, cashAccount, restricted)
		env.scopes.On("GetScope", mock.Anything, env.actor.UserID, env.actor.CompanyID).
			Return(accounting.UserAccessScope{UserID: env.actor.UserID, UnitIDs: []string{"branch"}}, nil)

		v := createApproved(t, env, receiptCommand("100"))
		_, err := env.svc.Post(ctx, env.actor, v.GetID())
		assertDomainCode(t, err, policy.CodePolicyViolation)
		env.scopes.AssertExpectations(t)
	})

	t.Run("strict mode freezes strict lock", func(t *testing.T) {
		env := newTestEnv(t, accounting.ApprovalPolicyConfig{FinancialApprovalEnabled: true, AllowEditDeletePosted: true})
		v, err := env.svc.Create(ctx, env.actor, receiptCommand("100"))
		require.NoError(t, err)
		_, err = env.svc.Submit(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		_, err = env.svc.Approve(ctx, env.actor, v.GetID())
		require.NoError(t, err)

		posted, err := env.svc.Post(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		assert.Equal(t, accounting.PostingLockStrict, posted.PostingLockPolicy())

		err = env.svc.Delete(ctx, env.actor, v.GetID())
		assertDomainCode(t, err, accounting.CodeStrictLockForever)
		_, err = env.svc.Update(ctx, env.actor, UpdateVoucherCommand{VoucherID: v.GetID(), Lines: receiptCommand("200").Lines})
		assertDomainCode(t, err, accounting.CodeStrictLockForever)
	})

	t.Run("lock held elsewhere is a conflict", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		locker := new(MockPostingLocker)
		locker.On("Obtain", mock.Anything, mock.Anything, 30*time.Second).Return(nil, ErrPostingLockNotObtained)
		env.svc.locker = locker

		v := createApproved(t, env, receiptCommand("100"))
		_, err := env.svc.Post(ctx, env.actor, v.GetID())
		assertDomainCode(t, err, CodePostingInProgress)
	})

	t.Run("lock backend failure falls back to row lock", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		locker := new(MockPostingLocker)
		locker.On("Obtain", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))
		env.svc.locker = locker

		v := createApproved(t, env, receiptCommand("100"))
		posted, err := env.svc.Post(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		assert.True(t, posted.IsPosted())
	})
}

func TestVoucherService_UpdateAndDeletePosted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, accounting.ApprovalPolicyConfig{AllowEditDeletePosted: true})
	v := createApproved(t, env, receiptCommand("100"))
	_, err := env.svc.Post(ctx, env.actor, v.GetID())
	require.NoError(t, err)

	updated, err := env.svc.Update(ctx, env.actor, UpdateVoucherCommand{
		VoucherID:   v.GetID(),
		Description: "Corrected amount",
		Lines:       receiptCommand("150").Lines,
	})
	require.NoError(t, err)
	assert.True(t, updated.IsPosted())
	assert.True(t, updated.Metadata().IsEdited)

	entries, err := env.ledger.FindByVoucher(ctx, env.actor.CompanyID, v.GetID())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].BaseAmount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "acc-cash", entries[0].AccountID)

	require.NoError(t, env.svc.Delete(ctx, env.actor, v.GetID()))
	entries, _ = env.ledger.FindByVoucher(ctx, env.actor.CompanyID, v.GetID())
	assert.Empty(t, entries)
	_, err = env.svc.Get(ctx, env.actor, v.GetID())
	assertDomainCode(t, err, accounting.CodeVoucherNotFound)
}

func TestVoucherService_PostedEditRunsPolicies(t *testing.T) {
	ctx := context.Background()

	postDated := func(t *testing.T, env *testEnv, date string) *accounting.Voucher {
		t.Helper()
		cmd := receiptCommand("100")
		cmd.Date = date
		v := createApproved(t, env, cmd)
		posted, err := env.svc.Post(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		return posted
	}
	assertLedgerUnchanged := func(t *testing.T, env *testEnv, v *accounting.Voucher) {
		t.Helper()
		entries, err := env.ledger.FindByVoucher(ctx, env.actor.CompanyID, v.GetID())
		require.NoError(t, err)
		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.Equal(t, v.Date(), e.Date)
			assert.True(t, e.BaseAmount.Equal(decimal.NewFromInt(100)))
		}
		stored, err := env.svc.Get(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		assert.Equal(t, v.GetVersion(), stored.GetVersion())
	}

	t.Run("edit into a locked period is rejected", func(t *testing.T) {
		env := newTestEnv(t, accounting.ApprovalPolicyConfig{AllowEditDeletePosted: true, LockedThroughDate: "2025-03-31"})
		v := postDated(t, env, "2025-04-15")

		_, err := env.svc.Update(ctx, env.actor, UpdateVoucherCommand{
			VoucherID: v.GetID(),
			Date:      "2025-01-15",
			Lines:     receiptCommand("100").Lines,
		})
		assertDomainCode(t, err, policy.CodePolicyViolation)
		de, _ := shared.AsDomainError(err)
		require.NotEmpty(t, de.Violations)
		assert.Equal(t, policy.CodePeriodLocked, de.Violations[0].Code)
		assertLedgerUnchanged(t, env, v)
	})

	t.Run("voucher already inside a locked period cannot change", func(t *testing.T) {
		env := newTestEnv(t, accounting.ApprovalPolicyConfig{AllowEditDeletePosted: true})
		v := postDated(t, env, "2025-03-10")

		env.configs.ExpectedCalls = nil
		env.configs.On("GetConfig", mock.Anything, mock.Anything).
			Return(accounting.ApprovalPolicyConfig{AllowEditDeletePosted: true, LockedThroughDate: "2025-03-31"}, nil)

		_, err := env.svc.Update(ctx, env.actor, UpdateVoucherCommand{
			VoucherID: v.GetID(),
			Date:      "2025-04-15",
			Lines:     receiptCommand("100").Lines,
		})
		assertDomainCode(t, err, policy.CodePolicyViolation)
		err = env.svc.Delete(ctx, env.actor, v.GetID())
		assertDomainCode(t, err, policy.CodePolicyViolation)
		assertLedgerUnchanged(t, env, v)
	})

	t.Run("edit onto an account outside the user scope is rejected", func(t *testing.T) {
		restricted := expenseAccount
		restricted.OwnerScope = accounting.OwnerScopeRestricted
		restricted.OwnerUnitIDs = []string{"hq"}
		env := newTestEnv(t, accounting.ApprovalPolicyConfig{AllowEditDeletePosted: true, AccountAccessEnabled: true},
			cashAccount, revenueAccount, restricted)
		env.scopes.On("GetScope", mock.Anything, env.actor.UserID, env.actor.CompanyID).
			Return(accounting.UserAccessScope{UserID: env.actor.UserID, UnitIDs: []string{"branch"}}, nil)
		v := postDated(t, env, "2025-03-10")

		amt := decimal.NewFromInt(100)
		_, err := env.svc.Update(ctx, env.actor, UpdateVoucherCommand{
			VoucherID: v.GetID(),
			Lines: []LineCommand{
				{AccountID: "6100", Side: accounting.SideDebit, Amount: amt},
				{AccountID: "1000", Side: accounting.SideCredit, Amount: amt},
			},
		})
		assertDomainCode(t, err, policy.CodePolicyViolation)
		de, _ := shared.AsDomainError(err)
		require.NotEmpty(t, de.Violations)
		assert.Equal(t, policy.CodeAccountAccessDenied, de.Violations[0].Code)
		assertLedgerUnchanged(t, env, v)
	})

	t.Run("unposted edits skip the ledger checks", func(t *testing.T) {
		env := newTestEnv(t, accounting.ApprovalPolicyConfig{LockedThroughDate: "2025-03-31"})
		v, err := env.svc.Create(ctx, env.actor, receiptCommand("100"))
		require.NoError(t, err)

		updated, err := env.svc.Update(ctx, env.actor, UpdateVoucherCommand{
			VoucherID: v.GetID(),
			Date:      "2025-04-02",
			Lines:     receiptCommand("120").Lines,
		})
		require.NoError(t, err)
		assert.Equal(t, "2025-04-02", updated.Date())
		assert.Equal(t, 0, env.ledger.writes)
	})
}

func TestVoucherService_ReverseAndReplace(t *testing.T) {
	ctx := context.Background()

	t.Run("reversal zeroes balances and links the correction group", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		v := createApproved(t, env, receiptCommand("100"))
		_, err := env.svc.Post(ctx, env.actor, v.GetID())
		require.NoError(t, err)

		replacement := receiptCommand("80")
		res, err := env.svc.ReverseAndReplace(ctx, env.actor, ReverseCommand{
			VoucherID:       v.GetID(),
			Reason:          "wrong amount",
			Replacement:     &replacement,
			PostReplacement: true,
		})
		require.NoError(t, err)
		assert.False(t, res.AlreadyReversed)
		assert.True(t, res.Reversal.IsPosted())
		assert.Equal(t, accounting.VoucherTypeReversal, res.Reversal.Type())
		assert.Equal(t, v.Date(), res.Reversal.Date())
		require.NotNil(t, res.Replacement)
		assert.True(t, res.Replacement.IsPosted())
		assert.Equal(t, v.GetID(), *res.Replacement.Metadata().ReplacesVoucherID)
		assert.Equal(t, res.CorrectionGroupID, *res.Replacement.Metadata().CorrectionGroupID)

		original, err := env.svc.Get(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		assert.True(t, original.Metadata().IsReversed)
		assert.Equal(t, res.Reversal.GetID(), *original.Metadata().ReversedByVoucherID)
		assert.Equal(t, res.CorrectionGroupID, *original.Metadata().CorrectionGroupID)

		balances := env.ledger.balances()
		assert.True(t, balances["acc-cash"].Equal(decimal.NewFromInt(80)))
		assert.True(t, balances["acc-rev"].Equal(decimal.NewFromInt(-80)))
	})

	t.Run("second reversal returns the first", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		v := createApproved(t, env, receiptCommand("100"))
		_, err := env.svc.Post(ctx, env.actor, v.GetID())
		require.NoError(t, err)

		first, err := env.svc.ReverseAndReplace(ctx, env.actor, ReverseCommand{VoucherID: v.GetID(), ReversalDate: "today"})
		require.NoError(t, err)
		writes := env.ledger.writes

		second, err := env.svc.ReverseAndReplace(ctx, env.actor, ReverseCommand{VoucherID: v.GetID()})
		require.NoError(t, err)
		assert.True(t, second.AlreadyReversed)
		assert.Equal(t, first.Reversal.GetID(), second.Reversal.GetID())
		assert.Equal(t, first.CorrectionGroupID, second.CorrectionGroupID)
		assert.Equal(t, writes, env.ledger.writes)
	})

	t.Run("reversed voucher and its reversal are frozen", func(t *testing.T) {
		env := newTestEnv(t, accounting.ApprovalPolicyConfig{AllowEditDeletePosted: true})
		v := createApproved(t, env, receiptCommand("100"))
		_, err := env.svc.Post(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		res, err := env.svc.ReverseAndReplace(ctx, env.actor, ReverseCommand{VoucherID: v.GetID()})
		require.NoError(t, err)

		_, err = env.svc.Update(ctx, env.actor, UpdateVoucherCommand{VoucherID: v.GetID(), Lines: receiptCommand("50").Lines})
		assertDomainCode(t, err, accounting.CodeReversedImmutable)
		err = env.svc.Delete(ctx, env.actor, v.GetID())
		assertDomainCode(t, err, accounting.CodeReversedImmutable)
		err = env.svc.Delete(ctx, env.actor, res.Reversal.GetID())
		assertDomainCode(t, err, accounting.CodeReversedImmutable)

		for account, b := range env.ledger.balances() {
			assert.True(t, b.IsZero(), "account %s not zeroed: %s", account, b)
		}
	})

	t.Run("reversal mirrors the stored ledger rows", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		v := createApproved(t, env, receiptCommand("100"))
		_, err := env.svc.Post(ctx, env.actor, v.GetID())
		require.NoError(t, err)

		// rows written before a rate correction no longer match the voucher lines
		env.ledger.mu.Lock()
		rows := env.ledger.entries[v.GetID()]
		for i := range rows {
			rows[i].Amount = decimal.NewFromInt(120)
			rows[i].BaseAmount = decimal.NewFromInt(120)
		}
		rows[1].AccountID = "acc-exp"
		env.ledger.mu.Unlock()

		res, err := env.svc.ReverseAndReplace(ctx, env.actor, ReverseCommand{VoucherID: v.GetID()})
		require.NoError(t, err)

		lines := res.Reversal.Lines()
		require.Len(t, lines, 2)
		assert.Equal(t, "acc-cash", lines[0].AccountID())
		assert.Equal(t, accounting.SideCredit, lines[0].Side())
		assert.Equal(t, "acc-exp", lines[1].AccountID())
		assert.Equal(t, accounting.SideDebit, lines[1].Side())
		assert.True(t, res.Reversal.TotalDebit().Equal(decimal.NewFromInt(120)))

		balances := env.ledger.balances()
		assert.True(t, balances["acc-cash"].IsZero())
		assert.True(t, balances["acc-exp"].IsZero())
		assert.NotContains(t, balances, "acc-rev")
	})

	t.Run("reversal records the approval bypass", func(t *testing.T) {
		env := newTestEnv(t, accounting.ApprovalPolicyConfig{FinancialApprovalEnabled: true, FAApplyMode: accounting.FAApplyAll})
		v, err := env.svc.Create(ctx, env.actor, receiptCommand("100"))
		require.NoError(t, err)
		_, err = env.svc.Submit(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		_, err = env.svc.Approve(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		original, err := env.svc.Post(ctx, env.actor, v.GetID())
		require.NoError(t, err)
		assert.False(t, original.Metadata().ApprovalBypassed)

		res, err := env.svc.ReverseAndReplace(ctx, env.actor, ReverseCommand{VoucherID: v.GetID()})
		require.NoError(t, err)
		assert.True(t, res.Reversal.IsPosted())
		assert.True(t, res.Reversal.Metadata().ApprovalBypassed)
		assert.Equal(t, env.actor.UserID, *res.Reversal.ApprovedBy())
		env.events.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			for _, e := range events {
				if approved, ok := e.(*accounting.VoucherApprovedEvent); ok && approved.GatesBypassed {
					return true
				}
			}
			return false
		}))
	})

	t.Run("unposted voucher cannot be reversed", func(t *testing.T) {
		env := newTestEnv(t, accounting.DefaultApprovalPolicyConfig())
		v := createApproved(t, env, receiptCommand("100"))
		_, err := env.svc.ReverseAndReplace(ctx, env.actor, ReverseCommand{VoucherID: v.GetID()})
		assertDomainCode(t, err, accounting.CodeNotPosted)
	})
}
