package accounting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockExchangeRateRepository is a mock implementation of ExchangeRateRepository
type MockExchangeRateRepository struct {
	mock.Mock
}

func (m *MockExchangeRateRepository) GetRecentRates(ctx context.Context, companyID uuid.UUID, from, to string, limit int) ([]accounting.ExchangeRate, error) {
	args := m.Called(ctx, companyID, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]accounting.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) GetMostRecentRateBeforeDate(ctx context.Context, companyID uuid.UUID, from, to, date string) (*accounting.ExchangeRate, error) {
	args := m.Called(ctx, companyID, from, to, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) GetRateOnDate(ctx context.Context, companyID uuid.UUID, from, to, date string) (*accounting.ExchangeRate, error) {
	args := m.Called(ctx, companyID, from, to, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) Save(ctx context.Context, r *accounting.ExchangeRate) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockExchangeRateRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	args := m.Called(ctx, companyID, id)
	return args.Error(0)
}

func storedRate(from, to, rate, date string) *accounting.ExchangeRate {
	return &accounting.ExchangeRate{
		ID:           uuid.New(),
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         decimal.RequireFromString(rate),
		Date:         date,
		Source:       "manual",
	}
}

func newRateService(t *testing.T) (*ExchangeRateService, *MockExchangeRateRepository, *MockPermissionChecker) {
	t.Helper()
	repo := new(MockExchangeRateRepository)
	perms := new(MockPermissionChecker)
	svc := NewExchangeRateService(repo, perms, nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC) }
	return svc, repo, perms
}

func TestExchangeRateService_SuggestRate(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("same currency is identity", func(t *testing.T) {
		svc, repo, _ := newRateService(t)
		sg, err := svc.SuggestRate(ctx, companyID, "usd", "USD", "2025-03-01")
		require.NoError(t, err)
		assert.Equal(t, accounting.RateSourceIdentity, sg.Source)
		assert.True(t, sg.Rate.Equal(decimal.NewFromInt(1)))
		repo.AssertNotCalled(t, "GetRateOnDate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("exact date wins", func(t *testing.T) {
		svc, repo, _ := newRateService(t)
		repo.On("GetRateOnDate", ctx, companyID, "EUR", "USD", "2025-03-01").
			Return(storedRate("EUR", "USD", "1.0825", "2025-03-01"), nil)

		sg, err := svc.SuggestRate(ctx, companyID, "EUR", "USD", "2025-03-01")
		require.NoError(t, err)
		assert.Equal(t, accounting.RateSourceExactDate, sg.Source)
		assert.Equal(t, "1.0825", sg.Rate.String())
		assert.Equal(t, "2025-03-01", sg.RateDate)
		repo.AssertExpectations(t)
	})

	t.Run("falls back to most recent earlier rate", func(t *testing.T) {
		svc, repo, _ := newRateService(t)
		repo.On("GetRateOnDate", ctx, companyID, "EUR", "USD", "2025-03-10").Return(nil, nil)
		repo.On("GetMostRecentRateBeforeDate", ctx, companyID, "EUR", "USD", "2025-03-10").
			Return(storedRate("EUR", "USD", "1.08", "2025-03-07"), nil)

		sg, err := svc.SuggestRate(ctx, companyID, "EUR", "USD", "2025-03-10")
		require.NoError(t, err)
		assert.Equal(t, accounting.RateSourceMostRecent, sg.Source)
		assert.Equal(t, "2025-03-07", sg.RateDate)
		assert.True(t, sg.Found())
	})

	t.Run("inverts the opposite pair", func(t *testing.T) {
		svc, repo, _ := newRateService(t)
		repo.On("GetRateOnDate", ctx, companyID, "USD", "EUR", "2025-03-10").Return(nil, nil)
		repo.On("GetMostRecentRateBeforeDate", ctx, companyID, "USD", "EUR", "2025-03-10").Return(nil, nil)
		repo.On("GetMostRecentRateBeforeDate", ctx, companyID, "EUR", "USD", "2025-03-10").
			Return(storedRate("EUR", "USD", "1.08", "2025-03-07"), nil)

		sg, err := svc.SuggestRate(ctx, companyID, "USD", "EUR", "2025-03-10")
		require.NoError(t, err)
		assert.Equal(t, accounting.RateSourceInverse, sg.Source)
		assert.Equal(t, "0.925926", sg.Rate.String())
	})

	t.Run("not found", func(t *testing.T) {
		svc, repo, _ := newRateService(t)
		repo.On("GetRateOnDate", mock.Anything, companyID, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		repo.On("GetMostRecentRateBeforeDate", mock.Anything, companyID, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

		sg, err := svc.SuggestRate(ctx, companyID, "GBP", "USD", "")
		require.NoError(t, err)
		assert.Equal(t, accounting.RateSourceNotFound, sg.Source)
		assert.Equal(t, "2025-03-15", sg.Date)
		assert.False(t, sg.Found())

		_, err = svc.ResolveRate(ctx, companyID, "GBP", "USD", "")
		require.Error(t, err)
		assert.True(t, shared.IsCategory(err, shared.CategoryNotFound))
	})

	t.Run("repository errors are wrapped", func(t *testing.T) {
		svc, repo, _ := newRateService(t)
		repo.On("GetRateOnDate", mock.Anything, companyID, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("connection refused"))

		_, err := svc.SuggestRate(ctx, companyID, "EUR", "USD", "2025-03-01")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("invalid currency", func(t *testing.T) {
		svc, _, _ := newRateService(t)
		_, err := svc.SuggestRate(ctx, companyID, "EURO", "USD", "")
		require.Error(t, err)
		assert.True(t, shared.IsCategory(err, shared.CategoryValidation))
	})
}

func TestExchangeRateService_RecordRate(t *testing.T) {
	ctx := context.Background()
	actor := Actor{CompanyID: uuid.New(), UserID: uuid.New()}

	t.Run("stores rounded rate", func(t *testing.T) {
		svc, repo, perms := newRateService(t)
		perms.On("AssertOrThrow", ctx, actor.UserID, actor.CompanyID, PermissionRateManage).Return(nil)
		repo.On("Save", ctx, mock.AnythingOfType("*accounting.ExchangeRate")).Return(nil)

		rate, err := svc.RecordRate(ctx, actor, RecordRateCommand{
			From: "EUR", To: "USD", Rate: decimal.RequireFromString("1.08254999"), Date: "2025-03-01",
		})
		require.NoError(t, err)
		assert.Equal(t, "1.08255", rate.Rate.String())
		assert.Equal(t, actor.CompanyID, rate.CompanyID)
		repo.AssertExpectations(t)
	})

	t.Run("permission denied", func(t *testing.T) {
		svc, repo, perms := newRateService(t)
		perms.On("AssertOrThrow", ctx, actor.UserID, actor.CompanyID, PermissionRateManage).
			Return(shared.NewAuthError("PERMISSION_DENIED", "denied"))

		_, err := svc.RecordRate(ctx, actor, RecordRateCommand{From: "EUR", To: "USD", Rate: decimal.NewFromInt(1), Date: "2025-03-01"})
		require.Error(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("same currency pair is rejected", func(t *testing.T) {
		svc, repo, perms := newRateService(t)
		perms.On("AssertOrThrow", ctx, actor.UserID, actor.CompanyID, PermissionRateManage).Return(nil)

		_, err := svc.RecordRate(ctx, actor, RecordRateCommand{From: "USD", To: "USD", Rate: decimal.NewFromInt(1), Date: "2025-03-01"})
		require.Error(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestExchangeRateService_RecentRates(t *testing.T) {
	ctx := context.Background()
	actor := Actor{CompanyID: uuid.New(), UserID: uuid.New()}
	svc, repo, perms := newRateService(t)
	perms.On("AssertOrThrow", ctx, actor.UserID, actor.CompanyID, PermissionRateView).Return(nil)
	repo.On("GetRecentRates", ctx, actor.CompanyID, "EUR", "USD", 10).
		Return([]accounting.ExchangeRate{*storedRate("EUR", "USD", "1.08", "2025-03-07")}, nil)

	rates, err := svc.RecentRates(ctx, actor, "eur", "usd", 500)
	require.NoError(t, err)
	assert.Len(t, rates, 1)
	repo.AssertExpectations(t)
}
