package accounting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/shared/valueobject"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Exchange rate permissions
const (
	PermissionRateView   = "accounting.exchange_rate.view"
	PermissionRateManage = "accounting.exchange_rate.manage"
)

// ExchangeRateService resolves and maintains company exchange rates
type ExchangeRateService struct {
	rates       accounting.ExchangeRateRepository
	permissions accounting.PermissionChecker
	logger      *zap.Logger
	now         func() time.Time
}

// NewExchangeRateService creates a new ExchangeRateService
func NewExchangeRateService(
	rates accounting.ExchangeRateRepository,
	permissions accounting.PermissionChecker,
	logger *zap.Logger,
) *ExchangeRateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExchangeRateService{
		rates:       rates,
		permissions: permissions,
		logger:      logger,
		now:         time.Now,
	}
}

// SuggestRate resolves the from→to rate for date.
// Resolution order: identity, exact date, most recent before date, inverse of the opposite pair.
func (s *ExchangeRateService) SuggestRate(ctx context.Context, companyID uuid.UUID, from, to, date string) (accounting.RateSuggestion, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "exchange_rate", "suggest")
	defer span.End()

	fromCur, err := valueobject.NewCurrency(from)
	if err != nil {
		return accounting.RateSuggestion{}, shared.NewValidationError(accounting.CodeInvalidCurrency, err.Error())
	}
	toCur, err := valueobject.NewCurrency(to)
	if err != nil {
		return accounting.RateSuggestion{}, shared.NewValidationError(accounting.CodeInvalidCurrency, err.Error())
	}
	if strings.TrimSpace(date) == "" {
		date = accounting.DateOf(s.now())
	}
	day, err := accounting.NormalizeDate(date)
	if err != nil {
		return accounting.RateSuggestion{}, err
	}

	suggestion := accounting.RateSuggestion{From: fromCur.String(), To: toCur.String(), Date: day}
	telemetry.SetAttributes(span, "from", suggestion.From, "to", suggestion.To, "date", day)

	if fromCur == toCur {
		suggestion.Rate = decimal.NewFromInt(1)
		suggestion.Source = accounting.RateSourceIdentity
		return suggestion, nil
	}

	exact, err := s.rates.GetRateOnDate(ctx, companyID, suggestion.From, suggestion.To, day)
	if err != nil {
		telemetry.RecordError(span, err)
		return accounting.RateSuggestion{}, fmt.Errorf("failed to load exchange rate: %w", err)
	}
	if exact != nil {
		return s.found(suggestion, exact.Rate, exact.Date, accounting.RateSourceExactDate), nil
	}

	recent, err := s.rates.GetMostRecentRateBeforeDate(ctx, companyID, suggestion.From, suggestion.To, day)
	if err != nil {
		telemetry.RecordError(span, err)
		return accounting.RateSuggestion{}, fmt.Errorf("failed to load exchange rate: %w", err)
	}
	if recent != nil {
		return s.found(suggestion, recent.Rate, recent.Date, accounting.RateSourceMostRecent), nil
	}

	inverse, err := s.rates.GetMostRecentRateBeforeDate(ctx, companyID, suggestion.To, suggestion.From, day)
	if err != nil {
		telemetry.RecordError(span, err)
		return accounting.RateSuggestion{}, fmt.Errorf("failed to load exchange rate: %w", err)
	}
	if inverse != nil && inverse.Rate.IsPositive() {
		rate := decimal.NewFromInt(1).DivRound(inverse.Rate, valueobject.RatePrecision+2)
		return s.found(suggestion, rate, inverse.Date, accounting.RateSourceInverse), nil
	}

	suggestion.Source = accounting.RateSourceNotFound
	return suggestion, nil
}

func (s *ExchangeRateService) found(sg accounting.RateSuggestion, rate decimal.Decimal, rateDate string, source accounting.RateSource) accounting.RateSuggestion {
	sg.Rate = valueobject.RoundRate(rate)
	sg.RateDate = rateDate
	sg.Source = source
	return sg
}

// ResolveRate returns the from→to rate for date or EXCHANGE_RATE_NOT_FOUND
func (s *ExchangeRateService) ResolveRate(ctx context.Context, companyID uuid.UUID, from, to, date string) (decimal.Decimal, error) {
	sg, err := s.SuggestRate(ctx, companyID, from, to, date)
	if err != nil {
		return decimal.Zero, err
	}
	if !sg.Found() {
		return decimal.Zero, shared.NewNotFoundError(accounting.CodeExchangeRateNotFound,
			fmt.Sprintf("No exchange rate found for %s/%s on or before %s", sg.From, sg.To, sg.Date))
	}
	return sg.Rate, nil
}

// Suggest checks the view permission and resolves a rate
func (s *ExchangeRateService) Suggest(ctx context.Context, actor Actor, from, to, date string) (accounting.RateSuggestion, error) {
	if err := s.permissions.AssertOrThrow(ctx, actor.UserID, actor.CompanyID, PermissionRateView); err != nil {
		return accounting.RateSuggestion{}, err
	}
	return s.SuggestRate(ctx, actor.CompanyID, from, to, date)
}

// RecentRates lists the latest recorded rates for a pair
func (s *ExchangeRateService) RecentRates(ctx context.Context, actor Actor, from, to string, limit int) ([]accounting.ExchangeRate, error) {
	if err := s.permissions.AssertOrThrow(ctx, actor.UserID, actor.CompanyID, PermissionRateView); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	fromCur, err := valueobject.NewCurrency(from)
	if err != nil {
		return nil, shared.NewValidationError(accounting.CodeInvalidCurrency, err.Error())
	}
	toCur, err := valueobject.NewCurrency(to)
	if err != nil {
		return nil, shared.NewValidationError(accounting.CodeInvalidCurrency, err.Error())
	}
	rates, err := s.rates.GetRecentRates(ctx, actor.CompanyID, fromCur.String(), toCur.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchange rates: %w", err)
	}
	return rates, nil
}

// RecordRateCommand records a manual exchange rate
type RecordRateCommand struct {
	From   string
	To     string
	Rate   decimal.Decimal
	Date   string
	Source string
}

// RecordRate stores a new exchange rate
func (s *ExchangeRateService) RecordRate(ctx context.Context, actor Actor, cmd RecordRateCommand) (*accounting.ExchangeRate, error) {
	if err := s.permissions.AssertOrThrow(ctx, actor.UserID, actor.CompanyID, PermissionRateManage); err != nil {
		return nil, err
	}
	rate, err := accounting.NewExchangeRate(actor.CompanyID, cmd.From, cmd.To, cmd.Rate, cmd.Date, cmd.Source, actor.UserID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.rates.Save(ctx, rate); err != nil {
		return nil, fmt.Errorf("failed to save exchange rate: %w", err)
	}
	s.logger.Info("Exchange rate recorded",
		zap.String("company_id", actor.CompanyID.String()),
		zap.String("pair", rate.FromCurrency+"/"+rate.ToCurrency),
		zap.String("date", rate.Date),
		zap.String("rate", rate.Rate.String()))
	return rate, nil
}

// DeleteRate removes a recorded exchange rate
func (s *ExchangeRateService) DeleteRate(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.permissions.AssertOrThrow(ctx, actor.UserID, actor.CompanyID, PermissionRateManage); err != nil {
		return err
	}
	if err := s.rates.Delete(ctx, actor.CompanyID, id); err != nil {
		return fmt.Errorf("failed to delete exchange rate: %w", err)
	}
	return nil
}
