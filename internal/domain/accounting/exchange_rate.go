package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// RateSource tells how a suggested exchange rate was resolved
type RateSource string

const (
	RateSourceIdentity   RateSource = "IDENTITY"
	RateSourceExactDate  RateSource = "EXACT_DATE"
	RateSourceMostRecent RateSource = "MOST_RECENT"
	RateSourceInverse    RateSource = "INVERSE"
	RateSourceNotFound   RateSource = "NOT_FOUND"
)

// ExchangeRate is a company-recorded conversion rate between two currencies on a date
type ExchangeRate struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	FromCurrency string
	ToCurrency   string
	Rate         decimal.Decimal
	Date         string
	Source       string
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
}

// NewExchangeRate validates and creates an exchange rate record
func NewExchangeRate(companyID uuid.UUID, from, to string, rate decimal.Decimal, date, source string, by uuid.UUID, now time.Time) (*ExchangeRate, error) {
	fromCur, err := valueobject.NewCurrency(from)
	if err != nil {
		return nil, shared.NewValidationError(CodeInvalidCurrency, err.Error())
	}
	toCur, err := valueobject.NewCurrency(to)
	if err != nil {
		return nil, shared.NewValidationError(CodeInvalidCurrency, err.Error())
	}
	if fromCur == toCur {
		return nil, shared.NewValidationError(CodeInvalidExchangeRate, "Exchange rate currencies must differ")
	}
	if !rate.IsPositive() {
		return nil, shared.NewValidationError(CodeInvalidExchangeRate, "Exchange rate must be positive")
	}
	d, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = "manual"
	}
	return &ExchangeRate{
		ID:           uuid.New(),
		CompanyID:    companyID,
		FromCurrency: fromCur.String(),
		ToCurrency:   toCur.String(),
		Rate:         valueobject.RoundRate(rate),
		Date:         d,
		Source:       source,
		CreatedBy:    by,
		CreatedAt:    now,
	}, nil
}

// RateSuggestion is the outcome of resolving a rate for a currency pair and date
type RateSuggestion struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Date   string          `json:"date"`
	Rate   decimal.Decimal `json:"rate"`
	Source RateSource      `json:"source"`
	// RateDate is the date of the stored rate used, empty for identity
	RateDate string `json:"rateDate,omitempty"`
}

// Found reports whether a rate was resolved
func (s RateSuggestion) Found() bool {
	return s.Source != RateSourceNotFound
}
