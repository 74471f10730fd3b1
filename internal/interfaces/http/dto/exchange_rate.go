package dto

import (
	"time"

	"github.com/google/uuid"
	appacc "github.com/ledger/backend/internal/application/accounting"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/shopspring/decimal"
)

// SuggestRateRequest is the query of GET /exchange-rates/suggest
type SuggestRateRequest struct {
	From string `form:"from" binding:"required,len=3"`
	To   string `form:"to" binding:"required,len=3"`
	Date string `form:"date" binding:"required,datetime=2006-01-02"`
}

// RecentRatesRequest is the query of GET /exchange-rates/recent
type RecentRatesRequest struct {
	From  string `form:"from" binding:"required,len=3"`
	To    string `form:"to" binding:"required,len=3"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// RecordRateRequest is the body of POST /exchange-rates
type RecordRateRequest struct {
	From   string          `json:"from" binding:"required,len=3"`
	To     string          `json:"to" binding:"required,len=3"`
	Rate   decimal.Decimal `json:"rate"`
	Date   string          `json:"date" binding:"required,datetime=2006-01-02"`
	Source string          `json:"source" binding:"max=50"`
}

// ToCommand converts the request into a record command
func (r RecordRateRequest) ToCommand() appacc.RecordRateCommand {
	return appacc.RecordRateCommand{From: r.From, To: r.To, Rate: r.Rate, Date: r.Date, Source: r.Source}
}

// ExchangeRateResponse is the API representation of a stored rate
type ExchangeRateResponse struct {
	ID           uuid.UUID       `json:"id"`
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
	Rate         decimal.Decimal `json:"rate"`
	Date         string          `json:"date"`
	Source       string          `json:"source"`
	CreatedBy    uuid.UUID       `json:"createdBy"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// NewExchangeRateResponse maps a stored rate
func NewExchangeRateResponse(r *accounting.ExchangeRate) ExchangeRateResponse {
	return ExchangeRateResponse{
		ID:           r.ID,
		FromCurrency: r.FromCurrency,
		ToCurrency:   r.ToCurrency,
		Rate:         r.Rate,
		Date:         r.Date,
		Source:       r.Source,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
	}
}

// NewExchangeRateResponses maps a list of stored rates
func NewExchangeRateResponses(rates []accounting.ExchangeRate) []ExchangeRateResponse {
	out := make([]ExchangeRateResponse, len(rates))
	for i := range rates {
		out[i] = NewExchangeRateResponse(&rates[i])
	}
	return out
}
