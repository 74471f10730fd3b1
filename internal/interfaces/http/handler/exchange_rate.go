package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appacc "github.com/ledger/backend/internal/application/accounting"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/interfaces/http/dto"
)

// ExchangeRateUseCases is the exchange-rate application service as seen by the HTTP layer
type ExchangeRateUseCases interface {
	Suggest(ctx context.Context, actor appacc.Actor, from, to, date string) (accounting.RateSuggestion, error)
	RecentRates(ctx context.Context, actor appacc.Actor, from, to string, limit int) ([]accounting.ExchangeRate, error)
	RecordRate(ctx context.Context, actor appacc.Actor, cmd appacc.RecordRateCommand) (*accounting.ExchangeRate, error)
	DeleteRate(ctx context.Context, actor appacc.Actor, id uuid.UUID) error
}

var _ ExchangeRateUseCases = (*appacc.ExchangeRateService)(nil)

const defaultRecentRatesLimit = 10

// ExchangeRateHandler serves the exchange-rate endpoints
type ExchangeRateHandler struct {
	BaseHandler
	rates ExchangeRateUseCases
}

// NewExchangeRateHandler creates an ExchangeRateHandler
func NewExchangeRateHandler(rates ExchangeRateUseCases) *ExchangeRateHandler {
	return &ExchangeRateHandler{rates: rates}
}

// Suggest handles GET /exchange-rates/suggest
func (h *ExchangeRateHandler) Suggest(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.SuggestRateRequest
	if !h.bindQuery(c, &req) {
		return
	}

	suggestion, err := h.rates.Suggest(c.Request.Context(), actor, req.From, req.To, req.Date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, suggestion)
}

// Recent handles GET /exchange-rates/recent
func (h *ExchangeRateHandler) Recent(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.RecentRatesRequest
	if !h.bindQuery(c, &req) {
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultRecentRatesLimit
	}

	rates, err := h.rates.RecentRates(c.Request.Context(), actor, req.From, req.To, req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewExchangeRateResponses(rates))
}

// Record handles POST /exchange-rates
func (h *ExchangeRateHandler) Record(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.RecordRateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	rate, err := h.rates.RecordRate(c.Request.Context(), actor, req.ToCommand())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewExchangeRateResponse(rate))
}

// Delete handles DELETE /exchange-rates/:id
func (h *ExchangeRateHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.rates.DeleteRate(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
