package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/interfaces/http/handler"
)

// VoucherRoutes exposes the voucher lifecycle. Creation and posting honour Idempotency-Key.
type VoucherRoutes struct {
	Handler     *handler.VoucherHandler
	Idempotency gin.HandlerFunc
}

// RegisterRoutes implements RouteRegistrar
func (r VoucherRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	idem := r.Idempotency
	if idem == nil {
		idem = func(c *gin.Context) { c.Next() }
	}
	h := r.Handler

	g := rg.Group("/vouchers")
	g.POST("", idem, h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/submit", h.Submit)
	g.POST("/:id/approve", h.Approve)
	g.POST("/:id/confirm-custody", h.ConfirmCustody)
	g.POST("/:id/reject", h.Reject)
	g.POST("/:id/cancel", h.Cancel)
	g.POST("/:id/post", idem, h.Post)
	g.POST("/:id/reverse", idem, h.Reverse)
}

// ExchangeRateRoutes exposes rate suggestion and manual rate maintenance
type ExchangeRateRoutes struct {
	Handler *handler.ExchangeRateHandler
}

// RegisterRoutes implements RouteRegistrar
func (r ExchangeRateRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/exchange-rates")
	g.GET("/suggest", r.Handler.Suggest)
	g.GET("/recent", r.Handler.Recent)
	g.POST("", r.Handler.Record)
	g.DELETE("/:id", r.Handler.Delete)
}

// RegisterSystemRoutes mounts the unauthenticated health endpoint on the engine root
func RegisterSystemRoutes(engine *gin.Engine, h *handler.SystemHandler) {
	engine.GET("/health", h.Health)
	engine.HEAD("/health", h.Health)
}
