package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appacc "github.com/ledger/backend/internal/application/accounting"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/interfaces/http/dto"
)

// VoucherUseCases is the voucher application service as seen by the HTTP layer
type VoucherUseCases interface {
	Create(ctx context.Context, actor appacc.Actor, cmd appacc.CreateVoucherCommand) (*accounting.Voucher, error)
	Update(ctx context.Context, actor appacc.Actor, cmd appacc.UpdateVoucherCommand) (*accounting.Voucher, error)
	Get(ctx context.Context, actor appacc.Actor, id uuid.UUID) (*accounting.Voucher, error)
	List(ctx context.Context, actor appacc.Actor, q appacc.ListVouchersQuery) (shared.Paginated[*accounting.Voucher], error)
	Delete(ctx context.Context, actor appacc.Actor, id uuid.UUID) error
	Submit(ctx context.Context, actor appacc.Actor, id uuid.UUID) (*accounting.Voucher, error)
	Approve(ctx context.Context, actor appacc.Actor, id uuid.UUID) (*accounting.Voucher, error)
	ConfirmCustody(ctx context.Context, actor appacc.Actor, id uuid.UUID) (*accounting.Voucher, error)
	Reject(ctx context.Context, actor appacc.Actor, id uuid.UUID, reason string) (*accounting.Voucher, error)
	Cancel(ctx context.Context, actor appacc.Actor, id uuid.UUID) (*accounting.Voucher, error)
	Post(ctx context.Context, actor appacc.Actor, id uuid.UUID) (*accounting.Voucher, error)
	ReverseAndReplace(ctx context.Context, actor appacc.Actor, cmd appacc.ReverseCommand) (*appacc.ReverseResult, error)
}

var _ VoucherUseCases = (*appacc.VoucherService)(nil)

// VoucherHandler serves the voucher endpoints
type VoucherHandler struct {
	BaseHandler
	vouchers VoucherUseCases
}

// NewVoucherHandler creates a VoucherHandler
func NewVoucherHandler(vouchers VoucherUseCases) *VoucherHandler {
	return &VoucherHandler{vouchers: vouchers}
}

// Create handles POST /vouchers
func (h *VoucherHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.CreateVoucherRequest
	if !h.bindJSON(c, &req) {
		return
	}

	v, err := h.vouchers.Create(c.Request.Context(), actor, req.ToCommand())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, appacc.NewVoucherResponse(v))
}

// List handles GET /vouchers
func (h *VoucherHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.ListVouchersRequest
	if !h.bindQuery(c, &req) {
		return
	}

	page, err := h.vouchers.List(c.Request.Context(), actor, req.ToQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessPage(c, appacc.NewVoucherResponses(page.Items), page.Total, page.Page, page.PageSize, page.TotalPages)
}

// Get handles GET /vouchers/:id
func (h *VoucherHandler) Get(c *gin.Context) {
	h.respond(c, h.vouchers.Get)
}

// Update handles PUT /vouchers/:id
func (h *VoucherHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req dto.UpdateVoucherRequest
	if !h.bindJSON(c, &req) {
		return
	}

	v, err := h.vouchers.Update(c.Request.Context(), actor, req.ToCommand(id))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appacc.NewVoucherResponse(v))
}

// Delete handles DELETE /vouchers/:id
func (h *VoucherHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.vouchers.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Submit handles POST /vouchers/:id/submit
func (h *VoucherHandler) Submit(c *gin.Context) { h.respond(c, h.vouchers.Submit) }

// Approve handles POST /vouchers/:id/approve
func (h *VoucherHandler) Approve(c *gin.Context) { h.respond(c, h.vouchers.Approve) }

// ConfirmCustody handles POST /vouchers/:id/confirm-custody
func (h *VoucherHandler) ConfirmCustody(c *gin.Context) { h.respond(c, h.vouchers.ConfirmCustody) }

// Cancel handles POST /vouchers/:id/cancel
func (h *VoucherHandler) Cancel(c *gin.Context) { h.respond(c, h.vouchers.Cancel) }

// Post handles POST /vouchers/:id/post
func (h *VoucherHandler) Post(c *gin.Context) { h.respond(c, h.vouchers.Post) }

// Reject handles POST /vouchers/:id/reject
func (h *VoucherHandler) Reject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req dto.RejectVoucherRequest
	if !h.bindJSON(c, &req) {
		return
	}

	v, err := h.vouchers.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appacc.NewVoucherResponse(v))
}

// Reverse handles POST /vouchers/:id/reverse. The body is optional.
func (h *VoucherHandler) Reverse(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req dto.ReverseVoucherRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	res, err := h.vouchers.ReverseAndReplace(c.Request.Context(), actor, req.ToCommand(id))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewReverseVoucherResponse(res))
}

// respond runs a single-voucher use case keyed by the :id path parameter
func (h *VoucherHandler) respond(c *gin.Context, op func(context.Context, appacc.Actor, uuid.UUID) (*accounting.Voucher, error)) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	v, err := op(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appacc.NewVoucherResponse(v))
}
