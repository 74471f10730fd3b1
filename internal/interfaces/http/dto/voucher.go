package dto

import (
	"github.com/google/uuid"
	appacc "github.com/ledger/backend/internal/application/accounting"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/shopspring/decimal"
)

// VoucherLineRequest is one line of a voucher request body
type VoucherLineRequest struct {
	AccountID    string            `json:"accountId" binding:"required,max=64"`
	Side         string            `json:"side" binding:"required,oneof=Debit Credit"`
	Amount       decimal.Decimal   `json:"amount"`
	Currency     string            `json:"currency" binding:"omitempty,len=3"`
	Parity       decimal.Decimal   `json:"parity"`
	CostCenterID string            `json:"costCenterId" binding:"omitempty,max=64"`
	Notes        string            `json:"notes" binding:"max=500"`
	Metadata     map[string]string `json:"metadata"`
}

// CreateVoucherRequest is the body of POST /vouchers
type CreateVoucherRequest struct {
	Type            string               `json:"type" binding:"required,oneof=payment receipt journal_entry opening_balance"`
	Date            string               `json:"date" binding:"required,datetime=2006-01-02"`
	Description     string               `json:"description" binding:"max=1000"`
	Currency        string               `json:"currency" binding:"omitempty,len=3"`
	ExchangeRate    decimal.Decimal      `json:"exchangeRate"`
	Reference       string               `json:"reference" binding:"max=100"`
	Lines           []VoucherLineRequest `json:"lines" binding:"required,min=2,dive"`
	Submit          bool                 `json:"submit"`
	PostImmediately bool                 `json:"postImmediately"`
	Extensions      map[string]any       `json:"extensions"`
}

// ToCommand converts the request into a create command
func (r CreateVoucherRequest) ToCommand() appacc.CreateVoucherCommand {
	return appacc.CreateVoucherCommand{
		Type:            accounting.VoucherType(r.Type),
		Date:            r.Date,
		Description:     r.Description,
		Currency:        r.Currency,
		ExchangeRate:    r.ExchangeRate,
		Reference:       r.Reference,
		Lines:           toLineCommands(r.Lines),
		Submit:          r.Submit,
		PostImmediately: r.PostImmediately,
		Metadata:        accounting.VoucherMetadata{Extensions: r.Extensions},
	}
}

// UpdateVoucherRequest is the body of PUT /vouchers/:id
type UpdateVoucherRequest struct {
	Date         string               `json:"date" binding:"required,datetime=2006-01-02"`
	Description  string               `json:"description" binding:"max=1000"`
	Currency     string               `json:"currency" binding:"omitempty,len=3"`
	ExchangeRate decimal.Decimal      `json:"exchangeRate"`
	Reference    string               `json:"reference" binding:"max=100"`
	Lines        []VoucherLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// ToCommand converts the request into an update command for voucher id
func (r UpdateVoucherRequest) ToCommand(id uuid.UUID) appacc.UpdateVoucherCommand {
	return appacc.UpdateVoucherCommand{
		VoucherID:    id,
		Date:         r.Date,
		Description:  r.Description,
		Currency:     r.Currency,
		ExchangeRate: r.ExchangeRate,
		Reference:    r.Reference,
		Lines:        toLineCommands(r.Lines),
	}
}

// RejectVoucherRequest is the body of POST /vouchers/:id/reject
type RejectVoucherRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ReverseVoucherRequest is the body of POST /vouchers/:id/reverse.
// ReversalDate is a YYYY-MM-DD date or "today"; empty keeps the original date.
type ReverseVoucherRequest struct {
	ReversalDate    string                `json:"reversalDate" binding:"omitempty,max=10"`
	Reason          string                `json:"reason" binding:"max=500"`
	Replacement     *CreateVoucherRequest `json:"replacement"`
	PostReplacement bool                  `json:"postReplacement"`
}

// ToCommand converts the request into a reverse command for voucher id
func (r ReverseVoucherRequest) ToCommand(id uuid.UUID) appacc.ReverseCommand {
	cmd := appacc.ReverseCommand{
		VoucherID:       id,
		ReversalDate:    r.ReversalDate,
		Reason:          r.Reason,
		PostReplacement: r.PostReplacement,
	}
	if r.Replacement != nil {
		replacement := r.Replacement.ToCommand()
		cmd.Replacement = &replacement
	}
	return cmd
}

// ListVouchersRequest is the query of GET /vouchers
type ListVouchersRequest struct {
	Status   string `form:"status" binding:"omitempty,oneof=DRAFT PENDING APPROVED REJECTED CANCELLED"`
	Type     string `form:"type" binding:"omitempty,oneof=payment receipt journal_entry opening_balance reversal"`
	DateFrom string `form:"dateFrom" binding:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"dateTo" binding:"omitempty,datetime=2006-01-02"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"pageSize" binding:"omitempty,min=1,max=200"`
}

// ToQuery converts the request into a list query
func (r ListVouchersRequest) ToQuery() appacc.ListVouchersQuery {
	return appacc.ListVouchersQuery{
		Status:   accounting.VoucherStatus(r.Status),
		Type:     accounting.VoucherType(r.Type),
		DateFrom: r.DateFrom,
		DateTo:   r.DateTo,
		Page:     r.Page,
		PageSize: r.PageSize,
	}
}

// ReverseVoucherResponse is the outcome of a reverse-and-replace request
type ReverseVoucherResponse struct {
	Reversal          *appacc.VoucherResponse `json:"reversal,omitempty"`
	Replacement       *appacc.VoucherResponse `json:"replacement,omitempty"`
	CorrectionGroupID uuid.UUID               `json:"correctionGroupId"`
	AlreadyReversed   bool                    `json:"alreadyReversed"`
}

// NewReverseVoucherResponse maps a reverse result
func NewReverseVoucherResponse(res *appacc.ReverseResult) ReverseVoucherResponse {
	out := ReverseVoucherResponse{
		CorrectionGroupID: res.CorrectionGroupID,
		AlreadyReversed:   res.AlreadyReversed,
	}
	if res.Reversal != nil {
		r := appacc.NewVoucherResponse(res.Reversal)
		out.Reversal = &r
	}
	if res.Replacement != nil {
		r := appacc.NewVoucherResponse(res.Replacement)
		out.Replacement = &r
	}
	return out
}

func toLineCommands(lines []VoucherLineRequest) []appacc.LineCommand {
	out := make([]appacc.LineCommand, len(lines))
	for i, l := range lines {
		out[i] = appacc.LineCommand{
			AccountID:    l.AccountID,
			Side:         accounting.Side(l.Side),
			Amount:       l.Amount,
			Currency:     l.Currency,
			Parity:       l.Parity,
			CostCenterID: l.CostCenterID,
			Notes:        l.Notes,
			Metadata:     l.Metadata,
		}
	}
	return out
}
