package event

import (
	"context"
	"fmt"

	"github.com/ledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PayloadEncoder serializes a domain event payload
type PayloadEncoder interface {
	Serialize(evt shared.DomainEvent) ([]byte, error)
}

// VoucherAuditHandler writes one structured audit record per voucher lifecycle event
type VoucherAuditHandler struct {
	encoder    PayloadEncoder
	logger     *zap.Logger
	eventTypes []string
}

// NewVoucherAuditHandler creates an audit handler for eventTypes
func NewVoucherAuditHandler(encoder PayloadEncoder, logger *zap.Logger, eventTypes ...string) *VoucherAuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoucherAuditHandler{
		encoder:    encoder,
		logger:     logger.Named("voucher_audit"),
		eventTypes: eventTypes,
	}
}

// Handle logs the event with its encoded payload
func (h *VoucherAuditHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	payload, err := h.encoder.Serialize(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.EventType(), err)
	}

	h.logger.Info("Voucher audit",
		zap.String("event_id", evt.EventID().String()),
		zap.String("event_type", evt.EventType()),
		zap.String("voucher_id", evt.AggregateID().String()),
		zap.String("company_id", evt.CompanyID().String()),
		zap.Time("occurred_at", evt.OccurredAt()),
		zap.String("payload", string(payload)),
	)
	return nil
}

// EventTypes implements shared.EventHandler
func (h *VoucherAuditHandler) EventTypes() []string {
	return h.eventTypes
}

var _ shared.EventHandler = (*VoucherAuditHandler)(nil)
