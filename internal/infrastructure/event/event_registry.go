package event

import "github.com/ledger/backend/internal/domain/accounting"

// VoucherEventTypes lists every event raised by the voucher lifecycle
var VoucherEventTypes = []string{
	accounting.EventTypeVoucherCreated,
	accounting.EventTypeVoucherUpdated,
	accounting.EventTypeVoucherSubmitted,
	accounting.EventTypeCustodyConfirmed,
	accounting.EventTypeVoucherApproved,
	accounting.EventTypeVoucherRejected,
	accounting.EventTypeVoucherCancelled,
	accounting.EventTypeVoucherPosted,
	accounting.EventTypeVoucherReversed,
	accounting.EventTypeVoucherDeleted,
}

// RegisterVoucherEvents registers the voucher event payloads with the serializer
func RegisterVoucherEvents(serializer *EventSerializer) {
	serializer.Register(accounting.EventTypeVoucherCreated, &accounting.VoucherCreatedEvent{})
	serializer.Register(accounting.EventTypeVoucherUpdated, &accounting.VoucherUpdatedEvent{})
	serializer.Register(accounting.EventTypeVoucherSubmitted, &accounting.VoucherSubmittedEvent{})
	serializer.Register(accounting.EventTypeCustodyConfirmed, &accounting.CustodyConfirmedEvent{})
	serializer.Register(accounting.EventTypeVoucherApproved, &accounting.VoucherApprovedEvent{})
	serializer.Register(accounting.EventTypeVoucherRejected, &accounting.VoucherRejectedEvent{})
	serializer.Register(accounting.EventTypeVoucherCancelled, &accounting.VoucherCancelledEvent{})
	serializer.Register(accounting.EventTypeVoucherPosted, &accounting.VoucherPostedEvent{})
	serializer.Register(accounting.EventTypeVoucherReversed, &accounting.VoucherReversedEvent{})
	serializer.Register(accounting.EventTypeVoucherDeleted, &accounting.VoucherDeletedEvent{})
}
