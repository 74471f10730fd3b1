package shared

import (
	"time"

	"github.com/google/uuid"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	GetDomainEvents() []DomainEvent
}

// EventLog is an append-only list of pending domain events.
// Appending never mutates the receiver, so it is safe to share between immutable aggregate versions.
type EventLog struct {
	events []DomainEvent
}

// Append returns a new log with the events added
func (l EventLog) Append(events ...DomainEvent) EventLog {
	next := make([]DomainEvent, 0, len(l.events)+len(events))
	next = append(next, l.events...)
	next = append(next, events...)
	return EventLog{events: next}
}

// Events returns a copy of the pending events
func (l EventLog) Events() []DomainEvent {
	out := make([]DomainEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of pending events
func (l EventLog) Len() int {
	return len(l.events)
}

// TenantAggregate holds the identity and audit fields shared by tenant-scoped aggregates.
// It is a plain value: aggregates copy it when they rebuild.
type TenantAggregate struct {
	id        uuid.UUID
	tenantID  uuid.UUID
	version   int
	persisted int
	createdAt time.Time
	updatedAt time.Time
}

// NewTenantAggregate creates identity for a new tenant-scoped aggregate
func NewTenantAggregate(tenantID uuid.UUID, now time.Time) TenantAggregate {
	return TenantAggregate{
		id:        uuid.New(),
		tenantID:  tenantID,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreTenantAggregate rebuilds identity from persisted state
func RestoreTenantAggregate(id, tenantID uuid.UUID, version int, createdAt, updatedAt time.Time) TenantAggregate {
	return TenantAggregate{
		id:        id,
		tenantID:  tenantID,
		version:   version,
		persisted: version,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// Touched returns a copy with the version bumped and updatedAt set
func (a TenantAggregate) Touched(at time.Time) TenantAggregate {
	a.version++
	a.updatedAt = at
	return a
}

// GetID returns the aggregate ID
func (a TenantAggregate) GetID() uuid.UUID { return a.id }

// GetTenantID returns the owning tenant (company)
func (a TenantAggregate) GetTenantID() uuid.UUID { return a.tenantID }

// GetVersion returns the aggregate version for optimistic locking
func (a TenantAggregate) GetVersion() int { return a.version }

// PersistedVersion returns the version this aggregate had when it was loaded. Zero for new aggregates.
func (a TenantAggregate) PersistedVersion() int { return a.persisted }

// IsNew reports whether the aggregate has never been stored
func (a TenantAggregate) IsNew() bool { return a.persisted == 0 }

// GetCreatedAt returns the creation timestamp
func (a TenantAggregate) GetCreatedAt() time.Time { return a.createdAt }

// GetUpdatedAt returns the last update timestamp
func (a TenantAggregate) GetUpdatedAt() time.Time { return a.updatedAt }
