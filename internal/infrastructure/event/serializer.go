package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/shared"
)

// Envelope is the wire form of a domain event: routing metadata plus the raw payload
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	CompanyID     uuid.UUID       `json:"company_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// EventSerializer converts domain events to and from JSON using a type registry
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type
}

// NewEventSerializer creates an empty serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{registry: make(map[string]reflect.Type)}
}

// Register binds eventType to the concrete type of prototype
func (s *EventSerializer) Register(eventType string, prototype shared.DomainEvent) {
	t := reflect.TypeOf(prototype)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry[eventType] = t
}

// Serialize encodes the event payload
func (s *EventSerializer) Serialize(evt shared.DomainEvent) ([]byte, error) {
	return json.Marshal(evt)
}

// Wrap builds an Envelope around the serialized event
func (s *EventSerializer) Wrap(evt shared.DomainEvent) (Envelope, error) {
	payload, err := s.Serialize(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("serialize %s: %w", evt.EventType(), err)
	}
	return Envelope{
		EventID:       evt.EventID(),
		EventType:     evt.EventType(),
		AggregateType: evt.AggregateType(),
		AggregateID:   evt.AggregateID(),
		CompanyID:     evt.CompanyID(),
		OccurredAt:    evt.OccurredAt(),
		Payload:       payload,
	}, nil
}

// Deserialize decodes data into a fresh instance of the type registered for eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.registry[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", eventType, err)
	}
	evt, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("registered type for %s does not implement DomainEvent", eventType)
	}
	return evt, nil
}

// Unwrap decodes the payload of an Envelope
func (s *EventSerializer) Unwrap(env Envelope) (shared.DomainEvent, error) {
	return s.Deserialize(env.EventType, env.Payload)
}

// IsRegistered reports whether eventType has a registered payload type
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}

// RegisteredTypes returns the registered event types in sorted order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
