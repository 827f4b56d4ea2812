package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// EventMeta carries the fields every domain event has. Concrete events embed it.
type EventMeta struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	AggID     uuid.UUID `json:"aggregate_id"`
	AggType   string    `json:"aggregate_type"`
}

// NewEventMeta stamps a new event of eventType for the given aggregate
func NewEventMeta(eventType, aggType string, aggID uuid.UUID) EventMeta {
	return EventMeta{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		AggID:     aggID,
		AggType:   aggType,
	}
}

// EventID returns the unique event identifier
func (e EventMeta) EventID() uuid.UUID { return e.ID }

// EventType returns the type of the event
func (e EventMeta) EventType() string { return e.Type }

// OccurredAt returns when the event occurred
func (e EventMeta) OccurredAt() time.Time { return e.Timestamp }

// AggregateID returns the ID of the aggregate that produced this event
func (e EventMeta) AggregateID() uuid.UUID { return e.AggID }

// AggregateType returns the type of the aggregate
func (e EventMeta) AggregateType() string { return e.AggType }
