package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the identity and timestamp block shared by aggregates and their children
type Entity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEntity creates an entity with a generated ID
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps the update timestamp
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// Aggregate is embedded by aggregate roots. Version is the optimistic
// concurrency token; pending events are drained by the application layer
// after the unit of work commits.
type Aggregate struct {
	Entity
	Version int
	events  []DomainEvent
}

// NewAggregate creates a new aggregate at version 1
func NewAggregate() Aggregate {
	return Aggregate{
		Entity:  NewEntity(),
		Version: 1,
	}
}

// IncrementVersion increments the version number
func (a *Aggregate) IncrementVersion() {
	a.Version++
}

// RecordEvent queues a domain event for publication
func (a *Aggregate) RecordEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// PendingEvents returns the queued events without clearing them
func (a *Aggregate) PendingEvents() []DomainEvent {
	return a.events
}

// PullEvents returns the queued events and clears the queue
func (a *Aggregate) PullEvents() []DomainEvent {
	events := a.events
	a.events = nil
	return events
}
