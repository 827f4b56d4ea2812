package models

import (
	"time"

	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides the identity and timestamp columns shared by all tables.
// It maps to shared.Entity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToEntity converts BaseModel to a domain Entity
func (m *BaseModel) ToEntity() shared.Entity {
	return shared.Entity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromEntity populates BaseModel from a domain Entity
func (m *BaseModel) FromEntity(e shared.Entity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel adds the optimistic concurrency version of aggregate roots
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// ToAggregate converts AggregateModel to a domain Aggregate without events
func (m *AggregateModel) ToAggregate() shared.Aggregate {
	return shared.Aggregate{
		Entity:  m.ToEntity(),
		Version: m.Version,
	}
}

// FromAggregate populates AggregateModel from a domain Aggregate
func (m *AggregateModel) FromAggregate(a shared.Aggregate) {
	m.FromEntity(a.Entity)
	m.Version = a.Version
}
