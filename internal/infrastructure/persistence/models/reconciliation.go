package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/google/uuid"
)

// ReconciliationModel is the persistence model for sales.Reconciliation.
// Pending holds the outstanding stock movements as JSON.
type ReconciliationModel struct {
	ID                uuid.UUID                  `gorm:"type:uuid;primary_key"`
	Operation         string                     `gorm:"type:varchar(50);not null"`
	SaleID            *uuid.UUID                 `gorm:"type:uuid;index"`
	Cause             string                     `gorm:"type:text;not null"`
	CompensationError string                     `gorm:"type:text"`
	Pending           string                     `gorm:"type:text;not null"`
	Status            sales.ReconciliationStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	CreatedAt         time.Time                  `gorm:"not null"`
	ResolvedAt        *time.Time
}

// TableName returns the table name for GORM
func (ReconciliationModel) TableName() string {
	return "stock_reconciliations"
}

// ReconciliationModelFromDomain creates a persistence model from rec
func ReconciliationModelFromDomain(rec *sales.Reconciliation) (*ReconciliationModel, error) {
	pending, err := json.Marshal(rec.Pending)
	if err != nil {
		return nil, fmt.Errorf("encode pending movements: %w", err)
	}
	m := &ReconciliationModel{
		ID:                rec.ID,
		Operation:         rec.Operation,
		Cause:             rec.Cause,
		CompensationError: rec.CompensationError,
		Pending:           string(pending),
		Status:            rec.Status,
		CreatedAt:         rec.CreatedAt,
		ResolvedAt:        rec.ResolvedAt,
	}
	if rec.SaleID != uuid.Nil {
		id := rec.SaleID
		m.SaleID = &id
	}
	return m, nil
}

// ToDomain converts the persistence model to a domain Reconciliation
func (m *ReconciliationModel) ToDomain() (*sales.Reconciliation, error) {
	var pending []inventory.Movement
	if err := json.Unmarshal([]byte(m.Pending), &pending); err != nil {
		return nil, fmt.Errorf("decode pending movements of %s: %w", m.ID, err)
	}
	rec := &sales.Reconciliation{
		ID:                m.ID,
		Operation:         m.Operation,
		Pending:           pending,
		Cause:             m.Cause,
		CompensationError: m.CompensationError,
		Status:            m.Status,
		CreatedAt:         m.CreatedAt,
		ResolvedAt:        m.ResolvedAt,
	}
	if m.SaleID != nil {
		rec.SaleID = *m.SaleID
	}
	return rec, nil
}
