package sales

import (
	"time"

	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
)

// ReconciliationStatus tracks whether an operator has handled a record
type ReconciliationStatus string

const (
	ReconciliationOpen     ReconciliationStatus = "OPEN"
	ReconciliationResolved ReconciliationStatus = "RESOLVED"
)

// Reconciliation is the durable trace of a ReconciliationRequiredError: the
// stock movements an operator still has to apply by hand
type Reconciliation struct {
	ID                uuid.UUID
	Operation         string
	SaleID            uuid.UUID
	Pending           []inventory.Movement
	Cause             string
	CompensationError string
	Status            ReconciliationStatus
	CreatedAt         time.Time
	ResolvedAt        *time.Time
}

// NewReconciliation creates an open record for rec
func NewReconciliation(rec *ReconciliationRequiredError, now time.Time) *Reconciliation {
	r := &Reconciliation{
		ID:        uuid.New(),
		Operation: rec.Operation,
		SaleID:    rec.SaleID,
		Pending:   append([]inventory.Movement(nil), rec.Pending...),
		Status:    ReconciliationOpen,
		CreatedAt: now,
	}
	if rec.Cause != nil {
		r.Cause = rec.Cause.Error()
	}
	if rec.CompErr != nil {
		r.CompensationError = rec.CompErr.Error()
	}
	return r
}

// Resolve marks the record handled
func (r *Reconciliation) Resolve(now time.Time) error {
	if r.Status != ReconciliationOpen {
		return shared.NewInvalidState("reconciliation %s is already %s", r.ID, r.Status)
	}
	r.Status = ReconciliationResolved
	r.ResolvedAt = &now
	return nil
}

// NewReconciliationNotFound reports an unknown reconciliation id
func NewReconciliationNotFound(id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(shared.ErrNotFound.Code, "reconciliation "+id.String()+" not found")
}
