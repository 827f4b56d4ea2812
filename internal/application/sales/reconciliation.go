package sales

import (
	"context"
	"time"

	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconciliationResponse is a failed compensation as shown to operators
type ReconciliationResponse struct {
	ID                uuid.UUID            `json:"id"`
	Operation         string               `json:"operation"`
	SaleID            *uuid.UUID           `json:"sale_id,omitempty"`
	Pending           []inventory.Movement `json:"pending"`
	Cause             string               `json:"cause"`
	CompensationError string               `json:"compensation_error,omitempty"`
	Status            string               `json:"status"`
	CreatedAt         time.Time            `json:"created_at"`
	ResolvedAt        *time.Time           `json:"resolved_at,omitempty"`
}

// ToReconciliationResponse converts a domain record to its response
func ToReconciliationResponse(r *sales.Reconciliation) ReconciliationResponse {
	resp := ReconciliationResponse{
		ID:                r.ID,
		Operation:         r.Operation,
		Pending:           r.Pending,
		Cause:             r.Cause,
		CompensationError: r.CompensationError,
		Status:            string(r.Status),
		CreatedAt:         r.CreatedAt,
		ResolvedAt:        r.ResolvedAt,
	}
	if r.SaleID != uuid.Nil {
		id := r.SaleID
		resp.SaleID = &id
	}
	return resp
}

// ReconciliationService lets operators review and close out stock
// movements the coordinator could not compensate. Resolving a record does
// not move stock; the operator applies the correction (e.g. a restock)
// before resolving.
type ReconciliationService struct {
	repo   sales.ReconciliationRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewReconciliationService creates a ReconciliationService
func NewReconciliationService(repo sales.ReconciliationRepository, logger *zap.Logger) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{repo: repo, logger: logger, now: time.Now}
}

// ListOpen returns unresolved records oldest first
func (s *ReconciliationService) ListOpen(ctx context.Context) ([]ReconciliationResponse, error) {
	recs, err := s.repo.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ReconciliationResponse, len(recs))
	for i := range recs {
		out[i] = ToReconciliationResponse(&recs[i])
	}
	return out, nil
}

// Resolve marks the record handled
func (s *ReconciliationService) Resolve(ctx context.Context, id uuid.UUID) (*ReconciliationResponse, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rec.Resolve(s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.repo.MarkResolved(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("stock reconciliation resolved",
		zap.String("reconciliation_id", id.String()),
		zap.String("operation", rec.Operation),
		zap.Int("movements", len(rec.Pending)),
	)
	resp := ToReconciliationResponse(rec)
	return &resp, nil
}

// Name identifies the open record check when it runs on a schedule
func (s *ReconciliationService) Name() string { return "reconciliation-monitor" }

// Run warns while records are waiting for an operator. Nothing is logged
// when the queue is empty.
func (s *ReconciliationService) Run(ctx context.Context) error {
	recs, err := s.repo.ListOpen(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}
	oldest := recs[0].CreatedAt
	movements := 0
	for i := range recs {
		if recs[i].CreatedAt.Before(oldest) {
			oldest = recs[i].CreatedAt
		}
		movements += len(recs[i].Pending)
	}
	s.logger.Warn("stock reconciliations awaiting an operator",
		zap.Int("open", len(recs)),
		zap.Int("pending_movements", movements),
		zap.Duration("oldest_age", s.now().Sub(oldest)),
	)
	return nil
}
