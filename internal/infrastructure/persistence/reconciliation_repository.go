package persistence

import (
	"context"
	"errors"

	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/erp/salesengine/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReconciliationRepository stores failed compensations in
// stock_reconciliations. It is bound to the root connection, never to a sale
// transaction, so a record survives the rollback of the operation that
// produced it.
type GormReconciliationRepository struct {
	db *gorm.DB
}

// NewGormReconciliationRepository creates a new GormReconciliationRepository
func NewGormReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

func (r *GormReconciliationRepository) Create(ctx context.Context, rec *sales.Reconciliation) error {
	model, err := models.ReconciliationModelFromDomain(rec)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return classify("record reconciliation", "stock_reconciliation", err)
	}
	return nil
}

func (r *GormReconciliationRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Reconciliation, error) {
	var model models.ReconciliationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sales.NewReconciliationNotFound(id)
		}
		return nil, classify("find reconciliation", "stock_reconciliation", err)
	}
	return model.ToDomain()
}

func (r *GormReconciliationRepository) ListOpen(ctx context.Context) ([]sales.Reconciliation, error) {
	var rows []models.ReconciliationModel
	err := r.db.WithContext(ctx).
		Where("status = ?", sales.ReconciliationOpen).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, classify("list reconciliations", "stock_reconciliation", err)
	}
	out := make([]sales.Reconciliation, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// MarkResolved flips an open row to resolved. A row that is no longer open
// means another operator got there first.
func (r *GormReconciliationRepository) MarkResolved(ctx context.Context, rec *sales.Reconciliation) error {
	result := r.db.WithContext(ctx).
		Model(&models.ReconciliationModel{}).
		Where("id = ? AND status = ?", rec.ID, sales.ReconciliationOpen).
		Updates(map[string]any{"status": rec.Status, "resolved_at": rec.ResolvedAt})
	if result.Error != nil {
		return classify("resolve reconciliation", "stock_reconciliation", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewConcurrencyConflict("stock_reconciliation", nil)
	}
	return nil
}

var _ sales.ReconciliationRepository = (*GormReconciliationRepository)(nil)
