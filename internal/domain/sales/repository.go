package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultNumberPrefix is prepended to every sale number
const DefaultNumberPrefix = "SL"

// SaleFilter narrows sale list queries
type SaleFilter struct {
	Status     *SaleStatus
	CustomerID *uuid.UUID
	EmployeeID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Page       shared.Page
}

// SaleRepository persists sales together with their line items
type SaleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	// FindByIDForUpdate loads the sale and locks its header row until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Sale, error)
	FindBySaleNumber(ctx context.Context, number string) (*Sale, error)
	FindAll(ctx context.Context, filter SaleFilter) ([]Sale, int64, error)
	// Save inserts or updates the header and replaces the line items.
	// Updates are expected to run under the lock taken by FindByIDForUpdate.
	Save(ctx context.Context, sale *Sale) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SaleNumberGenerator hands out the next daily sequence value. Concurrent
// callers never receive the same value for the same day.
type SaleNumberGenerator interface {
	Next(ctx context.Context, day time.Time) (int64, error)
}

// FormatSaleNumber renders prefix + YYYYMMDD + sequence padded to 3 digits.
// Sequences above 999 keep all their digits.
func FormatSaleNumber(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s%s%03d", prefix, day.Format("20060102"), seq)
}

// ReconciliationRepository keeps failed compensations until an operator
// resolves them. Writes happen outside the failed unit of work.
type ReconciliationRepository interface {
	Create(ctx context.Context, rec *Reconciliation) error
	FindByID(ctx context.Context, id uuid.UUID) (*Reconciliation, error)
	// ListOpen returns unresolved records oldest first
	ListOpen(ctx context.Context) ([]Reconciliation, error)
	// MarkResolved persists a resolved record
	MarkResolved(ctx context.Context, rec *Reconciliation) error
}
