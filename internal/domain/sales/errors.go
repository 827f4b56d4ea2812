package sales

import (
	"fmt"

	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleNotFoundError reports a sale id or sale number that does not exist
type SaleNotFoundError struct {
	SaleID     uuid.UUID
	SaleNumber string
}

// NewSaleNotFound creates a SaleNotFoundError for id
func NewSaleNotFound(id uuid.UUID) *SaleNotFoundError {
	return &SaleNotFoundError{SaleID: id}
}

// NewSaleNumberNotFound creates a SaleNotFoundError for a sale number
func NewSaleNumberNotFound(number string) *SaleNotFoundError {
	return &SaleNotFoundError{SaleNumber: number}
}

func (e *SaleNotFoundError) Error() string {
	if e.SaleNumber != "" {
		return fmt.Sprintf("sale %s not found", e.SaleNumber)
	}
	return fmt.Sprintf("sale %s not found", e.SaleID)
}

func (e *SaleNotFoundError) Unwrap() error { return shared.ErrNotFound }

// Details returns the missing sale reference
func (e *SaleNotFoundError) Details() map[string]any {
	if e.SaleNumber != "" {
		return map[string]any{"sale_number": e.SaleNumber}
	}
	return map[string]any{"sale_id": e.SaleID.String()}
}

// LineItemNotFoundError reports an item id that is not part of the sale
type LineItemNotFoundError struct {
	SaleID uuid.UUID
	ItemID uuid.UUID
}

// NewLineItemNotFound creates a LineItemNotFoundError
func NewLineItemNotFound(saleID, itemID uuid.UUID) *LineItemNotFoundError {
	return &LineItemNotFoundError{SaleID: saleID, ItemID: itemID}
}

func (e *LineItemNotFoundError) Error() string {
	return fmt.Sprintf("line item %s not found in sale %s", e.ItemID, e.SaleID)
}

func (e *LineItemNotFoundError) Unwrap() error { return shared.ErrNotFound }

func (e *LineItemNotFoundError) Details() map[string]any {
	return map[string]any{
		"sale_id": e.SaleID.String(),
		"item_id": e.ItemID.String(),
	}
}

// ReconciliationRequiredError is returned when an operation failed and its
// compensating stock movements could not all be applied. Pending lists the
// movements that still need to happen for the ledger to be correct.
type ReconciliationRequiredError struct {
	Operation string
	SaleID    uuid.UUID
	Pending   []inventory.Movement
	Cause     error
	CompErr   error
}

func (e *ReconciliationRequiredError) Error() string {
	return fmt.Sprintf("%s failed (%v) and compensation did not complete (%v): %d stock movements need manual reconciliation",
		e.Operation, e.Cause, e.CompErr, len(e.Pending))
}

// Unwrap exposes the reconciliation sentinel and the compensation failure.
// The original cause is reported in the message only.
func (e *ReconciliationRequiredError) Unwrap() []error {
	if e.CompErr == nil {
		return []error{shared.ErrReconciliationRequired}
	}
	return []error{shared.ErrReconciliationRequired, e.CompErr}
}

// Details returns the operation and the movements still outstanding
func (e *ReconciliationRequiredError) Details() map[string]any {
	pending := make([]map[string]any, len(e.Pending))
	for i, m := range e.Pending {
		pending[i] = map[string]any{
			"product_id": m.ProductID.String(),
			"quantity":   m.Quantity,
			"direction":  string(m.Direction),
		}
	}
	d := map[string]any{
		"operation": e.Operation,
		"pending":   pending,
	}
	if e.SaleID != uuid.Nil {
		d["sale_id"] = e.SaleID.String()
	}
	return d
}
