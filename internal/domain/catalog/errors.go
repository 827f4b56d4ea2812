package catalog

import (
	"fmt"

	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductNotFoundError reports a product id (or code) that does not exist
type ProductNotFoundError struct {
	ProductID uuid.UUID
	Code      string
}

// NewProductNotFound creates a ProductNotFoundError for id
func NewProductNotFound(id uuid.UUID) *ProductNotFoundError {
	return &ProductNotFoundError{ProductID: id}
}

func (e *ProductNotFoundError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("product %s not found", e.Code)
	}
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return shared.ErrNotFound }

// Details returns the missing product reference
func (e *ProductNotFoundError) Details() map[string]any {
	if e.Code != "" {
		return map[string]any{"product_code": e.Code}
	}
	return map[string]any{"product_id": e.ProductID.String()}
}
