package catalog

import (
	"time"

	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Code          string          `json:"code" binding:"required,min=1,max=50"`
	Name          string          `json:"name" binding:"required,min=1,max=200"`
	UnitPrice     decimal.Decimal `json:"unit_price" binding:"required"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	StockQuantity int64           `json:"stock_quantity" binding:"min=0"`
}

// ChangePriceRequest sets a product's list price and tax rate
type ChangePriceRequest struct {
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	// Version is the product version the caller last saw
	Version int `json:"version" binding:"required,min=1"`
}

// RestockRequest adds stock to a product
type RestockRequest struct {
	Quantity int64 `json:"quantity" binding:"required,gt=0,max=1000000000"`
}

// ProductListFilter holds list query parameters
type ProductListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID            uuid.UUID       `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	StockQuantity int64           `json:"stock_quantity"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToProductResponse converts a domain product to its response form
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		Code:          p.Code,
		Name:          p.Name,
		UnitPrice:     p.UnitPrice,
		TaxRate:       p.TaxRate,
		StockQuantity: p.StockQuantity,
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
