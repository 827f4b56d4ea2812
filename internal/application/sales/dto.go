package sales

import (
	"time"

	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Requests ====================

// CreateSaleRequest represents a request to create a sale with its items
type CreateSaleRequest struct {
	CustomerID uuid.UUID       `json:"customer_id" binding:"required"`
	EmployeeID uuid.UUID       `json:"employee_id" binding:"required"`
	SaleDate   *time.Time      `json:"sale_date"`
	Items      []SaleItemInput `json:"items" binding:"required,min=1,dive"`
	Notes      string          `json:"notes" binding:"max=1000"`

	// IdempotencyKey is taken from the Idempotency-Key header
	IdempotencyKey string `json:"-"`
}

// SaleItemInput is one product and quantity of a create or add-item request
type SaleItemInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,gt=0,max=1000000000"`
}

// UpdateSaleItemRequest replaces the product and/or quantity of a line item
type UpdateSaleItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,gt=0,max=1000000000"`
}

// ChangeSaleStatusRequest moves a sale to another status
type ChangeSaleStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING COMPLETED CANCELLED RETURNED ON_HOLD"`
}

// SaleListFilter narrows a sale listing. From is inclusive and To is
// exclusive; nil bounds are open.
type SaleListFilter struct {
	Status     string
	CustomerID *uuid.UUID
	EmployeeID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

func (f SaleListFilter) toDomain() sales.SaleFilter {
	filter := sales.SaleFilter{
		CustomerID: f.CustomerID,
		EmployeeID: f.EmployeeID,
		From:       f.From,
		To:         f.To,
		Page:       shared.Page{Page: f.Page, PageSize: f.PageSize}.Normalize(),
	}
	if f.Status != "" {
		status := sales.SaleStatus(f.Status)
		filter.Status = &status
	}
	return filter
}

// ==================== Responses ====================

// SaleItemResponse represents a line item in API responses
type SaleItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	SubTotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Total       decimal.Decimal `json:"total"`
}

// SaleResponse represents a sale with its items in API responses
type SaleResponse struct {
	ID         uuid.UUID          `json:"id"`
	SaleNumber string             `json:"sale_number"`
	CustomerID uuid.UUID          `json:"customer_id"`
	EmployeeID uuid.UUID          `json:"employee_id"`
	SaleDate   time.Time          `json:"sale_date"`
	Status     string             `json:"status"`
	SubTotal   decimal.Decimal    `json:"subtotal"`
	TaxTotal   decimal.Decimal    `json:"tax_total"`
	GrandTotal decimal.Decimal    `json:"grand_total"`
	Notes      string             `json:"notes,omitempty"`
	Items      []SaleItemResponse `json:"items"`
	Version    int                `json:"version"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// SaleListItemResponse is the header-only form used by list queries
type SaleListItemResponse struct {
	ID         uuid.UUID       `json:"id"`
	SaleNumber string          `json:"sale_number"`
	CustomerID uuid.UUID       `json:"customer_id"`
	EmployeeID uuid.UUID       `json:"employee_id"`
	SaleDate   time.Time       `json:"sale_date"`
	Status     string          `json:"status"`
	ItemCount  int             `json:"item_count"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	CreatedAt  time.Time       `json:"created_at"`
}

// DeleteItemResponse reports the outcome of deleting a line item. Sale is
// nil when removing the last item deleted the whole sale.
type DeleteItemResponse struct {
	SaleDeleted bool          `json:"sale_deleted"`
	Sale        *SaleResponse `json:"sale,omitempty"`
}

// ToSaleResponse converts a domain sale to its response form
func ToSaleResponse(s *sales.Sale) SaleResponse {
	items := make([]SaleItemResponse, len(s.Items))
	for i, item := range s.Items {
		items[i] = SaleItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     item.TaxRate,
			SubTotal:    item.SubTotal,
			TaxAmount:   item.TaxAmount,
			Total:       item.Total,
		}
	}
	return SaleResponse{
		ID:         s.ID,
		SaleNumber: s.SaleNumber,
		CustomerID: s.CustomerID,
		EmployeeID: s.EmployeeID,
		SaleDate:   s.SaleDate,
		Status:     s.Status.String(),
		SubTotal:   s.SubTotal,
		TaxTotal:   s.TaxTotal,
		GrandTotal: s.GrandTotal,
		Notes:      s.Notes,
		Items:      items,
		Version:    s.Version,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

// ToSaleListItemResponse converts a domain sale to its list form
func ToSaleListItemResponse(s *sales.Sale) SaleListItemResponse {
	return SaleListItemResponse{
		ID:         s.ID,
		SaleNumber: s.SaleNumber,
		CustomerID: s.CustomerID,
		EmployeeID: s.EmployeeID,
		SaleDate:   s.SaleDate,
		Status:     s.Status.String(),
		ItemCount:  s.ItemCount(),
		GrandTotal: s.GrandTotal,
		CreatedAt:  s.CreatedAt,
	}
}
