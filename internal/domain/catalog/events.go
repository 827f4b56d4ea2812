package catalog

import (
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeProduct is the aggregate type for products
const AggregateTypeProduct = "Product"

// Event type constants
const (
	EventTypeProductCreated      = "ProductCreated"
	EventTypeProductPriceChanged = "ProductPriceChanged"
)

// ProductCreatedEvent is raised when a product is added to the catalog
type ProductCreatedEvent struct {
	shared.EventMeta
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int64           `json:"stock_quantity"`
}

// NewProductCreatedEvent creates a ProductCreatedEvent
func NewProductCreatedEvent(p *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		EventMeta:     shared.NewEventMeta(EventTypeProductCreated, AggregateTypeProduct, p.ID),
		Code:          p.Code,
		Name:          p.Name,
		UnitPrice:     p.UnitPrice,
		StockQuantity: p.StockQuantity,
	}
}

// ProductPriceChangedEvent is raised when list pricing changes
type ProductPriceChangedEvent struct {
	shared.EventMeta
	ProductID uuid.UUID       `json:"product_id"`
	OldPrice  decimal.Decimal `json:"old_price"`
	NewPrice  decimal.Decimal `json:"new_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
}

// NewProductPriceChangedEvent creates a ProductPriceChangedEvent
func NewProductPriceChangedEvent(p *Product, oldPrice decimal.Decimal) *ProductPriceChangedEvent {
	return &ProductPriceChangedEvent{
		EventMeta: shared.NewEventMeta(EventTypeProductPriceChanged, AggregateTypeProduct, p.ID),
		ProductID: p.ID,
		OldPrice:  oldPrice,
		NewPrice:  p.UnitPrice,
		TaxRate:   p.TaxRate,
	}
}
