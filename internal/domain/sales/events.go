package sales

import (
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeSale is the aggregate type for sales
const AggregateTypeSale = "Sale"

// Event type constants
const (
	EventTypeSaleCreated                 = "SaleCreated"
	EventTypeSaleItemAdded               = "SaleItemAdded"
	EventTypeSaleItemUpdated             = "SaleItemUpdated"
	EventTypeSaleItemRemoved             = "SaleItemRemoved"
	EventTypeSaleDeleted                 = "SaleDeleted"
	EventTypeSaleStatusChanged           = "SaleStatusChanged"
	EventTypeStockReconciliationRequired = "StockReconciliationRequired"
)

// LineSummary is the event payload form of a line item
type LineSummary struct {
	ItemID    uuid.UUID       `json:"item_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

func summarize(item SaleLineItem) LineSummary {
	return LineSummary{
		ItemID:    item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		Total:     item.Total,
	}
}

// SaleCreatedEvent is raised after a sale and its reservations are committed
type SaleCreatedEvent struct {
	shared.EventMeta
	SaleNumber string          `json:"sale_number"`
	CustomerID uuid.UUID       `json:"customer_id"`
	EmployeeID uuid.UUID       `json:"employee_id"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	Items      []LineSummary   `json:"items"`
}

// NewSaleCreatedEvent creates a SaleCreatedEvent
func NewSaleCreatedEvent(s *Sale) *SaleCreatedEvent {
	items := make([]LineSummary, len(s.Items))
	for i, item := range s.Items {
		items[i] = summarize(item)
	}
	return &SaleCreatedEvent{
		EventMeta:  shared.NewEventMeta(EventTypeSaleCreated, AggregateTypeSale, s.ID),
		SaleNumber: s.SaleNumber,
		CustomerID: s.CustomerID,
		EmployeeID: s.EmployeeID,
		GrandTotal: s.GrandTotal,
		Items:      items,
	}
}

// SaleItemAddedEvent is raised when a line item is added to an existing sale
type SaleItemAddedEvent struct {
	shared.EventMeta
	SaleNumber string          `json:"sale_number"`
	Item       LineSummary     `json:"item"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// NewSaleItemAddedEvent creates a SaleItemAddedEvent
func NewSaleItemAddedEvent(s *Sale, item SaleLineItem) *SaleItemAddedEvent {
	return &SaleItemAddedEvent{
		EventMeta:  shared.NewEventMeta(EventTypeSaleItemAdded, AggregateTypeSale, s.ID),
		SaleNumber: s.SaleNumber,
		Item:       summarize(item),
		GrandTotal: s.GrandTotal,
	}
}

// SaleItemUpdatedEvent is raised when a line item's product or quantity changes
type SaleItemUpdatedEvent struct {
	shared.EventMeta
	SaleNumber string          `json:"sale_number"`
	Before     LineSummary     `json:"before"`
	After      LineSummary     `json:"after"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// NewSaleItemUpdatedEvent creates a SaleItemUpdatedEvent
func NewSaleItemUpdatedEvent(s *Sale, before, after SaleLineItem) *SaleItemUpdatedEvent {
	return &SaleItemUpdatedEvent{
		EventMeta:  shared.NewEventMeta(EventTypeSaleItemUpdated, AggregateTypeSale, s.ID),
		SaleNumber: s.SaleNumber,
		Before:     summarize(before),
		After:      summarize(after),
		GrandTotal: s.GrandTotal,
	}
}

// SaleItemRemovedEvent is raised when a line item is deleted
type SaleItemRemovedEvent struct {
	shared.EventMeta
	SaleNumber string          `json:"sale_number"`
	Item       LineSummary     `json:"item"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// NewSaleItemRemovedEvent creates a SaleItemRemovedEvent
func NewSaleItemRemovedEvent(s *Sale, item SaleLineItem) *SaleItemRemovedEvent {
	return &SaleItemRemovedEvent{
		EventMeta:  shared.NewEventMeta(EventTypeSaleItemRemoved, AggregateTypeSale, s.ID),
		SaleNumber: s.SaleNumber,
		Item:       summarize(item),
		GrandTotal: s.GrandTotal,
	}
}

// SaleDeletedEvent is raised when a sale and its items are removed
type SaleDeletedEvent struct {
	shared.EventMeta
	SaleNumber    string `json:"sale_number"`
	StockReleased bool   `json:"stock_released"`
}

// NewSaleDeletedEvent creates a SaleDeletedEvent
func NewSaleDeletedEvent(s *Sale, stockReleased bool) *SaleDeletedEvent {
	return &SaleDeletedEvent{
		EventMeta:     shared.NewEventMeta(EventTypeSaleDeleted, AggregateTypeSale, s.ID),
		SaleNumber:    s.SaleNumber,
		StockReleased: stockReleased,
	}
}

// SaleStatusChangedEvent is raised on every status transition
type SaleStatusChangedEvent struct {
	shared.EventMeta
	SaleNumber string     `json:"sale_number"`
	From       SaleStatus `json:"from"`
	To         SaleStatus `json:"to"`
}

// NewSaleStatusChangedEvent creates a SaleStatusChangedEvent
func NewSaleStatusChangedEvent(s *Sale, from SaleStatus) *SaleStatusChangedEvent {
	return &SaleStatusChangedEvent{
		EventMeta:  shared.NewEventMeta(EventTypeSaleStatusChanged, AggregateTypeSale, s.ID),
		SaleNumber: s.SaleNumber,
		From:       from,
		To:         s.Status,
	}
}

// StockReconciliationRequiredEvent is raised when compensating stock movements
// could not be applied and an operator has to fix the ledger by hand.
type StockReconciliationRequiredEvent struct {
	shared.EventMeta
	Operation string               `json:"operation"`
	Pending   []inventory.Movement `json:"pending"`
	Reason    string               `json:"reason"`
}

// NewStockReconciliationRequiredEvent creates a StockReconciliationRequiredEvent.
// saleID may be uuid.Nil when the sale was never persisted.
func NewStockReconciliationRequiredEvent(saleID uuid.UUID, operation string, pending []inventory.Movement, reason string) *StockReconciliationRequiredEvent {
	return &StockReconciliationRequiredEvent{
		EventMeta: shared.NewEventMeta(EventTypeStockReconciliationRequired, AggregateTypeSale, saleID),
		Operation: operation,
		Pending:   pending,
		Reason:    reason,
	}
}
