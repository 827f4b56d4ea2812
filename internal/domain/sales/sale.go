package sales

import (
	"strings"
	"time"

	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxNotesLength = 1000

// SaleLineItem is one product/quantity entry within a sale. UnitPrice and
// TaxRate are snapshots taken when the line was created and do not follow
// later catalog price changes.
type SaleLineItem struct {
	shared.Entity
	SaleID      uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int64
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	SubTotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	Total       decimal.Decimal
}

func newLineItem(saleID uuid.UUID, product catalog.Snapshot, quantity int64) (*SaleLineItem, error) {
	item := &SaleLineItem{
		Entity:      shared.NewEntity(),
		SaleID:      saleID,
		ProductID:   product.ProductID,
		ProductName: product.Name,
		UnitPrice:   product.UnitPrice,
		TaxRate:     product.TaxRate,
	}
	if err := item.setQuantity(quantity); err != nil {
		return nil, err
	}
	return item, nil
}

func (i *SaleLineItem) setQuantity(quantity int64) error {
	amounts, err := CalculateLine(i.UnitPrice, quantity, i.TaxRate)
	if err != nil {
		return err
	}
	i.Quantity = quantity
	i.SubTotal = amounts.SubTotal
	i.TaxAmount = amounts.TaxAmount
	i.Total = amounts.Total
	i.Touch()
	return nil
}

// Sale is the aggregate root for a sale header and its line items.
// Header totals are always derived from the items by RecomputeTotals.
type Sale struct {
	shared.Aggregate
	SaleNumber string
	CustomerID uuid.UUID
	EmployeeID uuid.UUID
	SaleDate   time.Time
	Status     SaleStatus
	SubTotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal
	Notes      string
	Items      []SaleLineItem
}

// NewSale creates an empty pending sale. The sale number is assigned by the
// coordinator right before the sale is persisted.
func NewSale(customerID, employeeID uuid.UUID, saleDate time.Time, notes string) (*Sale, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewInvalidArgument("customer_id", "is required")
	}
	if employeeID == uuid.Nil {
		return nil, shared.NewInvalidArgument("employee_id", "is required")
	}
	if saleDate.IsZero() {
		return nil, shared.NewInvalidArgument("sale_date", "is required")
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLength {
		return nil, shared.NewInvalidArgument("notes", "cannot exceed 1000 characters")
	}

	return &Sale{
		Aggregate:  shared.NewAggregate(),
		CustomerID: customerID,
		EmployeeID: employeeID,
		SaleDate:   saleDate,
		Status:     SaleStatusPending,
		SubTotal:   decimal.Zero,
		TaxTotal:   decimal.Zero,
		GrandTotal: decimal.Zero,
		Notes:      notes,
		Items:      make([]SaleLineItem, 0),
	}, nil
}

// AssignNumber sets the sale number once
func (s *Sale) AssignNumber(number string) error {
	if number == "" {
		return shared.NewInvalidArgument("sale_number", "is required")
	}
	if s.SaleNumber != "" {
		return shared.NewInvalidState("sale %s already has number %s", s.ID, s.SaleNumber)
	}
	s.SaleNumber = number
	return nil
}

// AddLineItem prices quantity of product through the calculator and appends
// it as a new line item.
func (s *Sale) AddLineItem(product catalog.Snapshot, quantity int64) (*SaleLineItem, error) {
	if err := s.ensureItemsMutable(); err != nil {
		return nil, err
	}
	if product.ProductID == uuid.Nil {
		return nil, shared.NewInvalidArgument("product_id", "is required")
	}

	item, err := newLineItem(s.ID, product, quantity)
	if err != nil {
		return nil, err
	}
	s.Items = append(s.Items, *item)
	s.RecomputeTotals()
	s.touch()
	return &s.Items[len(s.Items)-1], nil
}

// UpdateLineItem changes the product and/or quantity of a line item.
// Keeping the same product keeps the original price snapshot; switching to a
// different product takes that product's current pricing.
// It returns a copy of the line as it was before the change.
func (s *Sale) UpdateLineItem(itemID uuid.UUID, product catalog.Snapshot, quantity int64) (SaleLineItem, error) {
	if err := s.ensureItemsMutable(); err != nil {
		return SaleLineItem{}, err
	}
	idx := s.indexOf(itemID)
	if idx < 0 {
		return SaleLineItem{}, NewLineItemNotFound(s.ID, itemID)
	}

	before := s.Items[idx]
	updated := before
	if product.ProductID != before.ProductID {
		updated.ProductID = product.ProductID
		updated.ProductName = product.Name
		updated.UnitPrice = product.UnitPrice
		updated.TaxRate = product.TaxRate
	}
	if err := updated.setQuantity(quantity); err != nil {
		return SaleLineItem{}, err
	}

	s.Items[idx] = updated
	s.RecomputeTotals()
	s.touch()
	return before, nil
}

// RemoveLineItem removes a line item and returns it. nowEmpty is true when
// the sale has no items left; the caller decides whether the sale is then
// deleted or cancelled.
func (s *Sale) RemoveLineItem(itemID uuid.UUID) (removed SaleLineItem, nowEmpty bool, err error) {
	if err := s.ensureItemsMutable(); err != nil {
		return SaleLineItem{}, false, err
	}
	idx := s.indexOf(itemID)
	if idx < 0 {
		return SaleLineItem{}, false, NewLineItemNotFound(s.ID, itemID)
	}

	removed = s.Items[idx]
	s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
	s.RecomputeTotals()
	s.touch()
	return removed, len(s.Items) == 0, nil
}

// RecomputeTotals sets the header totals to the sums over the current items.
// Calling it repeatedly without a mutation in between yields the same totals.
func (s *Sale) RecomputeTotals() {
	sub, tax, grand := decimal.Zero, decimal.Zero, decimal.Zero
	for _, item := range s.Items {
		sub = sub.Add(item.SubTotal)
		tax = tax.Add(item.TaxAmount)
		grand = grand.Add(item.Total)
	}
	s.SubTotal = sub
	s.TaxTotal = tax
	s.GrandTotal = grand
}

// ChangeStatus moves the sale to target if the transition is allowed
func (s *Sale) ChangeStatus(target SaleStatus) error {
	if !target.IsValid() {
		return shared.NewInvalidArgument("status", "unknown sale status")
	}
	if !s.Status.CanTransitionTo(target) {
		return shared.NewInvalidState("cannot change sale status from %s to %s", s.Status, target)
	}
	from := s.Status
	s.Status = target
	s.touch()
	s.RecordEvent(NewSaleStatusChangedEvent(s, from))
	return nil
}

// CancelEmpty cancels a sale whose last line item was removed
func (s *Sale) CancelEmpty() error {
	if len(s.Items) != 0 {
		return shared.NewInvalidState("sale %s still has %d items", s.ID, len(s.Items))
	}
	return s.ChangeStatus(SaleStatusCancelled)
}

// HoldsStock reports whether the sale's items currently keep stock reserved
func (s *Sale) HoldsStock() bool {
	return s.Status.HoldsStock()
}

// ItemCount returns the number of line items
func (s *Sale) ItemCount() int {
	return len(s.Items)
}

// Item returns the line item with the given id
func (s *Sale) Item(itemID uuid.UUID) (SaleLineItem, bool) {
	idx := s.indexOf(itemID)
	if idx < 0 {
		return SaleLineItem{}, false
	}
	return s.Items[idx], true
}

// TotalsConsistent reports whether the header equals the sums over the items
func (s *Sale) TotalsConsistent() bool {
	derived := *s
	derived.RecomputeTotals()
	return derived.SubTotal.Equal(s.SubTotal) &&
		derived.TaxTotal.Equal(s.TaxTotal) &&
		derived.GrandTotal.Equal(s.GrandTotal)
}

func (s *Sale) ensureItemsMutable() error {
	if !s.Status.AllowsItemChanges() {
		return shared.NewInvalidState("line items of a %s sale cannot be changed", s.Status)
	}
	return nil
}

func (s *Sale) indexOf(itemID uuid.UUID) int {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (s *Sale) touch() {
	s.Touch()
	s.IncrementVersion()
}
