package sales

import (
	"context"
	"fmt"

	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/erp/salesengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const idempotencyKeyPrefix = "sale:create:"

// CreateSale reserves stock for every requested item, prices the items,
// assigns a sale number and persists the sale as one unit of work.
func (c *Coordinator) CreateSale(ctx context.Context, req CreateSaleRequest) (*SaleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, OpCreateSale)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCustomerID, req.CustomerID.String(),
		telemetry.SpanAttrItemsCount, len(req.Items),
	)

	if err := validateItems(req.Items); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	// the sale number carries the business day of saleDate
	saleDate := c.now().In(c.cfg.Location)
	if req.SaleDate != nil {
		saleDate = req.SaleDate.In(c.cfg.Location)
	}
	// header validation runs before any stock is touched
	if _, err := sales.NewSale(req.CustomerID, req.EmployeeID, saleDate, req.Notes); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	release, err := c.claimIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var created *sales.Sale
	err = c.run(ctx, OpCreateSale, span, func(ctx context.Context, uow *unitOfWork) error {
		products, err := loadProducts(ctx, uow.repos.ProductRepo(), req.Items)
		if err != nil {
			return err
		}

		plan := inventory.NewPlan()
		for _, item := range req.Items {
			plan.Reserve(item.ProductID, item.Quantity)
		}
		if err := uow.move(ctx, plan); err != nil {
			return err
		}

		sale, err := sales.NewSale(req.CustomerID, req.EmployeeID, saleDate, req.Notes)
		if err != nil {
			return err
		}
		uow.saleID = sale.ID
		for _, item := range req.Items {
			if _, err := sale.AddLineItem(products[item.ProductID].Snapshot(), item.Quantity); err != nil {
				return err
			}
		}
		sale.RecomputeTotals()

		seq, err := uow.repos.SaleNumbers().Next(ctx, saleDate)
		if err != nil {
			return fmt.Errorf("next sale number: %w", err)
		}
		if err := sale.AssignNumber(sales.FormatSaleNumber(c.cfg.NumberPrefix, saleDate, seq)); err != nil {
			return err
		}

		if err := uow.save(ctx, sale); err != nil {
			return err
		}
		uow.collect(sales.NewSaleCreatedEvent(sale))
		created = sale
		return nil
	})
	if err != nil {
		release()
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, created.ID.String(),
		telemetry.SpanAttrSaleNumber, created.SaleNumber,
	)
	if c.metrics != nil {
		c.metrics.RecordSaleCreated(ctx, created.GrandTotal)
	}
	resp := ToSaleResponse(created)
	return &resp, nil
}

// AddLineItem reserves stock and appends a new line item to an open sale
func (c *Coordinator) AddLineItem(ctx context.Context, saleID uuid.UUID, req SaleItemInput) (*SaleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, OpAddItem)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, saleID.String(),
		telemetry.SpanAttrProductID, req.ProductID.String(),
		telemetry.SpanAttrQuantity, req.Quantity,
	)

	if err := validateItems([]SaleItemInput{req}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var updated *sales.Sale
	err := c.run(ctx, OpAddItem, span, func(ctx context.Context, uow *unitOfWork) error {
		sale, err := loadForUpdate(ctx, uow, saleID)
		if err != nil {
			return err
		}
		product, err := uow.repos.ProductRepo().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}

		item, err := sale.AddLineItem(product.Snapshot(), req.Quantity)
		if err != nil {
			return err
		}
		added := *item

		plan := inventory.NewPlan()
		plan.Reserve(req.ProductID, req.Quantity)
		if err := uow.move(ctx, plan); err != nil {
			return err
		}

		if err := uow.save(ctx, sale); err != nil {
			return err
		}
		uow.collect(sales.NewSaleItemAddedEvent(sale, added))
		updated = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := ToSaleResponse(updated)
	return &resp, nil
}

// UpdateLineItem changes the product and/or quantity of a line item. For the
// same product only the quantity delta moves through the ledger; switching
// products releases the old product and reserves the new one.
func (c *Coordinator) UpdateLineItem(ctx context.Context, saleID, itemID uuid.UUID, req UpdateSaleItemRequest) (*SaleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, OpUpdateItem)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, saleID.String(),
		telemetry.SpanAttrItemID, itemID.String(),
		telemetry.SpanAttrProductID, req.ProductID.String(),
		telemetry.SpanAttrQuantity, req.Quantity,
	)

	if err := validateItems([]SaleItemInput{{ProductID: req.ProductID, Quantity: req.Quantity}}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var updated *sales.Sale
	err := c.run(ctx, OpUpdateItem, span, func(ctx context.Context, uow *unitOfWork) error {
		sale, err := loadForUpdate(ctx, uow, saleID)
		if err != nil {
			return err
		}
		product, err := uow.repos.ProductRepo().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}

		before, err := sale.UpdateLineItem(itemID, product.Snapshot(), req.Quantity)
		if err != nil {
			return err
		}
		after, _ := sale.Item(itemID)

		plan := inventory.NewPlan()
		plan.Release(before.ProductID, before.Quantity)
		plan.Reserve(after.ProductID, after.Quantity)
		if err := uow.move(ctx, plan); err != nil {
			return err
		}

		if err := uow.save(ctx, sale); err != nil {
			return err
		}
		uow.collect(sales.NewSaleItemUpdatedEvent(sale, before, after))
		updated = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := ToSaleResponse(updated)
	return &resp, nil
}

// DeleteSale releases the stock held by the sale's items and removes the
// sale together with its items.
func (c *Coordinator) DeleteSale(ctx context.Context, saleID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, OpDeleteSale)
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrSaleID, saleID.String())

	return c.run(ctx, OpDeleteSale, span, func(ctx context.Context, uow *unitOfWork) error {
		sale, err := loadForUpdate(ctx, uow, saleID)
		if err != nil {
			return err
		}

		released := sale.HoldsStock() && sale.ItemCount() > 0
		if released {
			if err := uow.move(ctx, releaseAll(sale)); err != nil {
				return err
			}
		}

		if err := uow.repos.SaleRepo().Delete(ctx, sale.ID); err != nil {
			return err
		}
		uow.collect(sales.NewSaleDeletedEvent(sale, released))
		return nil
	})
}

// DeleteLineItem releases the item's stock and removes it. When it was the
// last item the empty-sale policy either deletes or cancels the sale.
func (c *Coordinator) DeleteLineItem(ctx context.Context, saleID, itemID uuid.UUID) (*DeleteItemResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, OpDeleteItem)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, saleID.String(),
		telemetry.SpanAttrItemID, itemID.String(),
	)

	result := &DeleteItemResponse{}
	err := c.run(ctx, OpDeleteItem, span, func(ctx context.Context, uow *unitOfWork) error {
		*result = DeleteItemResponse{}
		sale, err := loadForUpdate(ctx, uow, saleID)
		if err != nil {
			return err
		}

		removed, nowEmpty, err := sale.RemoveLineItem(itemID)
		if err != nil {
			return err
		}

		plan := inventory.NewPlan()
		plan.Release(removed.ProductID, removed.Quantity)
		if err := uow.move(ctx, plan); err != nil {
			return err
		}
		uow.collect(sales.NewSaleItemRemovedEvent(sale, removed))

		if nowEmpty && c.cfg.EmptySalePolicy == EmptySaleDelete {
			if err := uow.repos.SaleRepo().Delete(ctx, sale.ID); err != nil {
				return err
			}
			uow.collect(sales.NewSaleDeletedEvent(sale, true))
			result.SaleDeleted = true
			return nil
		}

		if nowEmpty {
			if err := sale.CancelEmpty(); err != nil {
				return err
			}
		}
		if err := uow.save(ctx, sale); err != nil {
			return err
		}
		uow.collect(sale.PullEvents()...)
		resp := ToSaleResponse(sale)
		result.Sale = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ChangeStatus moves a sale to another status. Leaving a stock-holding
// status for Cancelled or Returned releases the stock of every item.
func (c *Coordinator) ChangeStatus(ctx context.Context, saleID uuid.UUID, req ChangeSaleStatusRequest) (*SaleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, OpChangeStatus)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, saleID.String(),
		telemetry.SpanAttrSaleStatus, req.Status,
	)

	target := sales.SaleStatus(req.Status)
	if !target.IsValid() {
		err := shared.NewInvalidArgument("status", "unknown sale status")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var updated *sales.Sale
	err := c.run(ctx, OpChangeStatus, span, func(ctx context.Context, uow *unitOfWork) error {
		sale, err := loadForUpdate(ctx, uow, saleID)
		if err != nil {
			return err
		}

		wasHolding := sale.HoldsStock()
		if err := sale.ChangeStatus(target); err != nil {
			return err
		}
		if wasHolding && !sale.HoldsStock() {
			if err := uow.move(ctx, releaseAll(sale)); err != nil {
				return err
			}
		}

		if err := uow.save(ctx, sale); err != nil {
			return err
		}
		uow.collect(sale.PullEvents()...)
		updated = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := ToSaleResponse(updated)
	return &resp, nil
}

// GetSale returns a sale by id
func (c *Coordinator) GetSale(ctx context.Context, saleID uuid.UUID) (*SaleResponse, error) {
	sale, err := c.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// GetSaleByNumber returns a sale by its sale number
func (c *Coordinator) GetSaleByNumber(ctx context.Context, number string) (*SaleResponse, error) {
	sale, err := c.saleRepo.FindBySaleNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// ListSales returns one page of sales matching filter
func (c *Coordinator) ListSales(ctx context.Context, filter SaleListFilter) (shared.Paginated[SaleListItemResponse], error) {
	domainFilter := filter.toDomain()
	found, total, err := c.saleRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[SaleListItemResponse]{}, err
	}
	items := make([]SaleListItemResponse, len(found))
	for i := range found {
		items[i] = ToSaleListItemResponse(&found[i])
	}
	return shared.NewPaginated(items, total, domainFilter.Page), nil
}

// claimIdempotencyKey claims key if one was supplied. The returned release
// func frees the key again and is safe to call when nothing was claimed.
func (c *Coordinator) claimIdempotencyKey(ctx context.Context, key string) (func(), error) {
	noop := func() {}
	if key == "" || c.idem == nil {
		return noop, nil
	}
	fullKey := idempotencyKeyPrefix + key
	claimed, err := c.idem.Claim(ctx, fullKey, c.cfg.IdempotencyTTL)
	if err != nil {
		return noop, shared.NewPersistenceError("claim idempotency key", err)
	}
	if !claimed {
		return noop, shared.NewDomainError(shared.ErrAlreadyExists.Code,
			fmt.Sprintf("a sale with idempotency key %q was already submitted", key))
	}
	return func() {
		if err := c.idem.Release(context.WithoutCancel(ctx), fullKey); err != nil {
			c.logger.Warn("failed to release idempotency key",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}, nil
}

func validateItems(items []SaleItemInput) error {
	if len(items) == 0 {
		return shared.NewInvalidArgument("items", "at least one item is required")
	}
	for i, item := range items {
		if item.ProductID == uuid.Nil {
			return shared.NewInvalidArgument(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if err := inventory.ValidateQuantity(fmt.Sprintf("items[%d].quantity", i), item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func loadProducts(ctx context.Context, repo catalog.ProductRepository, items []SaleItemInput) (map[uuid.UUID]*catalog.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	products, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, catalog.NewProductNotFound(id)
		}
	}
	return products, nil
}

func releaseAll(sale *sales.Sale) *inventory.Plan {
	plan := inventory.NewPlan()
	for _, item := range sale.Items {
		plan.Release(item.ProductID, item.Quantity)
	}
	return plan
}
