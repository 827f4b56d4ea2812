package handler

import (
	"context"
	"time"

	appsales "github.com/erp/salesengine/internal/application/sales"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/erp/salesengine/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader carries the client's key for sale creation retries
const IdempotencyKeyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength bounds the header value stored in the claim store
const maxIdempotencyKeyLength = 255

// SaleService is the part of the coordinator the sale endpoints call
type SaleService interface {
	CreateSale(ctx context.Context, req appsales.CreateSaleRequest) (*appsales.SaleResponse, error)
	AddLineItem(ctx context.Context, saleID uuid.UUID, req appsales.SaleItemInput) (*appsales.SaleResponse, error)
	UpdateLineItem(ctx context.Context, saleID, itemID uuid.UUID, req appsales.UpdateSaleItemRequest) (*appsales.SaleResponse, error)
	DeleteSale(ctx context.Context, saleID uuid.UUID) error
	DeleteLineItem(ctx context.Context, saleID, itemID uuid.UUID) (*appsales.DeleteItemResponse, error)
	ChangeStatus(ctx context.Context, saleID uuid.UUID, req appsales.ChangeSaleStatusRequest) (*appsales.SaleResponse, error)
	GetSale(ctx context.Context, saleID uuid.UUID) (*appsales.SaleResponse, error)
	GetSaleByNumber(ctx context.Context, number string) (*appsales.SaleResponse, error)
	ListSales(ctx context.Context, filter appsales.SaleListFilter) (shared.Paginated[appsales.SaleListItemResponse], error)
}

// SaleHandler handles sale HTTP endpoints
type SaleHandler struct {
	BaseHandler
	sales SaleService
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(sales SaleService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// listSalesQuery is the query string of GET /sales. Dates are calendar
// days; to is inclusive.
type listSalesQuery struct {
	Status     string     `form:"status" binding:"omitempty,oneof=PENDING COMPLETED CANCELLED RETURNED ON_HOLD"`
	CustomerID string     `form:"customer_id" binding:"omitempty,uuid"`
	EmployeeID string     `form:"employee_id" binding:"omitempty,uuid"`
	From       *time.Time `form:"from" time_format:"2006-01-02" time_utc:"1"`
	To         *time.Time `form:"to" time_format:"2006-01-02" time_utc:"1"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (q listSalesQuery) filter() appsales.SaleListFilter {
	f := appsales.SaleListFilter{
		Status:   q.Status,
		From:     q.From,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if id, err := uuid.Parse(q.CustomerID); err == nil {
		f.CustomerID = &id
	}
	if id, err := uuid.Parse(q.EmployeeID); err == nil {
		f.EmployeeID = &id
	}
	if q.To != nil {
		end := q.To.AddDate(0, 0, 1)
		f.To = &end
	}
	return f
}

// Create godoc
// @Summary      Create a sale
// @Description  Reserve stock for every item and store a new PENDING sale with the next daily sale number
// @Description  An Idempotency-Key header makes retries safe; a replayed key answers 409
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client retry key"
// @Param        request body appsales.CreateSaleRequest true "Sale creation request"
// @Success      201 {object} dto.Response{data=appsales.SaleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
	var req appsales.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if key := c.GetHeader(IdempotencyKeyHeader); key != "" {
		if len(key) > maxIdempotencyKeyLength {
			h.BadRequest(c, IdempotencyKeyHeader+" header is too long")
			return
		}
		req.IdempotencyKey = key
		c.Request = c.Request.WithContext(logger.WithIdempotencyKey(c.Request.Context(), key))
	}

	sale, err := h.sales.CreateSale(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sale)
}

// List godoc
// @Summary      List sales
// @Description  Filter by status, customer, employee and an inclusive calendar day range
// @Tags         sales
// @Produce      json
// @Param        status query string false "Sale status" Enums(PENDING, COMPLETED, CANCELLED, RETURNED, ON_HOLD)
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        employee_id query string false "Employee ID" format(uuid)
// @Param        from query string false "First day (YYYY-MM-DD)"
// @Param        to query string false "Last day, inclusive (YYYY-MM-DD)"
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Page size" minimum(1) maximum(100)
// @Success      200 {object} dto.Response{data=[]appsales.SaleListItemResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	var query listSalesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		h.BadRequest(c, "to must not be before from")
		return
	}

	page, err := h.sales.ListSales(c.Request.Context(), query.filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paginated(c, page)
}

// Get godoc
// @Summary      Get sale by ID
// @Description  Retrieve a sale with its line items
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} dto.Response{data=appsales.SaleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sales/{id} [get]
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	sale, err := h.sales.GetSale(c.Request.Context(), saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// GetByNumber godoc
// @Summary      Get sale by number
// @Description  Retrieve a sale by its sale number, e.g. SL20260105001
// @Tags         sales
// @Produce      json
// @Param        number path string true "Sale number"
// @Success      200 {object} dto.Response{data=appsales.SaleResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sales/number/{number} [get]
func (h *SaleHandler) GetByNumber(c *gin.Context) {
	sale, err := h.sales.GetSaleByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// Delete godoc
// @Summary      Delete a sale
// @Description  Delete a sale, returning the stock of a stock-holding sale
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sales/{id} [delete]
func (h *SaleHandler) Delete(c *gin.Context) {
	saleID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.sales.DeleteSale(c.Request.Context(), saleID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddItem godoc
// @Summary      Add a line item
// @Description  Reserve stock and append a line item to a PENDING or ON_HOLD sale
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body appsales.SaleItemInput true "Product and quantity"
// @Success      200 {object} dto.Response{data=appsales.SaleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sales/{id}/items [post]
func (h *SaleHandler) AddItem(c *gin.Context) {
	saleID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appsales.SaleItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	sale, err := h.sales.AddLineItem(c.Request.Context(), saleID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// UpdateItem godoc
// @Summary      Update a line item
// @Description  Replace the product and/or quantity of a line item, moving only the stock difference
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        item_id path string true "Line item ID" format(uuid)
// @Param        request body appsales.UpdateSaleItemRequest true "New product and quantity"
// @Success      200 {object} dto.Response{data=appsales.SaleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sales/{id}/items/{item_id} [put]
func (h *SaleHandler) UpdateItem(c *gin.Context) {
	saleID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "item_id")
	if !ok {
		return
	}
	var req appsales.UpdateSaleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	sale, err := h.sales.UpdateLineItem(c.Request.Context(), saleID, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// DeleteItem godoc
// @Summary      Delete a line item
// @Description  Remove a line item and return its stock
// @Description  The response says whether the sale itself went away with its last item
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        item_id path string true "Line item ID" format(uuid)
// @Success      200 {object} dto.Response{data=appsales.DeleteItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sales/{id}/items/{item_id} [delete]
func (h *SaleHandler) DeleteItem(c *gin.Context) {
	saleID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "item_id")
	if !ok {
		return
	}

	result, err := h.sales.DeleteLineItem(c.Request.Context(), saleID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ChangeStatus godoc
// @Summary      Change sale status
// @Description  Move a sale to another status; cancelling or returning a stock-holding sale releases its stock
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body appsales.ChangeSaleStatusRequest true "Target status"
// @Success      200 {object} dto.Response{data=appsales.SaleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sales/{id}/status [put]
func (h *SaleHandler) ChangeStatus(c *gin.Context) {
	saleID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appsales.ChangeSaleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	sale, err := h.sales.ChangeStatus(c.Request.Context(), saleID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}
