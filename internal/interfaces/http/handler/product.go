package handler

import (
	"context"

	appcatalog "github.com/erp/salesengine/internal/application/catalog"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProductService is the catalog service used by the product endpoints
type ProductService interface {
	Create(ctx context.Context, req appcatalog.CreateProductRequest) (*appcatalog.ProductResponse, error)
	GetByID(ctx context.Context, productID uuid.UUID) (*appcatalog.ProductResponse, error)
	GetByCode(ctx context.Context, code string) (*appcatalog.ProductResponse, error)
	List(ctx context.Context, filter appcatalog.ProductListFilter) (shared.Paginated[appcatalog.ProductResponse], error)
	ChangePrice(ctx context.Context, productID uuid.UUID, req appcatalog.ChangePriceRequest) (*appcatalog.ProductResponse, error)
	Restock(ctx context.Context, productID uuid.UUID, req appcatalog.RestockRequest) (*appcatalog.ProductResponse, error)
}

// ProductHandler handles product HTTP endpoints
type ProductHandler struct {
	BaseHandler
	products ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// Create godoc
// @Summary      Create a product
// @Description  Create a catalog product with its unit price, tax rate and opening stock
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body appcatalog.CreateProductRequest true "Product creation request"
// @Success      201 {object} dto.Response{data=appcatalog.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req appcatalog.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// List godoc
// @Summary      List products
// @Description  List products, optionally filtered by a code or name search
// @Tags         products
// @Produce      json
// @Param        search query string false "Code or name contains"
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Page size" minimum(1) maximum(100)
// @Success      200 {object} dto.Response{data=[]appcatalog.ProductResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var filter appcatalog.ProductListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paginated(c, page)
}

// Get godoc
// @Summary      Get product by ID
// @Description  Retrieve a product with its current stock
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=appcatalog.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	product, err := h.products.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// GetByCode godoc
// @Summary      Get product by code
// @Description  Retrieve a product by its code
// @Tags         products
// @Produce      json
// @Param        code path string true "Product code"
// @Success      200 {object} dto.Response{data=appcatalog.ProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/code/{code} [get]
func (h *ProductHandler) GetByCode(c *gin.Context) {
	product, err := h.products.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// ChangePrice godoc
// @Summary      Change product pricing
// @Description  Change the unit price and tax rate; existing sale lines keep the price they were created with
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body appcatalog.ChangePriceRequest true "New pricing"
// @Success      200 {object} dto.Response{data=appcatalog.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id}/price [put]
func (h *ProductHandler) ChangePrice(c *gin.Context) {
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appcatalog.ChangePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.products.ChangePrice(c.Request.Context(), productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Restock godoc
// @Summary      Restock a product
// @Description  Add received units to the product stock through the stock ledger
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body appcatalog.RestockRequest true "Units received"
// @Success      200 {object} dto.Response{data=appcatalog.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id}/restock [post]
func (h *ProductHandler) Restock(c *gin.Context) {
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appcatalog.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.products.Restock(c.Request.Context(), productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}
