package handler

import (
	"context"

	appsales "github.com/erp/salesengine/internal/application/sales"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconciliationService lists and resolves stock drift records
type ReconciliationService interface {
	ListOpen(ctx context.Context) ([]appsales.ReconciliationResponse, error)
	Resolve(ctx context.Context, id uuid.UUID) (*appsales.ReconciliationResponse, error)
}

// ReconciliationHandler exposes the records operators work through after a
// failed compensation
type ReconciliationHandler struct {
	BaseHandler
	service ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(service ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{service: service}
}

// ListOpen godoc
// @Summary      List open reconciliations
// @Description  List stock movements left unapplied by a failed compensation
// @Tags         reconciliations
// @Produce      json
// @Success      200 {object} dto.Response{data=[]appsales.ReconciliationResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /reconciliations [get]
func (h *ReconciliationHandler) ListOpen(c *gin.Context) {
	records, err := h.service.ListOpen(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if records == nil {
		records = []appsales.ReconciliationResponse{}
	}
	h.Success(c, records)
}

// Resolve godoc
// @Summary      Resolve a reconciliation
// @Description  Mark a record resolved once the stock has been corrected by hand
// @Tags         reconciliations
// @Produce      json
// @Param        id path string true "Reconciliation ID" format(uuid)
// @Success      200 {object} dto.Response{data=appsales.ReconciliationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /reconciliations/{id}/resolve [post]
func (h *ReconciliationHandler) Resolve(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	record, err := h.service.Resolve(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}
