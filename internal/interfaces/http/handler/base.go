// Package handler holds the gin handlers of the sales API. Handlers bind and
// validate input, call one application service and render the envelope.
package handler

import (
	"errors"
	"net/http"

	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/erp/salesengine/internal/infrastructure/logger"
	"github.com/erp/salesengine/internal/interfaces/http/dto"
	"github.com/erp/salesengine/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, message, middleware.GetRequestID(c)))
}

// BindError reports a failed ShouldBind call: per-field details for
// validation failures, ERR_INVALID_JSON for anything the decoder rejected
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	requestID := middleware.GetRequestID(c)
	if details := middleware.ValidationDetails(err); details != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", requestID, details))
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(dto.ErrCodeRequestTooLarge,
			"Request body exceeds maximum allowed size", requestID))
		return
	}
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidJSON, "Malformed request: "+err.Error(), requestID))
}

// HandleError renders err in the envelope. Server side failures are logged
// with the request's correlation fields; client errors are only attached
// to the gin context for the access log.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	apiErr := dto.FromError(err, middleware.GetRequestID(c))
	_ = c.Error(err)

	if apiErr.Status >= http.StatusInternalServerError {
		log := logger.Gin(c)
		fields := []zap.Field{zap.String("code", apiErr.Info.Code), zap.Error(err)}
		if errors.Is(err, shared.ErrReconciliationRequired) {
			log.Error("operation left stock needing reconciliation", fields...)
		} else {
			log.Error("request failed", fields...)
		}
	}
	c.JSON(apiErr.Status, dto.Response{Success: false, Error: &apiErr.Info})
}

// uuidParam parses the named path parameter, answering 400 when it is not
// a UUID
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format, expected a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// paginated sends a list response with pagination meta
func paginated[T any](c *gin.Context, page shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}
