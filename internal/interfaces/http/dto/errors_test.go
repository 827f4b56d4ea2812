package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodePersistenceFailure, http.StatusServiceUnavailable},
		{ErrCodeReconciliationRequired, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInsufficientStock, http.StatusUnprocessableEntity},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
	assert.Equal(t, ErrCodeInsufficientStock, NormalizeErrorCode("INSUFFICIENT_STOCK"))
	assert.Equal(t, ErrCodeReconciliationRequired, NormalizeErrorCode("RECONCILIATION_REQUIRED"))
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))
	assert.Equal(t, "CUSTOM", NormalizeErrorCode("CUSTOM"))

	for domainCode, apiCode := range DomainErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[apiCode]
		assert.True(t, ok, "%s maps to %s which has no HTTP status", domainCode, apiCode)
	}
}

func TestFromError(t *testing.T) {
	productID := uuid.New()

	t.Run("insufficient stock carries the quantities", func(t *testing.T) {
		err := fmt.Errorf("create sale: %w", &inventory.InsufficientStockError{
			ProductID: productID, Available: 2, Requested: 5,
		})
		apiErr := FromError(err, "req-1")

		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
		assert.Equal(t, ErrCodeInsufficientStock, apiErr.Info.Code)
		assert.Equal(t, "req-1", apiErr.Info.RequestID)
		assert.Equal(t, productID.String(), apiErr.Info.Details["product_id"])
		assert.EqualValues(t, 2, apiErr.Info.Details["available"])
		assert.EqualValues(t, 5, apiErr.Info.Details["requested"])
	})

	t.Run("invalid argument", func(t *testing.T) {
		apiErr := FromError(shared.NewInvalidArgument("quantity", "must be positive"), "")
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Equal(t, ErrCodeInvalidInput, apiErr.Info.Code)
		assert.Equal(t, "invalid argument quantity: must be positive", apiErr.Info.Message)
		assert.Equal(t, "quantity", apiErr.Info.Details["field"])
	})

	t.Run("persistence failures hide the driver message", func(t *testing.T) {
		err := shared.NewPersistenceError("save sale", errors.New("pq: password authentication failed"))
		apiErr := FromError(err, "")
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
		assert.NotContains(t, apiErr.Info.Message, "password")
		assert.Equal(t, "save sale", apiErr.Info.Details["operation"])
	})

	t.Run("reconciliation wins over the underlying persistence failure", func(t *testing.T) {
		err := &sales.ReconciliationRequiredError{
			Operation: "delete_sale",
			Pending:   []inventory.Movement{{ProductID: productID, Quantity: 3, Direction: inventory.DirectionRelease}},
			Cause:     errors.New("boom"),
			CompErr:   shared.NewPersistenceError("release stock", errors.New("conn reset")),
		}
		apiErr := FromError(err, "")
		assert.Equal(t, ErrCodeReconciliationRequired, apiErr.Info.Code)
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
		assert.Equal(t, "delete_sale", apiErr.Info.Details["operation"])
	})

	t.Run("unknown errors are internal", func(t *testing.T) {
		apiErr := FromError(errors.New("nil pointer somewhere"), "req-2")
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
		assert.Equal(t, ErrCodeInternal, apiErr.Info.Code)
		assert.NotContains(t, apiErr.Info.Message, "nil pointer")
	})
}

func TestResponses(t *testing.T) {
	t.Run("paginated response never serializes null data", func(t *testing.T) {
		resp := NewPaginatedResponse(shared.NewPaginated[string](nil, 0, shared.DefaultPage()))
		body, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"data":[],"meta":{"total":0,"page":1,"page_size":20,"total_pages":0}}`, string(body))
	})

	t.Run("validation response lists fields", func(t *testing.T) {
		resp := NewValidationErrorResponse("Request validation failed", "req-3",
			[]ValidationDetail{{Field: "items", Message: "This field is required"}})
		body, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_VALIDATION","message":"Request validation failed",
			"request_id":"req-3","details":{"fields":[{"field":"items","message":"This field is required"}]}}}`, string(body))
	})
}
