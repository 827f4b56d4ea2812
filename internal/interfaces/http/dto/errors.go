package dto

import (
	"errors"
	"net/http"

	"github.com/erp/salesengine/internal/domain/shared"
)

// Error codes, formatted ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeInternal           = "ERR_INTERNAL"
	ErrCodePersistenceFailure = "ERR_PERSISTENCE_FAILURE"
	// ErrCodeReconciliationRequired means stock movements could not be
	// undone and an operator has to reconcile them
	ErrCodeReconciliationRequired = "ERR_RECONCILIATION_REQUIRED"
)

// Input error codes
const (
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:               http.StatusInternalServerError,
	ErrCodePersistenceFailure:     http.StatusServiceUnavailable,
	ErrCodeReconciliationRequired: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code, 500 when
// the code is unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.ErrNotFound.Code:               ErrCodeNotFound,
	shared.ErrAlreadyExists.Code:          ErrCodeAlreadyExists,
	shared.ErrInvalidInput.Code:           ErrCodeInvalidInput,
	shared.ErrInvalidState.Code:           ErrCodeInvalidState,
	shared.ErrConcurrencyConflict.Code:    ErrCodeConcurrencyConflict,
	shared.ErrInsufficientStock.Code:      ErrCodeInsufficientStock,
	shared.ErrPersistenceFailure.Code:     ErrCodePersistenceFailure,
	shared.ErrReconciliationRequired.Code: ErrCodeReconciliationRequired,
}

// NormalizeErrorCode converts a domain error code to its API form. Codes
// already in API form, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}

// APIError is an error resolved into its response form
type APIError struct {
	Status int
	Info   ErrorInfo
}

// FromError resolves err into an API error. Errors that do not wrap a
// domain sentinel become ERR_INTERNAL with a generic message. Storage
// failures never expose driver messages.
func FromError(err error, requestID string) APIError {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return APIError{
			Status: http.StatusInternalServerError,
			Info: ErrorInfo{
				Code:      ErrCodeInternal,
				Message:   "An unexpected error occurred",
				RequestID: requestID,
			},
		}
	}

	code := NormalizeErrorCode(domainErr.Code)
	info := ErrorInfo{Code: code, Message: err.Error(), RequestID: requestID}

	if code == ErrCodePersistenceFailure {
		info.Message = domainErr.Message
	}
	var detailed shared.DetailedError
	if errors.As(err, &detailed) {
		info.Details = detailed.Details()
	}
	return APIError{Status: GetHTTPStatus(code), Info: info}
}
