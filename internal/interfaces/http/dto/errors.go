package dto

import (
	"net/http"

	"github.com/erp/ledger/internal/domain/shared"
)

// Ledger error codes are returned to clients unchanged
const (
	ErrCodeValidation          = shared.CodeValidation
	ErrCodeNotFound            = shared.CodeNotFound
	ErrCodeAlreadyExists       = shared.CodeAlreadyExists
	ErrCodeInsufficientStock   = shared.CodeInsufficientStock
	ErrCodeNegativeStock       = shared.CodeNegativeStock
	ErrCodeCreditLimitExceeded = shared.CodeCreditLimitExceeded
	ErrCodeAlreadyVoided       = shared.CodeAlreadyVoided
	ErrCodeConcurrencyConflict = shared.CodeConcurrencyConflict
	ErrCodeInvalidState        = shared.CodeInvalidState
)

// Transport error codes
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	// Malformed input -> 400
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeBadRequest: http.StatusBadRequest,

	// Auth
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound: http.StatusNotFound,

	// State conflicts -> 409; CONCURRENCY_CONFLICT is the retryable one
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeAlreadyVoided:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusConflict,

	// Business rule rejections -> 422
	ErrCodeInsufficientStock:   http.StatusUnprocessableEntity,
	ErrCodeNegativeStock:       http.StatusUnprocessableEntity,
	ErrCodeCreditLimitExceeded: http.StatusUnprocessableEntity,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
