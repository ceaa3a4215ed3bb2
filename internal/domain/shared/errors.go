package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error codes shared by every ledger operation
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeNegativeStock       = "NEGATIVE_STOCK"
	CodeCreditLimitExceeded = "CREDIT_LIMIT_EXCEEDED"
	CodeAlreadyVoided       = "ALREADY_VOIDED"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInvalidState        = "INVALID_STATE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same error code, so that
// errors.Is(err, shared.ErrNotFound) matches any NOT_FOUND error.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrValidation          = NewDomainError(CodeValidation, "Invalid request")
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrNegativeStock       = NewDomainError(CodeNegativeStock, "Stock level would become negative")
	ErrCreditLimitExceeded = NewDomainError(CodeCreditLimitExceeded, "Party credit limit exceeded")
	ErrAlreadyVoided       = NewDomainError(CodeAlreadyVoided, "Transaction has already been voided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource is locked by another operation")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
)

// NewValidationError creates a VALIDATION_ERROR with a formatted message
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError creates a NOT_FOUND error naming the missing resource
func NewNotFoundError(resource string, id uuid.UUID) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", resource, id))
}

// InsufficientStockError is returned when an outbound movement would oversell.
// It carries the figures the caller needs to correct the request.
type InsufficientStockError struct {
	DomainError
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Available   int64     `json:"available"`
	Requested   int64     `json:"requested"`
}

// NewInsufficientStockError creates an InsufficientStockError
func NewInsufficientStockError(productID, warehouseID uuid.UUID, available, requested int64) *InsufficientStockError {
	return &InsufficientStockError{
		DomainError: DomainError{
			Code: CodeInsufficientStock,
			Message: fmt.Sprintf("insufficient stock for product %s in warehouse %s: available %d, requested %d",
				productID, warehouseID, available, requested),
		},
		ProductID:   productID,
		WarehouseID: warehouseID,
		Available:   available,
		Requested:   requested,
	}
}

// Unwrap exposes the embedded DomainError to errors.As
func (e *InsufficientStockError) Unwrap() error {
	return &e.DomainError
}

// NewNegativeStockError reports a store-level invariant breach
func NewNegativeStockError(productID, warehouseID uuid.UUID, current, delta int64) *DomainError {
	return NewDomainError(CodeNegativeStock,
		fmt.Sprintf("applying %d to product %s in warehouse %s would leave %d on hand",
			delta, productID, warehouseID, current+delta))
}

// ErrorCode returns the domain code carried by err, or an empty string
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsRetryable reports whether the caller may retry the operation with backoff.
// Only lock contention qualifies.
func IsRetryable(err error) bool {
	return ErrorCode(err) == CodeConcurrencyConflict
}
