package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("matches sentinel by code", func(t *testing.T) {
		err := NewNotFoundError("product", uuid.New())

		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrValidation)
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		err := fmt.Errorf("load: %w", NewValidationError("bad %s", "input"))

		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "load: bad input", err.Error())
	})

	t.Run("does not match plain errors", func(t *testing.T) {
		assert.NotErrorIs(t, errors.New("NOT_FOUND"), ErrNotFound)
	})
}

func TestInsufficientStockError(t *testing.T) {
	productID, warehouseID := uuid.New(), uuid.New()
	err := NewInsufficientStockError(productID, warehouseID, 5, 8)

	assert.Equal(t, CodeInsufficientStock, ErrorCode(err))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "available 5, requested 8")

	var wrapped error = fmt.Errorf("submit: %w", err)
	var target *InsufficientStockError
	require.ErrorAs(t, wrapped, &target)
	assert.Equal(t, productID, target.ProductID)
	assert.Equal(t, warehouseID, target.WarehouseID)
	assert.EqualValues(t, 5, target.Available)
	assert.EqualValues(t, 8, target.Requested)

	var de *DomainError
	require.ErrorAs(t, wrapped, &de)
	assert.Equal(t, CodeInsufficientStock, de.Code)
}

func TestNewNegativeStockError(t *testing.T) {
	err := NewNegativeStockError(uuid.New(), uuid.New(), 3, -5)

	assert.ErrorIs(t, err, ErrNegativeStock)
	assert.Contains(t, err.Error(), "would leave -2 on hand")
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), ""},
		{"domain", ErrAlreadyVoided, CodeAlreadyVoided},
		{"wrapped", fmt.Errorf("x: %w", ErrCreditLimitExceeded), CodeCreditLimitExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrConcurrencyConflict))
	assert.True(t, IsRetryable(fmt.Errorf("lock: %w", ErrConcurrencyConflict)))
	assert.False(t, IsRetryable(ErrInsufficientStock))
	assert.False(t, IsRetryable(errors.New("timeout")))
}
