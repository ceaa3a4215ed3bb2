package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{shared.CodeValidation, http.StatusBadRequest},
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeAlreadyExists, http.StatusConflict},
		{shared.CodeAlreadyVoided, http.StatusConflict},
		{shared.CodeConcurrencyConflict, http.StatusConflict},
		{shared.CodeInvalidState, http.StatusConflict},
		{shared.CodeInsufficientStock, http.StatusUnprocessableEntity},
		{shared.CodeNegativeStock, http.StatusUnprocessableEntity},
		{shared.CodeCreditLimitExceeded, http.StatusUnprocessableEntity},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestEveryDomainCodeHasAStatus(t *testing.T) {
	codes := []string{
		shared.CodeValidation, shared.CodeNotFound, shared.CodeAlreadyExists,
		shared.CodeInsufficientStock, shared.CodeNegativeStock, shared.CodeCreditLimitExceeded,
		shared.CodeAlreadyVoided, shared.CodeConcurrencyConflict, shared.CodeInvalidState,
	}
	for _, code := range codes {
		_, ok := ErrorCodeHTTPStatus[code]
		assert.True(t, ok, "no status for %s", code)
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 45, 2, 20)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	empty := NewSuccessResponseWithMeta(nil, 0, 1, 0)
	assert.Equal(t, 0, empty.Meta.TotalPages)
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID(shared.CodeInsufficientStock, "not enough", "req-1")
	resp.Error.Stock = &StockShortfall{ProductID: "p", WarehouseID: "w", Available: 3, Requested: 5}

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "data")

	errInfo := decoded["error"].(map[string]any)
	assert.Equal(t, "INSUFFICIENT_STOCK", errInfo["code"])
	assert.Equal(t, "req-1", errInfo["request_id"])
	assert.NotContains(t, errInfo, "details")
	stock := errInfo["stock"].(map[string]any)
	assert.Equal(t, float64(3), stock["available"])
	assert.Equal(t, float64(5), stock["requested"])
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-2", []ValidationDetail{
		{Field: "quantity", Message: "Must be greater than 0"},
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-2", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "quantity", resp.Error.Details[0].Field)
}
