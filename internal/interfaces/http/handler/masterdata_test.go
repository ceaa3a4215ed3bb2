package handler

import (
	"net/http"
	"testing"

	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasterDataHandler_ProductLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/products", map[string]any{
		"sku":           "sku-100",
		"barcode":       "4006381333931",
		"name":          "Widget",
		"cost_price":    "1.20",
		"selling_price": "2.00",
		"reorder_level": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var product ProductResponse
	decode(t, w, &product)
	assert.Equal(t, "SKU-100", product.SKU)
	assert.Equal(t, int64(5), product.ReorderLevel)

	dup := env.do(http.MethodPost, "/products", map[string]any{"sku": "SKU-100", "name": "Other"})
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, dto.ErrCodeAlreadyExists, decode(t, dup, nil).Error.Code)

	w = env.do(http.MethodPut, "/products/"+product.ID.String()+"/reorder-level", map[string]any{"reorder_level": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &product)
	assert.Zero(t, product.ReorderLevel)

	var list []ProductResponse
	decode(t, env.do(http.MethodGet, "/products", nil), &list)
	assert.Len(t, list, 1)

	w = env.do(http.MethodDelete, "/products/"+product.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/products/"+product.ID.String(), nil).Code)

	reuse := env.do(http.MethodPost, "/products", map[string]any{"sku": "SKU-100", "name": "Widget v2"})
	assert.Equal(t, http.StatusCreated, reuse.Code, reuse.Body.String())
}

func TestMasterDataHandler_DeletedProductRejectsTransactions(t *testing.T) {
	env := newTestEnv(t)
	productID := env.product("SKU-1", 0)
	warehouseID := env.warehouse("WH-1")

	require.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/products/"+productID.String(), nil).Code)

	w := env.do(http.MethodPost, "/transactions", map[string]any{
		"type":            "IN",
		"to_warehouse_id": warehouseID,
		"items":           []map[string]any{{"product_id": productID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMasterDataHandler_CreateReferences(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/warehouses", map[string]any{"code": "wh-main", "name": "Main"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var wh WarehouseResponse
	decode(t, w, &wh)
	assert.Equal(t, "WH-MAIN", wh.Code)

	w = env.do(http.MethodPost, "/parties", map[string]any{
		"name":         "Supplier Co",
		"type":         "SUPPLIER",
		"balance_type": "CREDIT",
		"credit_limit": "1000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var party PartyResponse
	decode(t, w, &party)
	assert.Equal(t, "CREDIT", party.BalanceType)
	assert.Equal(t, "1000", party.CreditLimit)

	w = env.do(http.MethodPost, "/accounts", map[string]any{"code": "BANK-1", "name": "Bank", "type": "BANK"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	bad := env.do(http.MethodPost, "/accounts", map[string]any{"code": "X", "name": "X", "type": "CRYPTO"})
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	badLimit := env.do(http.MethodPost, "/parties", map[string]any{
		"name": "P", "type": "CUSTOMER", "balance_type": "DEBIT", "credit_limit": "-1",
	})
	assert.Equal(t, http.StatusBadRequest, badLimit.Code)
}
