package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/application/masterdata"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/memory"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// testEnv wires the real coordinator over an in-memory store
type testEnv struct {
	t          *testing.T
	engine     *gin.Engine
	store      *memory.Store
	masterdata *masterdata.Service
	actorID    uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore(memory.ReadModeCache)
	locker := cache.NewInMemoryKeyLocker()
	coordinator := appledger.NewCoordinator(store, locker, appledger.DefaultCoordinatorConfig(), nil)
	idem := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = idem.Close() })
	coordinator.SetIdempotencyStore(idem)

	queries := appledger.NewQueryService(store, store, store, store)
	reorder := appledger.NewReorderMonitor(store, store, nil)
	md := masterdata.NewService(store, store, store, store, locker, nil)

	env := &testEnv{
		t:          t,
		store:      store,
		masterdata: md,
		actorID:    uuid.New(),
	}

	ledgerHandler := NewLedgerHandler(coordinator, queries)
	queryHandler := NewQueryHandler(queries, reorder)
	mdHandler := NewMasterDataHandler(md)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.JWTClaimsKey, &auth.Claims{ActorID: env.actorID.String(), Role: auth.RoleAdmin})
		c.Next()
	})
	r.POST("/transactions", ledgerHandler.SubmitTransaction)
	r.GET("/transactions/:id", ledgerHandler.GetTransaction)
	r.POST("/transactions/:id/void", ledgerHandler.VoidTransaction)
	r.POST("/expenses", ledgerHandler.PostExpense)
	r.POST("/payments", ledgerHandler.PostPayment)
	r.GET("/journal", queryHandler.ListJournal)
	r.GET("/stock/:product_id/:warehouse_id", queryHandler.GetStock)
	r.GET("/balances/accounts/:id", queryHandler.GetAccountBalance)
	r.GET("/balances/parties/:id", queryHandler.GetPartyBalance)
	r.GET("/reorder", queryHandler.ListReorder)
	r.POST("/products", mdHandler.CreateProduct)
	r.GET("/products", mdHandler.ListProducts)
	r.GET("/products/:id", mdHandler.GetProduct)
	r.PUT("/products/:id/reorder-level", mdHandler.UpdateReorderLevel)
	r.DELETE("/products/:id", mdHandler.DeleteProduct)
	r.POST("/warehouses", mdHandler.CreateWarehouse)
	r.POST("/parties", mdHandler.CreateParty)
	r.POST("/accounts", mdHandler.CreateAccount)
	env.engine = r
	return env
}

func (e *testEnv) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *testEnv) product(sku string, reorderLevel int64) uuid.UUID {
	e.t.Helper()
	p, err := e.masterdata.CreateProduct(context.Background(), masterdata.CreateProductInput{
		SKU:          sku,
		Name:         "Product " + sku,
		ReorderLevel: reorderLevel,
	})
	require.NoError(e.t, err)
	return p.ID
}

func (e *testEnv) warehouse(code string) uuid.UUID {
	e.t.Helper()
	w, err := e.masterdata.CreateWarehouse(context.Background(), code, "Warehouse "+code, "")
	require.NoError(e.t, err)
	return w.ID
}

func (e *testEnv) party(balanceType partner.BalanceType, limit string) uuid.UUID {
	e.t.Helper()
	p, err := e.masterdata.CreateParty(context.Background(), masterdata.CreatePartyInput{
		Name:        "Acme",
		Type:        partner.PartyTypeCustomer,
		BalanceType: balanceType,
		CreditLimit: decimal.RequireFromString(limit),
	})
	require.NoError(e.t, err)
	return p.ID
}

func (e *testEnv) account() uuid.UUID {
	e.t.Helper()
	a, err := e.masterdata.CreateAccount(context.Background(), "CASH-"+uuid.NewString()[:8], "Cash", finance.AccountTypeCash)
	require.NoError(e.t, err)
	return a.ID
}

// receive commits an IN transaction and fails the test on error
func (e *testEnv) receive(productID, warehouseID uuid.UUID, qty int64) {
	e.t.Helper()
	w := e.do(http.MethodPost, "/transactions", map[string]any{
		"type":            "IN",
		"to_warehouse_id": warehouseID,
		"items":           []map[string]any{{"product_id": productID, "quantity": qty, "price": "1.00"}},
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
}

// decode unmarshals the envelope and its data into out
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var raw struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return raw.Response
}
