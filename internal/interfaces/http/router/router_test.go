package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/application/masterdata"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/memory"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, []string{"GET /api/v1/test/ping"}, r.Routes())
}

func TestDomainGroup_MiddlewareAndSubgroups(t *testing.T) {
	engine := gin.New()
	var order []string
	tag := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) { order = append(order, name); c.Next() }
	}

	g := NewDomainGroup("catalog", "/catalog").Use(tag("outer"))
	g.Group("items", "/items").Use(tag("inner")).
		PUT("/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })
	g.RegisterRoutes(engine.Group("/api/v1"))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/catalog/items/42", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())
	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, "catalog", g.Name())
	assert.Equal(t, "/catalog", g.Prefix())
}

// newLedgerAPI mounts the ledger routes behind JWT over an in-memory store
func newLedgerAPI(t *testing.T) (*gin.Engine, *auth.JWTService, *Router) {
	t.Helper()
	store := memory.NewStore(memory.ReadModeCache)
	locker := cache.NewInMemoryKeyLocker()
	coordinator := appledger.NewCoordinator(store, locker, appledger.DefaultCoordinatorConfig(), nil)
	queries := appledger.NewQueryService(store, store, store, store)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "router-test-secret-of-32-characters",
		Issuer:                "ledger-test",
		AccessTokenExpiration: time.Hour,
	})

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.JWTAuthMiddleware(jwtService))
	r := NewRouter(engine)
	r.Register(LedgerGroups(Handlers{
		Ledger:     handler.NewLedgerHandler(coordinator, queries),
		Query:      handler.NewQueryHandler(queries, appledger.NewReorderMonitor(store, store, nil)),
		MasterData: handler.NewMasterDataHandler(masterdata.NewService(store, store, store, store, locker, nil)),
		System:     handler.NewSystemHandler("ledger", "test"),
	}, middleware.RoleGateConfig{})...)
	r.Setup()
	return engine, jwtService, r
}

func call(t *testing.T, engine *gin.Engine, svc *auth.JWTService, role auth.Role, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, _, err := svc.GenerateAccessToken(uuid.New(), role)
		require.NoError(t, err)
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestLedgerGroups_Routes(t *testing.T) {
	_, _, r := newLedgerAPI(t)

	routes := r.Routes()
	for _, want := range []string{
		"POST /api/v1/transactions",
		"GET /api/v1/transactions/:id",
		"POST /api/v1/transactions/:id/void",
		"POST /api/v1/expenses",
		"POST /api/v1/payments",
		"GET /api/v1/journal",
		"GET /api/v1/stock/:product_id/:warehouse_id",
		"GET /api/v1/balances/accounts/:id",
		"GET /api/v1/balances/parties/:id",
		"GET /api/v1/reorder",
		"POST /api/v1/products",
		"GET /api/v1/products",
		"DELETE /api/v1/products/:id",
		"POST /api/v1/warehouses",
		"POST /api/v1/parties",
		"POST /api/v1/accounts",
		"GET /api/v1/health",
	} {
		assert.Contains(t, routes, want)
	}
}

func TestLedgerGroups_RoleGates(t *testing.T) {
	engine, svc, _ := newLedgerAPI(t)
	product := map[string]any{"sku": "SKU-" + uuid.NewString()[:8], "name": "Widget"}

	tests := []struct {
		name   string
		role   auth.Role
		method string
		path   string
		body   any
		status int
	}{
		{"health needs no token", "", http.MethodGet, "/api/v1/health", nil, http.StatusOK},
		{"journal needs a token", "", http.MethodGet, "/api/v1/journal", nil, http.StatusUnauthorized},
		{"auditor reads journal", auth.RoleAuditor, http.MethodGet, "/api/v1/journal", nil, http.StatusOK},
		{"operator reads reorder", auth.RoleOperator, http.MethodGet, "/api/v1/reorder", nil, http.StatusOK},
		{"auditor cannot submit", auth.RoleAuditor, http.MethodPost, "/api/v1/transactions", map[string]any{}, http.StatusForbidden},
		{"auditor cannot post expenses", auth.RoleAuditor, http.MethodPost, "/api/v1/expenses", map[string]any{}, http.StatusForbidden},
		{"operator reaches submit validation", auth.RoleOperator, http.MethodPost, "/api/v1/transactions", map[string]any{}, http.StatusBadRequest},
		{"operator cannot create products", auth.RoleOperator, http.MethodPost, "/api/v1/products", product, http.StatusForbidden},
		{"admin creates products", auth.RoleAdmin, http.MethodPost, "/api/v1/products", product, http.StatusCreated},
		{"admin passes operator gate", auth.RoleAdmin, http.MethodGet, "/api/v1/journal", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(t, engine, svc, tt.role, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestRegisterHealth(t *testing.T) {
	engine := gin.New()
	RegisterHealth(engine, handler.NewSystemHandler("ledger", "test"))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
