package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequireRoles(t *testing.T) {
	svc := newTestJWTService(time.Minute)

	r := gin.New()
	r.Use(JWTAuthMiddleware(svc))
	r.POST("/api/v1/transactions", RequireRoles(auth.RoleOperator), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	r.GET("/api/v1/journal", RequireRoles(auth.RoleOperator, auth.RoleAuditor), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/api/v1/products", RequireRoles(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	tests := []struct {
		name   string
		method string
		path   string
		role   auth.Role
		want   int
	}{
		{"operator submits", http.MethodPost, "/api/v1/transactions", auth.RoleOperator, http.StatusCreated},
		{"auditor cannot submit", http.MethodPost, "/api/v1/transactions", auth.RoleAuditor, http.StatusForbidden},
		{"admin passes every gate", http.MethodPost, "/api/v1/transactions", auth.RoleAdmin, http.StatusCreated},
		{"auditor reads journal", http.MethodGet, "/api/v1/journal", auth.RoleAuditor, http.StatusOK},
		{"admin-only route rejects operator", http.MethodPost, "/api/v1/products", auth.RoleOperator, http.StatusForbidden},
		{"admin-only route admits admin", http.MethodPost, "/api/v1/products", auth.RoleAdmin, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set(AuthHeaderKey, bearer(t, svc, uuid.New(), tt.role))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRoles_WithoutAuthentication(t *testing.T) {
	r := gin.New()
	r.GET("/", RequireRoles(auth.RoleAuditor), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
