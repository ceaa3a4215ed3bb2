package router

import (
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers are the HTTP handlers of the ledger API
type Handlers struct {
	Ledger     *handler.LedgerHandler
	Query      *handler.QueryHandler
	MasterData *handler.MasterDataHandler
	System     *handler.SystemHandler
}

// LedgerGroups returns the route groups of the ledger API. Writes need the
// operator role, reads operator or auditor, reference data admin.
// RequireRoles lets admin through every gate.
func LedgerGroups(h Handlers, gate middleware.RoleGateConfig) []RouteRegistrar {
	operator := middleware.RequireRolesWithConfig(gate, auth.RoleOperator)
	reader := middleware.RequireRolesWithConfig(gate, auth.RoleOperator, auth.RoleAuditor)
	admin := middleware.RequireRolesWithConfig(gate, auth.RoleAdmin)

	transactions := NewDomainGroup("transactions", "/transactions")
	transactions.POST("", operator, h.Ledger.SubmitTransaction)
	transactions.GET("/:id", reader, h.Ledger.GetTransaction)
	transactions.POST("/:id/void", operator, h.Ledger.VoidTransaction)

	movements := NewDomainGroup("movements", "").Use(operator)
	movements.POST("/expenses", h.Ledger.PostExpense)
	movements.POST("/payments", h.Ledger.PostPayment)

	queries := NewDomainGroup("queries", "").Use(reader)
	queries.GET("/journal", h.Query.ListJournal)
	queries.GET("/stock/:product_id/:warehouse_id", h.Query.GetStock)
	queries.GET("/balances/accounts/:id", h.Query.GetAccountBalance)
	queries.GET("/balances/parties/:id", h.Query.GetPartyBalance)
	queries.GET("/reorder", h.Query.ListReorder)

	masterdata := NewDomainGroup("masterdata", "").Use(admin)
	masterdata.Group("products", "/products").
		POST("", h.MasterData.CreateProduct).
		GET("", h.MasterData.ListProducts).
		GET("/:id", h.MasterData.GetProduct).
		PUT("/:id/reorder-level", h.MasterData.UpdateReorderLevel).
		DELETE("/:id", h.MasterData.DeleteProduct)
	masterdata.POST("/warehouses", h.MasterData.CreateWarehouse)
	masterdata.POST("/parties", h.MasterData.CreateParty)
	masterdata.POST("/accounts", h.MasterData.CreateAccount)

	system := NewDomainGroup("system", "")
	system.GET("/health", h.System.Health)
	system.GET("/system/info", reader, h.System.GetSystemInfo)

	return []RouteRegistrar{transactions, movements, queries, masterdata, system}
}

// RegisterHealth exposes the health probe outside the versioned API
func RegisterHealth(engine *gin.Engine, system *handler.SystemHandler) {
	engine.GET("/health", system.Health)
}
