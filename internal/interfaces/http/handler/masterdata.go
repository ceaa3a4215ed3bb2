package handler

import (
	"context"

	"github.com/erp/ledger/internal/application/masterdata"
	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MasterDataService manages products, warehouses, parties and accounts
type MasterDataService interface {
	CreateProduct(ctx context.Context, in masterdata.CreateProductInput) (*catalog.Product, error)
	UpdateReorderLevel(ctx context.Context, id uuid.UUID, level int64) (*catalog.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	ListProducts(ctx context.Context, page shared.Page) (shared.Paginated[catalog.Product], error)
	CreateWarehouse(ctx context.Context, code, name, location string) (*partner.Warehouse, error)
	CreateParty(ctx context.Context, in masterdata.CreatePartyInput) (*partner.Party, error)
	CreateAccount(ctx context.Context, code, name string, accountType finance.AccountType) (*finance.Account, error)
}

// CreateProductRequest is the body of POST /products
type CreateProductRequest struct {
	SKU          string `json:"sku" binding:"required,min=1,max=50"`
	Barcode      string `json:"barcode" binding:"omitempty,max=50"`
	Name         string `json:"name" binding:"required,min=1,max=200"`
	CategoryID   string `json:"category_id" binding:"omitempty,uuid"`
	CostPrice    string `json:"cost_price" binding:"omitempty,decimal"`
	SellingPrice string `json:"selling_price" binding:"omitempty,decimal"`
	ReorderLevel int64  `json:"reorder_level" binding:"omitempty,min=0"`
}

// UpdateReorderLevelRequest is the body of PUT /products/:id/reorder-level
type UpdateReorderLevelRequest struct {
	ReorderLevel *int64 `json:"reorder_level" binding:"required,min=0"`
}

// CreateWarehouseRequest is the body of POST /warehouses
type CreateWarehouseRequest struct {
	Code     string `json:"code" binding:"required,min=1,max=50"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Location string `json:"location" binding:"omitempty,max=200"`
}

// CreatePartyRequest is the body of POST /parties
type CreatePartyRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Type        string `json:"type" binding:"required,oneof=SUPPLIER CUSTOMER BOTH"`
	BalanceType string `json:"balance_type" binding:"required,oneof=DEBIT CREDIT"`
	CreditLimit string `json:"credit_limit" binding:"omitempty,decimal"`
}

// CreateAccountRequest is the body of POST /accounts
type CreateAccountRequest struct {
	Code string `json:"code" binding:"required,min=1,max=50"`
	Name string `json:"name" binding:"required,min=1,max=100"`
	Type string `json:"type" binding:"required,oneof=CASH BANK EXPENSE OTHER"`
}

// MasterDataHandler handles the reference data API
type MasterDataHandler struct {
	BaseHandler
	service MasterDataService
}

// NewMasterDataHandler creates a new MasterDataHandler
func NewMasterDataHandler(service MasterDataService) *MasterDataHandler {
	return &MasterDataHandler{service: service}
}

// CreateProduct godoc
// @Summary      Create a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Success      201 {object} dto.Response{data=ProductResponse}
// @Failure      400,409 {object} dto.Response
// @Router       /products [post]
func (h *MasterDataHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	product, err := h.service.CreateProduct(c.Request.Context(), masterdata.CreateProductInput{
		SKU:          req.SKU,
		Barcode:      req.Barcode,
		Name:         req.Name,
		CategoryID:   optionalUUID(req.CategoryID),
		CostPrice:    decimalOrZero(req.CostPrice),
		SellingPrice: decimalOrZero(req.SellingPrice),
		ReorderLevel: req.ReorderLevel,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ToProductResponse(product))
}

// GetProduct godoc
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=ProductResponse}
// @Router       /products/{id} [get]
func (h *MasterDataHandler) GetProduct(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToProductResponse(product))
}

// ListProducts godoc
// @Summary      List products
// @Tags         products
// @Produce      json
// @Success      200 {object} dto.Response{data=[]ProductResponse}
// @Router       /products [get]
func (h *MasterDataHandler) ListProducts(c *gin.Context) {
	var q dto.ListRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindingError(c, err)
		return
	}
	result, err := h.service.ListProducts(c.Request.Context(), shared.Page{Page: q.Page, PageSize: q.PageSize})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	items := make([]ProductResponse, len(result.Items))
	for i := range result.Items {
		items[i] = ToProductResponse(&result.Items[i])
	}
	h.SuccessWithMeta(c, items, result.Total, result.Page, result.PageSize)
}

// UpdateReorderLevel godoc
// @Summary      Change a product's reorder level
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=ProductResponse}
// @Router       /products/{id}/reorder-level [put]
func (h *MasterDataHandler) UpdateReorderLevel(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req UpdateReorderLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	product, err := h.service.UpdateReorderLevel(c.Request.Context(), id, *req.ReorderLevel)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToProductResponse(product))
}

// DeleteProduct godoc
// @Summary      Soft-delete a product
// @Tags         products
// @Param        id path string true "Product ID"
// @Success      204
// @Router       /products/{id} [delete]
func (h *MasterDataHandler) DeleteProduct(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.service.DeleteProduct(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// CreateWarehouse godoc
// @Summary      Create a warehouse
// @Tags         warehouses
// @Accept       json
// @Produce      json
// @Success      201 {object} dto.Response{data=WarehouseResponse}
// @Router       /warehouses [post]
func (h *MasterDataHandler) CreateWarehouse(c *gin.Context) {
	var req CreateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	warehouse, err := h.service.CreateWarehouse(c.Request.Context(), req.Code, req.Name, req.Location)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ToWarehouseResponse(warehouse))
}

// CreateParty godoc
// @Summary      Create a trading party
// @Tags         parties
// @Accept       json
// @Produce      json
// @Success      201 {object} dto.Response{data=PartyResponse}
// @Router       /parties [post]
func (h *MasterDataHandler) CreateParty(c *gin.Context) {
	var req CreatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	party, err := h.service.CreateParty(c.Request.Context(), masterdata.CreatePartyInput{
		Name:        req.Name,
		Type:        partner.PartyType(req.Type),
		BalanceType: partner.BalanceType(req.BalanceType),
		CreditLimit: decimalOrZero(req.CreditLimit),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ToPartyResponse(party))
}

// CreateAccount godoc
// @Summary      Create a financial account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Success      201 {object} dto.Response{data=AccountResponse}
// @Router       /accounts [post]
func (h *MasterDataHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	account, err := h.service.CreateAccount(c.Request.Context(), req.Code, req.Name, finance.AccountType(req.Type))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ToAccountResponse(account))
}

// decimalOrZero parses a pre-validated decimal string
func decimalOrZero(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
