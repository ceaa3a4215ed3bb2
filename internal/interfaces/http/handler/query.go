package handler

import (
	"context"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerReader answers read-only ledger queries
type LedgerReader interface {
	ListEntries(ctx context.Context, filter ledger.EntryFilter) (shared.Paginated[ledger.Entry], error)
	QuantityOnHand(ctx context.Context, productID, warehouseID uuid.UUID) (int64, error)
	Balance(ctx context.Context, key ledger.BalanceKey) (decimal.Decimal, error)
}

// ReorderLister lists records that need replenishment
type ReorderLister interface {
	BelowReorder(ctx context.Context) ([]appledger.ReorderAlert, error)
}

// JournalQuery holds the query parameters of GET /journal
type JournalQuery struct {
	dto.ListRequest
	Kind string `form:"kind" binding:"omitempty,oneof=STOCK BALANCE"`
}

// QueryHandler handles the read side of the ledger API
type QueryHandler struct {
	BaseHandler
	reader  LedgerReader
	reorder ReorderLister
}

// NewQueryHandler creates a new QueryHandler
func NewQueryHandler(reader LedgerReader, reorder ReorderLister) *QueryHandler {
	return &QueryHandler{reader: reader, reorder: reorder}
}

// ListJournal godoc
// @Summary      List journal entries
// @Description  Entries in commit order, filtered by product, warehouse, account, party, transaction or kind
// @Tags         journal
// @Produce      json
// @Param        after_seq query int false "Only entries after this sequence number"
// @Success      200 {object} dto.Response{data=[]EntryResponse}
// @Router       /journal [get]
func (h *QueryHandler) ListJournal(c *gin.Context) {
	var q JournalQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindingError(c, err)
		return
	}

	filter := ledger.EntryFilter{Page: shared.Page{Page: q.Page, PageSize: q.PageSize}.Normalize()}
	if q.Kind != "" {
		kind := ledger.EntryKind(q.Kind)
		filter.Kind = &kind
	}

	var err error
	for _, f := range []struct {
		name   string
		target **uuid.UUID
	}{
		{"product_id", &filter.ProductID},
		{"warehouse_id", &filter.WarehouseID},
		{"account_id", &filter.AccountID},
		{"party_id", &filter.PartyID},
		{"transaction_id", &filter.TransactionID},
	} {
		if *f.target, err = parseUUIDQuery(c, f.name); err != nil {
			h.HandleError(c, err)
			return
		}
	}
	if filter.AfterSeq, err = parseInt64Query(c, "after_seq"); err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.reader.ListEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, ToEntryResponses(result.Items), result.Total, result.Page, result.PageSize)
}

// GetStock godoc
// @Summary      Get quantity on hand
// @Tags         stock
// @Produce      json
// @Param        product_id path string true "Product ID"
// @Param        warehouse_id path string true "Warehouse ID"
// @Success      200 {object} dto.Response{data=StockResponse}
// @Router       /stock/{product_id}/{warehouse_id} [get]
func (h *QueryHandler) GetStock(c *gin.Context) {
	productID, err := parseUUIDParam(c, "product_id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	warehouseID, err := parseUUIDParam(c, "warehouse_id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	onHand, err := h.reader.QuantityOnHand(c.Request.Context(), productID, warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, StockResponse{ProductID: productID, WarehouseID: warehouseID, OnHand: onHand})
}

// GetAccountBalance godoc
// @Summary      Get an account balance
// @Tags         balances
// @Produce      json
// @Param        id path string true "Account ID"
// @Success      200 {object} dto.Response{data=BalanceResponse}
// @Router       /balances/accounts/{id} [get]
func (h *QueryHandler) GetAccountBalance(c *gin.Context) {
	h.balance(c, ledger.AccountKey)
}

// GetPartyBalance godoc
// @Summary      Get a party balance
// @Tags         balances
// @Produce      json
// @Param        id path string true "Party ID"
// @Success      200 {object} dto.Response{data=BalanceResponse}
// @Router       /balances/parties/{id} [get]
func (h *QueryHandler) GetPartyBalance(c *gin.Context) {
	h.balance(c, ledger.PartyKey)
}

func (h *QueryHandler) balance(c *gin.Context, keyOf func(uuid.UUID) ledger.BalanceKey) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	key := keyOf(id)
	balance, err := h.reader.Balance(c.Request.Context(), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, BalanceResponse{Owner: string(key.Owner), ID: id, Balance: balance.String()})
}

// ListReorder godoc
// @Summary      List records at or below their reorder level
// @Tags         stock
// @Produce      json
// @Success      200 {object} dto.Response{data=ReorderResponse}
// @Router       /reorder [get]
func (h *QueryHandler) ListReorder(c *gin.Context) {
	alerts, err := h.reorder.BelowReorder(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if alerts == nil {
		alerts = []appledger.ReorderAlert{}
	}
	h.Success(c, ReorderResponse{Alerts: alerts, Count: len(alerts)})
}
