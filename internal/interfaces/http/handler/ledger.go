package handler

import (
	"context"
	"strings"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerWriter commits stock transactions and money movements
type LedgerWriter interface {
	Submit(ctx context.Context, req ledger.TransactionRequest) (*ledger.Transaction, error)
	Void(ctx context.Context, transactionID, actorID uuid.UUID) (*ledger.Transaction, error)
	PostMovement(ctx context.Context, m finance.Movement, actorID uuid.UUID, enforceCreditLimit bool) (*ledger.Entry, error)
}

// TransactionGetter loads committed transactions
type TransactionGetter interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error)
}

// ItemRequest is one product line of a submitted transaction
type ItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
	Price     string `json:"price" binding:"omitempty,decimal"`
}

// SettlementRequest is a money movement committed with a transaction
type SettlementRequest struct {
	Kind      string `json:"kind" binding:"required,oneof=EXPENSE PAYMENT_MADE PAYMENT_RECEIVED"`
	Amount    string `json:"amount" binding:"required,positive_decimal"`
	AccountID string `json:"account_id" binding:"omitempty,uuid"`
	PartyID   string `json:"party_id" binding:"omitempty,uuid"`
	Category  string `json:"category" binding:"omitempty,max=100"`
	Reference string `json:"reference" binding:"omitempty,max=200"`
}

// SubmitTransactionRequest is the body of POST /transactions
type SubmitTransactionRequest struct {
	Type               string              `json:"type" binding:"required,oneof=IN OUT TRANSFER"`
	Items              []ItemRequest       `json:"items" binding:"required,min=1,dive"`
	FromWarehouseID    string              `json:"from_warehouse_id" binding:"omitempty,uuid"`
	ToWarehouseID      string              `json:"to_warehouse_id" binding:"omitempty,uuid"`
	PartyID            string              `json:"party_id" binding:"omitempty,uuid"`
	Reference          string              `json:"reference" binding:"omitempty,max=200"`
	Settlements        []SettlementRequest `json:"settlements" binding:"omitempty,dive"`
	IdempotencyKey     string              `json:"idempotency_key" binding:"omitempty,max=128"`
	EnforceCreditLimit bool                `json:"enforce_credit_limit"`
}

// ExpenseRequest is the body of POST /expenses
type ExpenseRequest struct {
	Amount             string `json:"amount" binding:"required,positive_decimal"`
	AccountID          string `json:"account_id" binding:"omitempty,uuid"`
	PartyID            string `json:"party_id" binding:"omitempty,uuid"`
	Category           string `json:"category" binding:"omitempty,max=100"`
	Reference          string `json:"reference" binding:"omitempty,max=200"`
	EnforceCreditLimit bool   `json:"enforce_credit_limit"`
}

// PaymentRequest is the body of POST /payments
type PaymentRequest struct {
	Direction          string `json:"direction" binding:"required,oneof=PAYMENT_MADE PAYMENT_RECEIVED"`
	Amount             string `json:"amount" binding:"required,positive_decimal"`
	AccountID          string `json:"account_id" binding:"omitempty,uuid"`
	PartyID            string `json:"party_id" binding:"omitempty,uuid"`
	Reference          string `json:"reference" binding:"omitempty,max=200"`
	EnforceCreditLimit bool   `json:"enforce_credit_limit"`
}

// LedgerHandler handles the write side of the ledger API
type LedgerHandler struct {
	BaseHandler
	writer       LedgerWriter
	transactions TransactionGetter
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(writer LedgerWriter, transactions TransactionGetter) *LedgerHandler {
	return &LedgerHandler{writer: writer, transactions: transactions}
}

// SubmitTransaction godoc
// @Summary      Submit a stock transaction
// @Description  Validates and atomically commits an IN, OUT or TRANSFER with optional settlements
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client idempotency key"
// @Success      201 {object} dto.Response{data=TransactionResponse}
// @Failure      400,409,422 {object} dto.Response
// @Router       /transactions [post]
func (h *LedgerHandler) SubmitTransaction(c *gin.Context) {
	var req SubmitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	txReq, err := req.toDomain(actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if key := strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader)); key != "" {
		txReq.IdempotencyKey = key
	}

	tx, err := h.writer.Submit(c.Request.Context(), txReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ToTransactionResponse(tx))
}

// GetTransaction godoc
// @Summary      Get a transaction
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID"
// @Success      200 {object} dto.Response{data=TransactionResponse}
// @Failure      404 {object} dto.Response
// @Router       /transactions/{id} [get]
func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	tx, err := h.transactions.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToTransactionResponse(tx))
}

// VoidTransaction godoc
// @Summary      Void a transaction
// @Description  Appends compensating entries for every entry the transaction produced
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID"
// @Success      200 {object} dto.Response{data=TransactionResponse}
// @Failure      404,409,422 {object} dto.Response
// @Router       /transactions/{id}/void [post]
func (h *LedgerHandler) VoidTransaction(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}
	tx, err := h.writer.Void(c.Request.Context(), id, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToTransactionResponse(tx))
}

// PostExpense godoc
// @Summary      Record an expense
// @Tags         movements
// @Accept       json
// @Produce      json
// @Success      201 {object} dto.Response{data=EntryResponse}
// @Failure      400,404,422 {object} dto.Response
// @Router       /expenses [post]
func (h *LedgerHandler) PostExpense(c *gin.Context) {
	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	movement, err := newSettlement(SettlementRequest{
		Kind:      string(finance.MovementKindExpense),
		Amount:    req.Amount,
		AccountID: req.AccountID,
		PartyID:   req.PartyID,
		Category:  req.Category,
		Reference: req.Reference,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.postMovement(c, movement, req.EnforceCreditLimit)
}

// PostPayment godoc
// @Summary      Record a payment made or received
// @Tags         movements
// @Accept       json
// @Produce      json
// @Success      201 {object} dto.Response{data=EntryResponse}
// @Failure      400,404,422 {object} dto.Response
// @Router       /payments [post]
func (h *LedgerHandler) PostPayment(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	movement, err := newSettlement(SettlementRequest{
		Kind:      req.Direction,
		Amount:    req.Amount,
		AccountID: req.AccountID,
		PartyID:   req.PartyID,
		Reference: req.Reference,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.postMovement(c, movement, req.EnforceCreditLimit)
}

func (h *LedgerHandler) postMovement(c *gin.Context, movement finance.Movement, enforce bool) {
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}
	entry, err := h.writer.PostMovement(c.Request.Context(), movement, actorID, enforce)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ToEntryResponse(entry))
}

func (r SubmitTransactionRequest) toDomain(actorID uuid.UUID) (ledger.TransactionRequest, error) {
	req := ledger.TransactionRequest{
		Type:               ledger.TransactionType(r.Type),
		Reference:          r.Reference,
		ActorID:            actorID,
		IdempotencyKey:     strings.TrimSpace(r.IdempotencyKey),
		EnforceCreditLimit: r.EnforceCreditLimit,
		FromWarehouseID:    optionalUUID(r.FromWarehouseID),
		ToWarehouseID:      optionalUUID(r.ToWarehouseID),
		PartyID:            optionalUUID(r.PartyID),
	}

	req.Items = make([]ledger.Item, 0, len(r.Items))
	for i, item := range r.Items {
		price := decimal.Zero
		if item.Price != "" {
			p, err := decimal.NewFromString(item.Price)
			if err != nil {
				return ledger.TransactionRequest{}, shared.NewValidationError("item %d: invalid price", i)
			}
			price = p
		}
		req.Items = append(req.Items, ledger.Item{
			ProductID: uuid.MustParse(item.ProductID),
			Quantity:  item.Quantity,
			Price:     price,
		})
	}

	for _, s := range r.Settlements {
		m, err := newSettlement(s)
		if err != nil {
			return ledger.TransactionRequest{}, err
		}
		req.Settlements = append(req.Settlements, m)
	}
	return req, nil
}

// newSettlement builds the movement variant named by s.Kind
func newSettlement(s SettlementRequest) (finance.Movement, error) {
	amount, err := decimal.NewFromString(s.Amount)
	if err != nil {
		return nil, shared.NewValidationError("invalid amount %q", s.Amount)
	}
	accountID := optionalUUID(s.AccountID)
	partyID := optionalUUID(s.PartyID)

	switch finance.MovementKind(s.Kind) {
	case finance.MovementKindExpense:
		return finance.NewExpense(amount, accountID, partyID, s.Category, s.Reference), nil
	case finance.MovementKindPaymentMade:
		return finance.NewPayment(finance.PaymentMade, amount, accountID, partyID, s.Reference), nil
	case finance.MovementKindPaymentReceived:
		return finance.NewPayment(finance.PaymentReceived, amount, accountID, partyID, s.Reference), nil
	default:
		return nil, shared.NewValidationError("unknown movement kind %q", s.Kind)
	}
}

// optionalUUID parses a pre-validated UUID string; empty yields nil
func optionalUUID(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
