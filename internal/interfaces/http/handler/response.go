package handler

import (
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/google/uuid"
)

// ItemResponse is one product line of a transaction
type ItemResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	Price     string    `json:"price"`
}

// TransactionResponse represents a stock transaction
type TransactionResponse struct {
	ID              uuid.UUID      `json:"id"`
	Type            string         `json:"type"`
	Status          string         `json:"status"`
	Items           []ItemResponse `json:"items"`
	FromWarehouseID *uuid.UUID     `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   *uuid.UUID     `json:"to_warehouse_id,omitempty"`
	PartyID         *uuid.UUID     `json:"party_id,omitempty"`
	Reference       string         `json:"reference,omitempty"`
	ActorID         uuid.UUID      `json:"actor_id"`
	EntryIDs        []uuid.UUID    `json:"entry_ids"`
	CreatedAt       time.Time      `json:"created_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	VoidedAt        *time.Time     `json:"voided_at,omitempty"`
	VoidedBy        *uuid.UUID     `json:"voided_by,omitempty"`
}

// ToTransactionResponse converts a domain transaction to its response
func ToTransactionResponse(tx *ledger.Transaction) TransactionResponse {
	items := make([]ItemResponse, len(tx.Items))
	for i, item := range tx.Items {
		items[i] = ItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.String(),
		}
	}
	entryIDs := tx.EntryIDs
	if entryIDs == nil {
		entryIDs = []uuid.UUID{}
	}
	return TransactionResponse{
		ID:              tx.ID,
		Type:            string(tx.Type),
		Status:          string(tx.Status),
		Items:           items,
		FromWarehouseID: tx.FromWarehouseID,
		ToWarehouseID:   tx.ToWarehouseID,
		PartyID:         tx.PartyID,
		Reference:       tx.Reference,
		ActorID:         tx.ActorID,
		EntryIDs:        entryIDs,
		CreatedAt:       tx.CreatedAt,
		CompletedAt:     tx.CompletedAt,
		VoidedAt:        tx.VoidedAt,
		VoidedBy:        tx.VoidedBy,
	}
}

// EntryResponse represents one journal entry
type EntryResponse struct {
	Seq             int64      `json:"seq"`
	ID              uuid.UUID  `json:"id"`
	Kind            string     `json:"kind"`
	Type            string     `json:"type"`
	TransactionID   *uuid.UUID `json:"transaction_id,omitempty"`
	MovementID      *uuid.UUID `json:"movement_id,omitempty"`
	ProductID       *uuid.UUID `json:"product_id,omitempty"`
	WarehouseID     *uuid.UUID `json:"warehouse_id,omitempty"`
	QuantityChange  int64      `json:"quantity_change"`
	AccountID       *uuid.UUID `json:"account_id,omitempty"`
	PartyID         *uuid.UUID `json:"party_id,omitempty"`
	Amount          string     `json:"amount"`
	ActorID         uuid.UUID  `json:"actor_id"`
	Timestamp       time.Time  `json:"timestamp"`
	Note            string     `json:"note,omitempty"`
	ReversesEntryID *uuid.UUID `json:"reverses_entry_id,omitempty"`
}

// ToEntryResponse converts a journal entry to its response
func ToEntryResponse(e *ledger.Entry) EntryResponse {
	return EntryResponse{
		Seq:             e.Seq,
		ID:              e.ID,
		Kind:            string(e.Kind),
		Type:            string(e.Type),
		TransactionID:   e.TransactionID,
		MovementID:      e.MovementID,
		ProductID:       e.ProductID,
		WarehouseID:     e.WarehouseID,
		QuantityChange:  e.QuantityChange,
		AccountID:       e.AccountID,
		PartyID:         e.PartyID,
		Amount:          e.Amount.String(),
		ActorID:         e.ActorID,
		Timestamp:       e.Timestamp,
		Note:            e.Note,
		ReversesEntryID: e.ReversesEntryID,
	}
}

// ToEntryResponses converts a slice of journal entries
func ToEntryResponses(entries []ledger.Entry) []EntryResponse {
	out := make([]EntryResponse, len(entries))
	for i := range entries {
		out[i] = ToEntryResponse(&entries[i])
	}
	return out
}

// StockResponse is the on-hand quantity of one record
type StockResponse struct {
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	OnHand      int64     `json:"on_hand"`
}

// BalanceResponse is the balance of an account or party
type BalanceResponse struct {
	Owner   string    `json:"owner"`
	ID      uuid.UUID `json:"id"`
	Balance string    `json:"balance"`
}

// ReorderResponse lists records at or below their reorder level
type ReorderResponse struct {
	Alerts []appledger.ReorderAlert `json:"alerts"`
	Count  int                      `json:"count"`
}

// ProductResponse represents a product
type ProductResponse struct {
	ID           uuid.UUID  `json:"id"`
	SKU          string     `json:"sku"`
	Barcode      string     `json:"barcode,omitempty"`
	Name         string     `json:"name"`
	CategoryID   *uuid.UUID `json:"category_id,omitempty"`
	CostPrice    string     `json:"cost_price"`
	SellingPrice string     `json:"selling_price"`
	ReorderLevel int64      `json:"reorder_level"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ToProductResponse converts a product to its response
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		SKU:          p.SKU,
		Barcode:      p.Barcode,
		Name:         p.Name,
		CategoryID:   p.CategoryID,
		CostPrice:    p.CostPrice.String(),
		SellingPrice: p.SellingPrice.String(),
		ReorderLevel: p.ReorderLevel,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// WarehouseResponse represents a warehouse
type WarehouseResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToWarehouseResponse converts a warehouse to its response
func ToWarehouseResponse(w *partner.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:        w.ID,
		Code:      w.Code,
		Name:      w.Name,
		Location:  w.Location,
		CreatedAt: w.CreatedAt,
	}
}

// PartyResponse represents a trading party
type PartyResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	BalanceType string    `json:"balance_type"`
	CreditLimit string    `json:"credit_limit"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToPartyResponse converts a party to its response
func ToPartyResponse(p *partner.Party) PartyResponse {
	return PartyResponse{
		ID:          p.ID,
		Name:        p.Name,
		Type:        string(p.Type),
		BalanceType: string(p.BalanceType),
		CreditLimit: p.CreditLimit.String(),
		CreatedAt:   p.CreatedAt,
	}
}

// AccountResponse represents a financial account
type AccountResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// ToAccountResponse converts an account to its response
func ToAccountResponse(a *finance.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		CreatedAt: a.CreatedAt,
	}
}
