package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuantityReader reads committed quantity-on-hand. A record never written reads as 0.
type QuantityReader interface {
	QuantityOnHand(ctx context.Context, key StockKey) (int64, error)
}

// QuantityStore holds quantity-on-hand per (product, warehouse)
type QuantityStore interface {
	QuantityReader
	// ApplyStockDelta adds delta and returns the new on-hand figure.
	// A result below zero fails with NEGATIVE_STOCK and changes nothing.
	ApplyStockDelta(ctx context.Context, key StockKey, delta int64) (int64, error)
}

// BalanceReader reads committed balances. A balance never written reads as 0.
type BalanceReader interface {
	Balance(ctx context.Context, key BalanceKey) (decimal.Decimal, error)
}

// BalanceStore holds the signed monetary balance per account and party.
// Balances have no lower bound.
type BalanceStore interface {
	BalanceReader
	ApplyBalanceDelta(ctx context.Context, key BalanceKey, delta decimal.Decimal) (decimal.Decimal, error)
}

// JournalReader queries the append-only journal
type JournalReader interface {
	// ListEntries returns matching entries in ascending Seq order and the total match count
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, int64, error)
	// EntriesForTransaction returns every entry tied to a transaction in Seq order
	EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]Entry, error)
}

// Journal appends entries. Seq numbers are assigned at commit, in commit order.
type Journal interface {
	JournalReader
	Append(ctx context.Context, entries ...*Entry) error
}

// TransactionReader loads transactions
type TransactionReader interface {
	// FindTransaction returns the transaction or shared.ErrNotFound
	FindTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
}

// TransactionRepository persists transaction headers and lifecycle
type TransactionRepository interface {
	TransactionReader
	SaveTransaction(ctx context.Context, tx *Transaction) error
}

// StockLevel is a committed quantity record
type StockLevel struct {
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	OnHand      int64     `json:"on_hand"`
}

// StockLevelReader enumerates committed quantity records
type StockLevelReader interface {
	ListStockLevels(ctx context.Context) ([]StockLevel, error)
}
