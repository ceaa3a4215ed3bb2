package ledger

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeTransaction = "LedgerTransaction"
	AggregateTypeStockLevel  = "StockLevel"
	AggregateTypeBalance     = "Balance"
)

// Event type constants
const (
	EventTypeTransactionCommitted = "ledger.TransactionCommitted"
	EventTypeTransactionVoided    = "ledger.TransactionVoided"
	EventTypeStockLevelChanged    = "ledger.StockLevelChanged"
	EventTypeBalanceChanged       = "ledger.BalanceChanged"
)

// TransactionCommittedEvent is raised after a transaction commits
type TransactionCommittedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	Type          TransactionType `json:"type"`
	EntryIDs      []uuid.UUID     `json:"entry_ids"`
	ActorID       uuid.UUID       `json:"actor_id"`
}

// NewTransactionCommittedEvent creates a TransactionCommittedEvent
func NewTransactionCommittedEvent(tx *Transaction) *TransactionCommittedEvent {
	return &TransactionCommittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionCommitted, AggregateTypeTransaction, tx.ID),
		TransactionID:   tx.ID,
		Type:            tx.Type,
		EntryIDs:        tx.EntryIDs,
		ActorID:         tx.ActorID,
	}
}

// TransactionVoidedEvent is raised after a transaction is voided
type TransactionVoidedEvent struct {
	shared.BaseDomainEvent
	TransactionID   uuid.UUID   `json:"transaction_id"`
	CompensationIDs []uuid.UUID `json:"compensation_ids"`
	ActorID         uuid.UUID   `json:"actor_id"`
}

// NewTransactionVoidedEvent creates a TransactionVoidedEvent
func NewTransactionVoidedEvent(tx *Transaction, compensationIDs []uuid.UUID, actorID uuid.UUID) *TransactionVoidedEvent {
	return &TransactionVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionVoided, AggregateTypeTransaction, tx.ID),
		TransactionID:   tx.ID,
		CompensationIDs: compensationIDs,
		ActorID:         actorID,
	}
}

// StockLevelChangedEvent carries the committed on-hand figure of one record
type StockLevelChangedEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Delta       int64     `json:"delta"`
	OnHand      int64     `json:"on_hand"`
}

// NewStockLevelChangedEvent creates a StockLevelChangedEvent
func NewStockLevelChangedEvent(key StockKey, delta, onHand int64) *StockLevelChangedEvent {
	return &StockLevelChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockLevelChanged, AggregateTypeStockLevel, key.ProductID),
		ProductID:       key.ProductID,
		WarehouseID:     key.WarehouseID,
		Delta:           delta,
		OnHand:          onHand,
	}
}

// BalanceChangedEvent carries the committed balance of one account or party
type BalanceChangedEvent struct {
	shared.BaseDomainEvent
	Owner   BalanceOwner    `json:"owner"`
	OwnerID uuid.UUID       `json:"owner_id"`
	Delta   decimal.Decimal `json:"delta"`
	Balance decimal.Decimal `json:"balance"`
}

// NewBalanceChangedEvent creates a BalanceChangedEvent
func NewBalanceChangedEvent(key BalanceKey, delta, balance decimal.Decimal) *BalanceChangedEvent {
	return &BalanceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBalanceChanged, AggregateTypeBalance, key.ID),
		Owner:           key.Owner,
		OwnerID:         key.ID,
		Delta:           delta,
		Balance:         balance,
	}
}
