package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalSequenceName is the row in journal_sequences that numbers journal entries
const JournalSequenceName = "journal"

// StockLevelModel is the maintained on-hand total for one (product, warehouse)
type StockLevelModel struct {
	ProductID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	WarehouseID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	OnHand      int64     `gorm:"not null;default:0;check:chk_stock_levels_on_hand,on_hand >= 0"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockLevelModel) TableName() string {
	return "stock_levels"
}

// Key returns the domain key of this record
func (m *StockLevelModel) Key() ledger.StockKey {
	return ledger.StockKey{ProductID: m.ProductID, WarehouseID: m.WarehouseID}
}

// BalanceModel is the maintained balance of one account or party
type BalanceModel struct {
	OwnerType string          `gorm:"type:varchar(10);primaryKey"`
	OwnerID   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Balance   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BalanceModel) TableName() string {
	return "balances"
}

// JournalSequenceModel holds the last assigned journal sequence number.
// Writers lock the row for the rest of their database transaction, so
// numbers are handed out in commit order.
type JournalSequenceModel struct {
	Name    string `gorm:"type:varchar(50);primaryKey"`
	LastSeq int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (JournalSequenceModel) TableName() string {
	return "journal_sequences"
}

// JournalEntryModel is the persistence model for an immutable journal entry
type JournalEntryModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Seq             int64           `gorm:"not null;uniqueIndex"`
	Kind            string          `gorm:"type:varchar(10);not null"`
	Type            string          `gorm:"type:varchar(30);not null"`
	TransactionID   *uuid.UUID      `gorm:"type:uuid;index"`
	MovementID      *uuid.UUID      `gorm:"type:uuid"`
	ProductID       *uuid.UUID      `gorm:"type:uuid;index:idx_journal_entries_stock,priority:1"`
	WarehouseID     *uuid.UUID      `gorm:"type:uuid;index:idx_journal_entries_stock,priority:2"`
	QuantityChange  int64           `gorm:"not null;default:0"`
	AccountID       *uuid.UUID      `gorm:"type:uuid;index"`
	PartyID         *uuid.UUID      `gorm:"type:uuid;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ActorID         uuid.UUID       `gorm:"type:uuid;not null"`
	Timestamp       time.Time       `gorm:"not null"`
	Note            string          `gorm:"type:text"`
	ReversesEntryID *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// ToDomain converts the persistence model to a domain Entry
func (m *JournalEntryModel) ToDomain() ledger.Entry {
	return ledger.Entry{
		Seq:             m.Seq,
		ID:              m.ID,
		Kind:            ledger.EntryKind(m.Kind),
		Type:            ledger.EntryType(m.Type),
		TransactionID:   m.TransactionID,
		MovementID:      m.MovementID,
		ProductID:       m.ProductID,
		WarehouseID:     m.WarehouseID,
		QuantityChange:  m.QuantityChange,
		AccountID:       m.AccountID,
		PartyID:         m.PartyID,
		Amount:          m.Amount,
		ActorID:         m.ActorID,
		Timestamp:       m.Timestamp,
		Note:            m.Note,
		ReversesEntryID: m.ReversesEntryID,
	}
}

// JournalEntryModelFromDomain creates a persistence model from a domain Entry
func JournalEntryModelFromDomain(e *ledger.Entry) *JournalEntryModel {
	return &JournalEntryModel{
		ID:              e.ID,
		Seq:             e.Seq,
		Kind:            string(e.Kind),
		Type:            string(e.Type),
		TransactionID:   e.TransactionID,
		MovementID:      e.MovementID,
		ProductID:       e.ProductID,
		WarehouseID:     e.WarehouseID,
		QuantityChange:  e.QuantityChange,
		AccountID:       e.AccountID,
		PartyID:         e.PartyID,
		Amount:          e.Amount,
		ActorID:         e.ActorID,
		Timestamp:       e.Timestamp,
		Note:            e.Note,
		ReversesEntryID: e.ReversesEntryID,
	}
}

// LedgerTransactionModel is the persistence model for a stock transaction.
// Entry IDs are not stored; they are read back from journal_entries.
type LedgerTransactionModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Type            string     `gorm:"type:varchar(10);not null"`
	FromWarehouseID *uuid.UUID `gorm:"type:uuid"`
	ToWarehouseID   *uuid.UUID `gorm:"type:uuid"`
	PartyID         *uuid.UUID `gorm:"type:uuid;index"`
	Reference       string     `gorm:"type:varchar(200)"`
	Status          string     `gorm:"type:varchar(10);not null;index"`
	ActorID         uuid.UUID  `gorm:"type:uuid;not null"`
	IdempotencyKey  string     `gorm:"type:varchar(128);index"`
	CreatedAt       time.Time  `gorm:"not null"`
	CompletedAt     *time.Time
	VoidedAt        *time.Time
	VoidedBy        *uuid.UUID                   `gorm:"type:uuid"`
	Items           []LedgerTransactionItemModel `gorm:"foreignKey:TransactionID;references:ID"`
}

// TableName returns the table name for GORM
func (LedgerTransactionModel) TableName() string {
	return "ledger_transactions"
}

// LedgerTransactionItemModel is one line of a stock transaction
type LedgerTransactionItemModel struct {
	TransactionID uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Line          int             `gorm:"primaryKey;autoIncrement:false"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity      int64           `gorm:"not null"`
	Price         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (LedgerTransactionItemModel) TableName() string {
	return "ledger_transaction_items"
}

// ToDomain converts the persistence model to a domain Transaction.
// entryIDs are the IDs of the transaction's journal entries in Seq order.
func (m *LedgerTransactionModel) ToDomain(entryIDs []uuid.UUID) *ledger.Transaction {
	items := make([]ledger.Item, len(m.Items))
	for _, it := range m.Items {
		if it.Line >= 0 && it.Line < len(items) {
			items[it.Line] = ledger.Item{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price}
		}
	}
	return &ledger.Transaction{
		ID:              m.ID,
		Type:            ledger.TransactionType(m.Type),
		Items:           items,
		FromWarehouseID: m.FromWarehouseID,
		ToWarehouseID:   m.ToWarehouseID,
		PartyID:         m.PartyID,
		Reference:       m.Reference,
		Status:          ledger.TransactionStatus(m.Status),
		ActorID:         m.ActorID,
		IdempotencyKey:  m.IdempotencyKey,
		EntryIDs:        entryIDs,
		CreatedAt:       m.CreatedAt,
		CompletedAt:     m.CompletedAt,
		VoidedAt:        m.VoidedAt,
		VoidedBy:        m.VoidedBy,
	}
}

// LedgerTransactionModelFromDomain creates a persistence model from a domain Transaction
func LedgerTransactionModelFromDomain(tx *ledger.Transaction) *LedgerTransactionModel {
	m := &LedgerTransactionModel{
		ID:              tx.ID,
		Type:            string(tx.Type),
		FromWarehouseID: tx.FromWarehouseID,
		ToWarehouseID:   tx.ToWarehouseID,
		PartyID:         tx.PartyID,
		Reference:       tx.Reference,
		Status:          string(tx.Status),
		ActorID:         tx.ActorID,
		IdempotencyKey:  tx.IdempotencyKey,
		CreatedAt:       tx.CreatedAt,
		CompletedAt:     tx.CompletedAt,
		VoidedAt:        tx.VoidedAt,
		VoidedBy:        tx.VoidedBy,
		Items:           make([]LedgerTransactionItemModel, len(tx.Items)),
	}
	for i, it := range tx.Items {
		m.Items[i] = LedgerTransactionItemModel{
			TransactionID: tx.ID,
			Line:          i,
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			Price:         it.Price,
		}
	}
	return m
}

// AllLedgerModels lists every model owned by the ledger, in dependency order
func AllLedgerModels() []any {
	return []any{
		&StockLevelModel{},
		&BalanceModel{},
		&JournalSequenceModel{},
		&JournalEntryModel{},
		&LedgerTransactionModel{},
		&LedgerTransactionItemModel{},
	}
}
