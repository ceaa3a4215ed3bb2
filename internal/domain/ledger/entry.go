package ledger

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind tells which store an entry folds into
type EntryKind string

const (
	EntryKindStock   EntryKind = "STOCK"
	EntryKindBalance EntryKind = "BALANCE"
)

// IsValid returns true if the entry kind is valid
func (k EntryKind) IsValid() bool {
	return k == EntryKindStock || k == EntryKindBalance
}

// EntryType is the business meaning of a journal entry
type EntryType string

const (
	// Stock entry types
	EntryTypePurchase    EntryType = "PURCHASE"
	EntryTypeSale        EntryType = "SALE"
	EntryTypeTransferIn  EntryType = "TRANSFER_IN"
	EntryTypeTransferOut EntryType = "TRANSFER_OUT"

	// EntryTypeAdjustment compensates a previous entry of either kind
	EntryTypeAdjustment EntryType = "ADJUSTMENT"

	// Balance entry types
	EntryTypeExpense         EntryType = "EXPENSE"
	EntryTypePaymentMade     EntryType = "PAYMENT_MADE"
	EntryTypePaymentReceived EntryType = "PAYMENT_RECEIVED"
)

// String returns the string representation of EntryType
func (t EntryType) String() string {
	return string(t)
}

// StockKey identifies one quantity-on-hand record
type StockKey struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
}

// LockKey returns the serialization key for this record
func (k StockKey) LockKey() string {
	return fmt.Sprintf("stock:%s:%s", k.ProductID, k.WarehouseID)
}

// BalanceOwner tells whether a balance belongs to an account or a party
type BalanceOwner string

const (
	BalanceOwnerAccount BalanceOwner = "ACCOUNT"
	BalanceOwnerParty   BalanceOwner = "PARTY"
)

// BalanceKey identifies one monetary balance
type BalanceKey struct {
	Owner BalanceOwner
	ID    uuid.UUID
}

// AccountKey returns the balance key of an account
func AccountKey(id uuid.UUID) BalanceKey {
	return BalanceKey{Owner: BalanceOwnerAccount, ID: id}
}

// PartyKey returns the balance key of a trading party
func PartyKey(id uuid.UUID) BalanceKey {
	return BalanceKey{Owner: BalanceOwnerParty, ID: id}
}

// LockKey returns the serialization key for this balance
func (k BalanceKey) LockKey() string {
	if k.Owner == BalanceOwnerParty {
		return "party:" + k.ID.String()
	}
	return "account:" + k.ID.String()
}

// Entry is one immutable journal line. STOCK entries carry a product,
// warehouse and signed quantity change; BALANCE entries carry an account
// or party and a signed amount. Seq is assigned when the entry commits.
type Entry struct {
	Seq             int64
	ID              uuid.UUID
	Kind            EntryKind
	Type            EntryType
	TransactionID   *uuid.UUID
	MovementID      *uuid.UUID
	ProductID       *uuid.UUID
	WarehouseID     *uuid.UUID
	QuantityChange  int64
	AccountID       *uuid.UUID
	PartyID         *uuid.UUID
	Amount          decimal.Decimal
	ActorID         uuid.UUID
	Timestamp       time.Time
	Note            string
	ReversesEntryID *uuid.UUID
}

// NewStockEntry creates a STOCK entry
func NewStockEntry(key StockKey, change int64, entryType EntryType, actorID uuid.UUID, note string) *Entry {
	productID, warehouseID := key.ProductID, key.WarehouseID
	return &Entry{
		ID:             uuid.New(),
		Kind:           EntryKindStock,
		Type:           entryType,
		ProductID:      &productID,
		WarehouseID:    &warehouseID,
		QuantityChange: change,
		Amount:         decimal.Zero,
		ActorID:        actorID,
		Timestamp:      time.Now(),
		Note:           note,
	}
}

// NewBalanceEntry creates a BALANCE entry
func NewBalanceEntry(key BalanceKey, amount decimal.Decimal, entryType EntryType, actorID uuid.UUID, note string) *Entry {
	e := &Entry{
		ID:        uuid.New(),
		Kind:      EntryKindBalance,
		Type:      entryType,
		Amount:    amount,
		ActorID:   actorID,
		Timestamp: time.Now(),
		Note:      note,
	}
	id := key.ID
	if key.Owner == BalanceOwnerParty {
		e.PartyID = &id
	} else {
		e.AccountID = &id
	}
	return e
}

// StockKey returns the quantity record this entry folds into.
// ok is false for BALANCE entries.
func (e *Entry) StockKey() (StockKey, bool) {
	if e.Kind != EntryKindStock || e.ProductID == nil || e.WarehouseID == nil {
		return StockKey{}, false
	}
	return StockKey{ProductID: *e.ProductID, WarehouseID: *e.WarehouseID}, true
}

// BalanceKey returns the balance this entry folds into.
// ok is false for STOCK entries.
func (e *Entry) BalanceKey() (BalanceKey, bool) {
	if e.Kind != EntryKindBalance {
		return BalanceKey{}, false
	}
	switch {
	case e.AccountID != nil:
		return AccountKey(*e.AccountID), true
	case e.PartyID != nil:
		return PartyKey(*e.PartyID), true
	}
	return BalanceKey{}, false
}

// Compensation returns a new ADJUSTMENT entry that cancels this one.
// The original entry is left untouched.
func (e *Entry) Compensation(actorID uuid.UUID, note string) (*Entry, error) {
	reversed := e.ID
	switch e.Kind {
	case EntryKindStock:
		key, ok := e.StockKey()
		if !ok {
			return nil, shared.NewValidationError("stock entry %s has no product or warehouse", e.ID)
		}
		c := NewStockEntry(key, -e.QuantityChange, EntryTypeAdjustment, actorID, note)
		c.TransactionID = e.TransactionID
		c.ReversesEntryID = &reversed
		return c, nil
	case EntryKindBalance:
		key, ok := e.BalanceKey()
		if !ok {
			return nil, shared.NewValidationError("balance entry %s has no account or party", e.ID)
		}
		c := NewBalanceEntry(key, e.Amount.Neg(), EntryTypeAdjustment, actorID, note)
		c.TransactionID = e.TransactionID
		c.MovementID = e.MovementID
		c.ReversesEntryID = &reversed
		return c, nil
	default:
		return nil, shared.NewValidationError("unknown entry kind %q", e.Kind)
	}
}

// EntryFilter selects journal entries. Nil fields do not constrain.
type EntryFilter struct {
	ProductID     *uuid.UUID
	WarehouseID   *uuid.UUID
	AccountID     *uuid.UUID
	PartyID       *uuid.UUID
	TransactionID *uuid.UUID
	Kind          *EntryKind
	// AfterSeq returns only entries with Seq greater than this value
	AfterSeq int64
	shared.Page
}

// Matches reports whether e satisfies every constraint of the filter
func (f EntryFilter) Matches(e *Entry) bool {
	if f.AfterSeq > 0 && e.Seq <= f.AfterSeq {
		return false
	}
	if f.Kind != nil && e.Kind != *f.Kind {
		return false
	}
	return uuidMatches(f.ProductID, e.ProductID) &&
		uuidMatches(f.WarehouseID, e.WarehouseID) &&
		uuidMatches(f.AccountID, e.AccountID) &&
		uuidMatches(f.PartyID, e.PartyID) &&
		uuidMatches(f.TransactionID, e.TransactionID)
}

func uuidMatches(want, got *uuid.UUID) bool {
	if want == nil {
		return true
	}
	return got != nil && *got == *want
}
