package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the kind of stock movement a transaction performs
type TransactionType string

const (
	// TransactionTypeIn receives stock into ToWarehouseID
	TransactionTypeIn TransactionType = "IN"
	// TransactionTypeOut ships stock out of FromWarehouseID
	TransactionTypeOut TransactionType = "OUT"
	// TransactionTypeTransfer moves stock from FromWarehouseID to ToWarehouseID
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeIn, TransactionTypeOut, TransactionTypeTransfer:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusVoided    TransactionStatus = "VOIDED"
)

// Item is one product line of a transaction
type Item struct {
	ProductID uuid.UUID
	Quantity  int64
	Price     decimal.Decimal
}

// AddQuantity returns current+delta, or an error when the sum leaves the int64 range
func AddQuantity(key StockKey, current, delta int64) (int64, error) {
	sum := current + delta
	if (delta > 0 && sum < current) || (delta < 0 && sum > current) {
		return current, shared.NewValidationError(
			"quantity for product %s in warehouse %s is out of range: %d %+d",
			key.ProductID, key.WarehouseID, current, delta)
	}
	return sum, nil
}

// StockDelta is a signed change to one quantity record
type StockDelta struct {
	Key   StockKey
	Delta int64
	Type  EntryType
}

// Transaction is a grouped stock movement. Its entries are the only record
// of what it did; the transaction row itself carries the lifecycle.
type Transaction struct {
	ID              uuid.UUID
	Type            TransactionType
	Items           []Item
	FromWarehouseID *uuid.UUID
	ToWarehouseID   *uuid.UUID
	PartyID         *uuid.UUID
	Reference       string
	Status          TransactionStatus
	ActorID         uuid.UUID
	IdempotencyKey  string
	EntryIDs        []uuid.UUID
	CreatedAt       time.Time
	CompletedAt     *time.Time
	VoidedAt        *time.Time
	VoidedBy        *uuid.UUID
}

// NewTransaction creates a PENDING transaction from a validated request
func NewTransaction(req TransactionRequest) *Transaction {
	items := make([]Item, len(req.Items))
	copy(items, req.Items)
	return &Transaction{
		ID:              uuid.New(),
		Type:            req.Type,
		Items:           items,
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		PartyID:         req.PartyID,
		Reference:       req.Reference,
		Status:          TransactionStatusPending,
		ActorID:         req.ActorID,
		IdempotencyKey:  req.IdempotencyKey,
		CreatedAt:       time.Now(),
	}
}

// StockDeltas expands the items into signed quantity changes.
// IN and OUT yield one delta per item, TRANSFER yields two.
func (t *Transaction) StockDeltas() ([]StockDelta, error) {
	deltas := make([]StockDelta, 0, len(t.Items)*2)
	for _, item := range t.Items {
		switch t.Type {
		case TransactionTypeIn:
			deltas = append(deltas, StockDelta{
				Key:   StockKey{ProductID: item.ProductID, WarehouseID: *t.ToWarehouseID},
				Delta: item.Quantity,
				Type:  EntryTypePurchase,
			})
		case TransactionTypeOut:
			deltas = append(deltas, StockDelta{
				Key:   StockKey{ProductID: item.ProductID, WarehouseID: *t.FromWarehouseID},
				Delta: -item.Quantity,
				Type:  EntryTypeSale,
			})
		case TransactionTypeTransfer:
			deltas = append(deltas,
				StockDelta{
					Key:   StockKey{ProductID: item.ProductID, WarehouseID: *t.FromWarehouseID},
					Delta: -item.Quantity,
					Type:  EntryTypeTransferOut,
				},
				StockDelta{
					Key:   StockKey{ProductID: item.ProductID, WarehouseID: *t.ToWarehouseID},
					Delta: item.Quantity,
					Type:  EntryTypeTransferIn,
				})
		default:
			return nil, shared.NewValidationError("unknown transaction type %q", t.Type)
		}
	}
	return deltas, nil
}

// MarkCompleted moves a PENDING transaction to COMPLETED
func (t *Transaction) MarkCompleted(entryIDs []uuid.UUID) error {
	if t.Status != TransactionStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState, "only pending transactions can be completed")
	}
	now := time.Now()
	t.Status = TransactionStatusCompleted
	t.EntryIDs = entryIDs
	t.CompletedAt = &now
	return nil
}

// MarkVoided moves a COMPLETED transaction to VOIDED
func (t *Transaction) MarkVoided(actorID uuid.UUID, compensationIDs []uuid.UUID) error {
	switch t.Status {
	case TransactionStatusVoided:
		return shared.ErrAlreadyVoided
	case TransactionStatusCompleted:
	default:
		return shared.NewDomainError(shared.CodeInvalidState, "only completed transactions can be voided")
	}
	now := time.Now()
	t.Status = TransactionStatusVoided
	t.VoidedAt = &now
	t.VoidedBy = &actorID
	t.EntryIDs = append(t.EntryIDs, compensationIDs...)
	return nil
}

// IsVoided returns true if the transaction has been voided
func (t *Transaction) IsVoided() bool {
	return t.Status == TransactionStatusVoided
}
