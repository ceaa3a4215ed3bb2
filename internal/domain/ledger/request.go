package ledger

import (
	"math"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Column limits for the free-text request fields
const (
	MaxReferenceLength      = 200
	MaxIdempotencyKeyLength = 128
)

// TransactionRequest is a caller's proposal for a stock movement, optionally
// tied to balance mutations that must commit in the same unit.
type TransactionRequest struct {
	Type            TransactionType
	Items           []Item
	FromWarehouseID *uuid.UUID
	ToWarehouseID   *uuid.UUID
	PartyID         *uuid.UUID
	Reference       string
	ActorID         uuid.UUID
	Settlements     []finance.Movement
	IdempotencyKey  string
	// EnforceCreditLimit enables the party credit check for this request
	EnforceCreditLimit bool
}

// ValidateItems rejects an empty item list, non-positive quantities and
// per-product totals that do not fit in an int64
func (r TransactionRequest) ValidateItems() error {
	if len(r.Items) == 0 {
		return shared.NewValidationError("transaction must have at least one item")
	}
	totals := make(map[uuid.UUID]int64, len(r.Items))
	for i, item := range r.Items {
		if item.ProductID == uuid.Nil {
			return shared.NewValidationError("item %d: product_id is required", i)
		}
		if item.Quantity <= 0 {
			return shared.NewValidationError("item %d: quantity must be positive, got %d", i, item.Quantity)
		}
		if item.Price.IsNegative() {
			return shared.NewValidationError("item %d: price cannot be negative", i)
		}
		if totals[item.ProductID] > math.MaxInt64-item.Quantity {
			return shared.NewValidationError("item %d: total quantity for product %s is out of range", i, item.ProductID)
		}
		totals[item.ProductID] += item.Quantity
	}
	return nil
}

// ValidateFields bounds the free-text fields to their stored widths
func (r TransactionRequest) ValidateFields() error {
	if len(r.Reference) > MaxReferenceLength {
		return shared.NewValidationError("reference cannot exceed %d characters", MaxReferenceLength)
	}
	if len(r.IdempotencyKey) > MaxIdempotencyKeyLength {
		return shared.NewValidationError("idempotency key cannot exceed %d characters", MaxIdempotencyKeyLength)
	}
	return nil
}

// ValidateWarehouses checks that the warehouse fields match the type
func (r TransactionRequest) ValidateWarehouses() error {
	hasFrom := isSet(r.FromWarehouseID)
	hasTo := isSet(r.ToWarehouseID)
	switch r.Type {
	case TransactionTypeIn:
		if !hasTo || hasFrom {
			return shared.NewValidationError("IN transaction requires to_warehouse_id only")
		}
	case TransactionTypeOut:
		if !hasFrom || hasTo {
			return shared.NewValidationError("OUT transaction requires from_warehouse_id only")
		}
	case TransactionTypeTransfer:
		if !hasFrom || !hasTo {
			return shared.NewValidationError("TRANSFER requires both from_warehouse_id and to_warehouse_id")
		}
		if *r.FromWarehouseID == *r.ToWarehouseID {
			return shared.NewValidationError("TRANSFER source and destination warehouses must differ")
		}
	default:
		return shared.NewValidationError("unknown transaction type %q", r.Type)
	}
	return nil
}

// ValidateSettlements checks every tied balance mutation
func (r TransactionRequest) ValidateSettlements() error {
	for i, m := range r.Settlements {
		if m == nil {
			return shared.NewValidationError("settlement %d is empty", i)
		}
		if err := ValidateMovement(m); err != nil {
			return err
		}
	}
	return nil
}

// RequiredOutflows sums the outbound quantity per source record, so that a
// product listed twice in one request is checked against its total. Sums
// saturate at MaxInt64, which no record can cover.
func (r TransactionRequest) RequiredOutflows() map[StockKey]int64 {
	if r.Type != TransactionTypeOut && r.Type != TransactionTypeTransfer {
		return nil
	}
	out := make(map[StockKey]int64, len(r.Items))
	for _, item := range r.Items {
		key := StockKey{ProductID: item.ProductID, WarehouseID: *r.FromWarehouseID}
		if out[key] > math.MaxInt64-item.Quantity {
			out[key] = math.MaxInt64
			continue
		}
		out[key] += item.Quantity
	}
	return out
}

// ValidateMovement dispatches over the closed set of movement variants
func ValidateMovement(m finance.Movement) error {
	switch mv := m.(type) {
	case *finance.Expense:
		return mv.Validate()
	case *finance.Payment:
		return mv.Validate()
	default:
		return shared.NewValidationError("unknown movement variant %T", m)
	}
}

// MovementEntryType maps a movement to the journal entry type it produces
func MovementEntryType(m finance.Movement) (EntryType, error) {
	switch m.Kind() {
	case finance.MovementKindExpense:
		return EntryTypeExpense, nil
	case finance.MovementKindPaymentMade:
		return EntryTypePaymentMade, nil
	case finance.MovementKindPaymentReceived:
		return EntryTypePaymentReceived, nil
	default:
		return "", shared.NewValidationError("unknown movement kind %q", m.Kind())
	}
}

// MovementKey returns the balance targeted by a validated movement
func MovementKey(m finance.Movement) BalanceKey {
	accountID, partyID := m.Target()
	if isSet(accountID) {
		return AccountKey(*accountID)
	}
	return PartyKey(*partyID)
}

func isSet(id *uuid.UUID) bool {
	return id != nil && *id != uuid.Nil
}
