package memory

import (
	"context"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// unitOfWork buffers tentative mutations. Its reads are committed state plus
// its own deltas; nothing it holds is visible to other readers until commit.
type unitOfWork struct {
	store *Store

	quantityDeltas map[ledger.StockKey]int64
	balanceDeltas  map[ledger.BalanceKey]decimal.Decimal
	entries        []*ledger.Entry
	transactions   map[uuid.UUID]*ledger.Transaction
}

func newUnitOfWork(s *Store) *unitOfWork {
	return &unitOfWork{
		store:          s,
		quantityDeltas: make(map[ledger.StockKey]int64),
		balanceDeltas:  make(map[ledger.BalanceKey]decimal.Decimal),
		transactions:   make(map[uuid.UUID]*ledger.Transaction),
	}
}

func (u *unitOfWork) Quantities() ledger.QuantityStore           { return u }
func (u *unitOfWork) Balances() ledger.BalanceStore              { return u }
func (u *unitOfWork) Journal() ledger.Journal                    { return u }
func (u *unitOfWork) Transactions() ledger.TransactionRepository { return u }
func (u *unitOfWork) Products() catalog.ProductReader            { return u.store }
func (u *unitOfWork) Warehouses() partner.WarehouseReader        { return u.store }
func (u *unitOfWork) Parties() partner.PartyReader               { return u.store }
func (u *unitOfWork) Accounts() finance.AccountReader            { return u.store }

// QuantityOnHand implements ledger.QuantityReader
func (u *unitOfWork) QuantityOnHand(ctx context.Context, key ledger.StockKey) (int64, error) {
	committed, err := u.store.QuantityOnHand(ctx, key)
	if err != nil {
		return 0, err
	}
	return committed + u.quantityDeltas[key], nil
}

// ApplyStockDelta implements ledger.QuantityStore
func (u *unitOfWork) ApplyStockDelta(ctx context.Context, key ledger.StockKey, delta int64) (int64, error) {
	current, err := u.QuantityOnHand(ctx, key)
	if err != nil {
		return 0, err
	}
	next, err := ledger.AddQuantity(key, current, delta)
	if err != nil {
		return current, err
	}
	if next < 0 {
		return current, shared.NewNegativeStockError(key.ProductID, key.WarehouseID, current, delta)
	}
	u.quantityDeltas[key] += delta
	return next, nil
}

// Balance implements ledger.BalanceReader
func (u *unitOfWork) Balance(ctx context.Context, key ledger.BalanceKey) (decimal.Decimal, error) {
	committed, err := u.store.Balance(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	return committed.Add(u.balanceDeltas[key]), nil
}

// ApplyBalanceDelta implements ledger.BalanceStore
func (u *unitOfWork) ApplyBalanceDelta(ctx context.Context, key ledger.BalanceKey, delta decimal.Decimal) (decimal.Decimal, error) {
	current, err := u.Balance(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	u.balanceDeltas[key] = u.balanceDeltas[key].Add(delta)
	return current.Add(delta), nil
}

// Append implements ledger.Journal. Seq is assigned when the unit commits.
func (u *unitOfWork) Append(_ context.Context, entries ...*ledger.Entry) error {
	for _, e := range entries {
		if e == nil || !e.Kind.IsValid() {
			return shared.NewValidationError("cannot append an invalid journal entry")
		}
		u.entries = append(u.entries, e)
	}
	return nil
}

// ListEntries implements ledger.JournalReader. Tentative entries are not listed.
func (u *unitOfWork) ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]ledger.Entry, int64, error) {
	return u.store.ListEntries(ctx, filter)
}

// EntriesForTransaction implements ledger.JournalReader, including tentative entries
func (u *unitOfWork) EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]ledger.Entry, error) {
	out, err := u.store.EntriesForTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	for _, e := range u.entries {
		if e.TransactionID != nil && *e.TransactionID == transactionID {
			out = append(out, *e)
		}
	}
	return out, nil
}

// FindTransaction implements ledger.TransactionReader
func (u *unitOfWork) FindTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	if tx, ok := u.transactions[id]; ok {
		return cloneTransaction(tx), nil
	}
	return u.store.FindTransaction(ctx, id)
}

// SaveTransaction implements ledger.TransactionRepository
func (u *unitOfWork) SaveTransaction(_ context.Context, tx *ledger.Transaction) error {
	u.transactions[tx.ID] = cloneTransaction(tx)
	return nil
}

var _ appledger.TransactionalRepositories = (*unitOfWork)(nil)
