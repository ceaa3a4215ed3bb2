// Package memory provides a single-process backend for the ledger stores.
//
// Committed state sits behind one RWMutex. Writers work on a private overlay
// (see unitOfWork) that is folded into committed state in one critical
// section, so readers never observe a partially applied commit.
package memory

import (
	"context"
	"sort"
	"sync"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReadMode selects how quantities and balances are answered
type ReadMode int

const (
	// ReadModeCache answers from running totals maintained at commit
	ReadModeCache ReadMode = iota
	// ReadModeDerive folds the journal on every read
	ReadModeDerive
)

// Store is the in-memory ledger backend
type Store struct {
	mu   sync.RWMutex
	mode ReadMode

	quantities map[ledger.StockKey]int64
	balances   map[ledger.BalanceKey]decimal.Decimal
	journal    []ledger.Entry
	lastSeq    int64

	transactions map[uuid.UUID]*ledger.Transaction

	products   map[uuid.UUID]catalog.Product
	warehouses map[uuid.UUID]partner.Warehouse
	parties    map[uuid.UUID]partner.Party
	accounts   map[uuid.UUID]finance.Account
}

// NewStore creates an empty store
func NewStore(mode ReadMode) *Store {
	return &Store{
		mode:         mode,
		quantities:   make(map[ledger.StockKey]int64),
		balances:     make(map[ledger.BalanceKey]decimal.Decimal),
		transactions: make(map[uuid.UUID]*ledger.Transaction),
		products:     make(map[uuid.UUID]catalog.Product),
		warehouses:   make(map[uuid.UUID]partner.Warehouse),
		parties:      make(map[uuid.UUID]partner.Party),
		accounts:     make(map[uuid.UUID]finance.Account),
	}
}

// Mode returns the read mode
func (s *Store) Mode() ReadMode {
	return s.mode
}

// Execute implements appledger.TransactionScope
func (s *Store) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	uow := newUnitOfWork(s)
	if err := fn(uow); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(uow)
}

// commit folds a unit of work into committed state. The quantity invariant
// is re-checked here so that nothing is applied when any record would go
// negative.
func (s *Store) commit(u *unitOfWork) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, delta := range u.quantityDeltas {
		current := s.quantityLocked(key)
		next, err := ledger.AddQuantity(key, current, delta)
		if err != nil {
			return err
		}
		if next < 0 {
			return shared.NewNegativeStockError(key.ProductID, key.WarehouseID, current, delta)
		}
	}

	for key, delta := range u.quantityDeltas {
		s.quantities[key] += delta
	}
	for key, delta := range u.balanceDeltas {
		s.balances[key] = s.balances[key].Add(delta)
	}
	for _, e := range u.entries {
		s.lastSeq++
		e.Seq = s.lastSeq
		s.journal = append(s.journal, *e)
	}
	for id, tx := range u.transactions {
		s.transactions[id] = cloneTransaction(tx)
	}
	return nil
}

// QuantityOnHand implements ledger.QuantityReader over committed state
func (s *Store) QuantityOnHand(_ context.Context, key ledger.StockKey) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quantityLocked(key), nil
}

func (s *Store) quantityLocked(key ledger.StockKey) int64 {
	if s.mode == ReadModeCache {
		return s.quantities[key]
	}
	var sum int64
	for i := range s.journal {
		if k, ok := s.journal[i].StockKey(); ok && k == key {
			sum += s.journal[i].QuantityChange
		}
	}
	return sum
}

// Balance implements ledger.BalanceReader over committed state
func (s *Store) Balance(_ context.Context, key ledger.BalanceKey) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balanceLocked(key), nil
}

func (s *Store) balanceLocked(key ledger.BalanceKey) decimal.Decimal {
	if s.mode == ReadModeCache {
		return s.balances[key]
	}
	sum := decimal.Zero
	for i := range s.journal {
		if k, ok := s.journal[i].BalanceKey(); ok && k == key {
			sum = sum.Add(s.journal[i].Amount)
		}
	}
	return sum
}

// ListStockLevels implements ledger.StockLevelReader
func (s *Store) ListStockLevels(_ context.Context) ([]ledger.StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals map[ledger.StockKey]int64
	if s.mode == ReadModeCache {
		totals = s.quantities
	} else {
		totals = s.foldQuantitiesLocked()
	}
	levels := make([]ledger.StockLevel, 0, len(totals))
	for key, onHand := range totals {
		levels = append(levels, ledger.StockLevel{ProductID: key.ProductID, WarehouseID: key.WarehouseID, OnHand: onHand})
	}
	sort.Slice(levels, func(i, j int) bool {
		if levels[i].ProductID != levels[j].ProductID {
			return levels[i].ProductID.String() < levels[j].ProductID.String()
		}
		return levels[i].WarehouseID.String() < levels[j].WarehouseID.String()
	})
	return levels, nil
}

// FoldQuantities recomputes every quantity record from the journal
func (s *Store) FoldQuantities() map[ledger.StockKey]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.foldQuantitiesLocked()
}

func (s *Store) foldQuantitiesLocked() map[ledger.StockKey]int64 {
	out := make(map[ledger.StockKey]int64)
	for i := range s.journal {
		if key, ok := s.journal[i].StockKey(); ok {
			out[key] += s.journal[i].QuantityChange
		}
	}
	return out
}

// FoldBalances recomputes every balance from the journal
func (s *Store) FoldBalances() map[ledger.BalanceKey]decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[ledger.BalanceKey]decimal.Decimal)
	for i := range s.journal {
		if key, ok := s.journal[i].BalanceKey(); ok {
			out[key] = out[key].Add(s.journal[i].Amount)
		}
	}
	return out
}

// ListEntries implements ledger.JournalReader over committed entries
func (s *Store) ListEntries(_ context.Context, filter ledger.EntryFilter) ([]ledger.Entry, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]ledger.Entry, 0)
	for i := range s.journal {
		if filter.Matches(&s.journal[i]) {
			matched = append(matched, s.journal[i])
		}
	}
	total := int64(len(matched))

	page := filter.Page.Normalize()
	offset := page.Offset()
	if offset < 0 || offset >= len(matched) {
		return []ledger.Entry{}, total, nil
	}
	end := min(offset+page.PageSize, len(matched))
	return matched[offset:end], total, nil
}

// EntriesForTransaction implements ledger.JournalReader
func (s *Store) EntriesForTransaction(_ context.Context, transactionID uuid.UUID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entriesForTransactionLocked(transactionID), nil
}

func (s *Store) entriesForTransactionLocked(transactionID uuid.UUID) []ledger.Entry {
	out := make([]ledger.Entry, 0)
	for i := range s.journal {
		if id := s.journal[i].TransactionID; id != nil && *id == transactionID {
			out = append(out, s.journal[i])
		}
	}
	return out
}

// FindTransaction implements ledger.TransactionReader
func (s *Store) FindTransaction(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, shared.NewNotFoundError("transaction", id)
	}
	return cloneTransaction(tx), nil
}

func cloneTransaction(tx *ledger.Transaction) *ledger.Transaction {
	c := *tx
	c.Items = append([]ledger.Item(nil), tx.Items...)
	c.EntryIDs = append([]uuid.UUID(nil), tx.EntryIDs...)
	return &c
}

// Ensure Store implements the committed read interfaces and the scope
var (
	_ appledger.TransactionScope = (*Store)(nil)
	_ ledger.QuantityReader      = (*Store)(nil)
	_ ledger.BalanceReader       = (*Store)(nil)
	_ ledger.JournalReader       = (*Store)(nil)
	_ ledger.TransactionReader   = (*Store)(nil)
	_ ledger.StockLevelReader    = (*Store)(nil)
)
