package integration

import (
	"context"
	"os"
	"sync"
	"testing"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

// ledgerEnv is a coordinator over the postgres stores
type ledgerEnv struct {
	t           *testing.T
	ctx         context.Context
	db          *TestDB
	repos       *persistence.Repositories
	coordinator *appledger.Coordinator
	queries     *appledger.QueryService
	actorID     uuid.UUID
}

func newLedgerEnv(t *testing.T, deriveOnRead bool) *ledgerEnv {
	t.Helper()
	tdb := NewSharedTestDB(t)
	repos := persistence.NewRepositories(tdb.DB, deriveOnRead)
	return &ledgerEnv{
		t:           t,
		ctx:         context.Background(),
		db:          tdb,
		repos:       repos,
		coordinator: newCoordinator(repos),
		queries:     appledger.NewQueryService(repos.Quantities, repos.Balances, repos.Journal, repos.Transactions),
		actorID:     uuid.New(),
	}
}

func newCoordinator(repos *persistence.Repositories) *appledger.Coordinator {
	return appledger.NewCoordinator(repos.Scope, cache.NewInMemoryKeyLocker(), appledger.DefaultCoordinatorConfig(), nil)
}

func (e *ledgerEnv) product(reorderLevel int64) uuid.UUID {
	e.t.Helper()
	p, err := catalog.NewProduct("SKU-"+uuid.NewString()[:8], "", "Widget")
	require.NoError(e.t, err)
	require.NoError(e.t, p.SetReorderLevel(reorderLevel))
	require.NoError(e.t, e.repos.Products.SaveProduct(e.ctx, p))
	return p.ID
}

func (e *ledgerEnv) warehouse() uuid.UUID {
	e.t.Helper()
	w, err := partner.NewWarehouse("WH-"+uuid.NewString()[:8], "Main", "")
	require.NoError(e.t, err)
	require.NoError(e.t, e.repos.Warehouses.SaveWarehouse(e.ctx, w))
	return w.ID
}

func (e *ledgerEnv) party() uuid.UUID {
	e.t.Helper()
	p, err := partner.NewParty("Acme", partner.PartyTypeCustomer, partner.BalanceTypeDebit)
	require.NoError(e.t, err)
	require.NoError(e.t, e.repos.Parties.SaveParty(e.ctx, p))
	return p.ID
}

func (e *ledgerEnv) submit(typ ledger.TransactionType, from, to *uuid.UUID, productID uuid.UUID, qty int64) (*ledger.Transaction, error) {
	return e.coordinator.Submit(e.ctx, ledger.TransactionRequest{
		Type:            typ,
		Items:           []ledger.Item{{ProductID: productID, Quantity: qty, Price: decimal.NewFromInt(10)}},
		FromWarehouseID: from,
		ToWarehouseID:   to,
		ActorID:         e.actorID,
	})
}

func (e *ledgerEnv) onHand(productID, warehouseID uuid.UUID) int64 {
	e.t.Helper()
	n, err := e.queries.QuantityOnHand(e.ctx, productID, warehouseID)
	require.NoError(e.t, err)
	return n
}

func (e *ledgerEnv) journal(filter ledger.EntryFilter) []ledger.Entry {
	e.t.Helper()
	filter.PageSize = shared.MaxPageSize
	page, err := e.queries.ListEntries(e.ctx, filter)
	require.NoError(e.t, err)
	return page.Items
}

func TestPostgresLedger_Scenarios(t *testing.T) {
	env := newLedgerEnv(t, false)
	p, w1, w2 := env.product(0), env.warehouse(), env.warehouse()

	_, err := env.submit(ledger.TransactionTypeIn, nil, &w1, p, 100)
	require.NoError(t, err)

	// A: OUT 30 from 100
	out, err := env.submit(ledger.TransactionTypeOut, &w1, nil, p, 30)
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionStatusCompleted, out.Status)
	require.Len(t, out.EntryIDs, 1)
	assert.EqualValues(t, 70, env.onHand(p, w1))

	// B: OUT 80 from 70
	_, err = env.submit(ledger.TransactionTypeOut, &w1, nil, p, 80)
	var insufficient *shared.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.EqualValues(t, 70, insufficient.Available)
	assert.EqualValues(t, 80, insufficient.Requested)
	assert.EqualValues(t, 70, env.onHand(p, w1))

	// C: TRANSFER 20 from W1 to W2
	transfer, err := env.submit(ledger.TransactionTypeTransfer, &w1, &w2, p, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 50, env.onHand(p, w1))
	assert.EqualValues(t, 20, env.onHand(p, w2))
	transferEntries := env.journal(ledger.EntryFilter{TransactionID: &transfer.ID})
	require.Len(t, transferEntries, 2)
	assert.Equal(t, ledger.EntryTypeTransferOut, transferEntries[0].Type)
	assert.EqualValues(t, -20, transferEntries[0].QuantityChange)
	assert.Equal(t, ledger.EntryTypeTransferIn, transferEntries[1].Type)
	assert.EqualValues(t, 20, transferEntries[1].QuantityChange)

	// D: void A
	voided, err := env.coordinator.Void(env.ctx, out.ID, env.actorID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionStatusVoided, voided.Status)
	assert.EqualValues(t, 80, env.onHand(p, w1))

	outEntries := env.journal(ledger.EntryFilter{TransactionID: &out.ID})
	require.Len(t, outEntries, 2)
	assert.Equal(t, ledger.EntryTypeSale, outEntries[0].Type)
	assert.EqualValues(t, -30, outEntries[0].QuantityChange)
	assert.Equal(t, ledger.EntryTypeAdjustment, outEntries[1].Type)
	assert.EqualValues(t, 30, outEntries[1].QuantityChange)
	require.NotNil(t, outEntries[1].ReversesEntryID)
	assert.Equal(t, outEntries[0].ID, *outEntries[1].ReversesEntryID)

	// voiding again appends nothing
	before := len(env.journal(ledger.EntryFilter{}))
	_, err = env.coordinator.Void(env.ctx, out.ID, env.actorID)
	assert.ErrorIs(t, err, shared.ErrAlreadyVoided)
	assert.Len(t, env.journal(ledger.EntryFilter{}), before)

	stored, err := env.queries.GetTransaction(env.ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionStatusVoided, stored.Status)
	assert.Len(t, stored.EntryIDs, 2)
}

func TestPostgresLedger_TransferAtomicity(t *testing.T) {
	env := newLedgerEnv(t, false)
	p, w1 := env.product(0), env.warehouse()
	_, err := env.submit(ledger.TransactionTypeIn, nil, &w1, p, 50)
	require.NoError(t, err)
	entriesBefore := len(env.journal(ledger.EntryFilter{}))

	missing := uuid.New()
	_, err = env.submit(ledger.TransactionTypeTransfer, &w1, &missing, p, 10)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.EqualValues(t, 50, env.onHand(p, w1))
	assert.EqualValues(t, 0, env.onHand(p, missing))
	assert.Len(t, env.journal(ledger.EntryFilter{}), entriesBefore)
}

func TestPostgresLedger_SettlementRollsBackWithStock(t *testing.T) {
	env := newLedgerEnv(t, false)
	p, w1 := env.product(0), env.warehouse()
	_, err := env.submit(ledger.TransactionTypeIn, nil, &w1, p, 10)
	require.NoError(t, err)

	ghostAccount := uuid.New()
	_, err = env.coordinator.Submit(env.ctx, ledger.TransactionRequest{
		Type:            ledger.TransactionTypeOut,
		Items:           []ledger.Item{{ProductID: p, Quantity: 4, Price: decimal.NewFromInt(5)}},
		FromWarehouseID: &w1,
		ActorID:         env.actorID,
		Settlements: []finance.Movement{
			finance.NewPayment(finance.PaymentReceived, decimal.NewFromInt(20), &ghostAccount, nil, "INV-1"),
		},
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.EqualValues(t, 10, env.onHand(p, w1))

	customer := env.party()
	tx, err := env.coordinator.Submit(env.ctx, ledger.TransactionRequest{
		Type:            ledger.TransactionTypeOut,
		Items:           []ledger.Item{{ProductID: p, Quantity: 4, Price: decimal.NewFromInt(5)}},
		FromWarehouseID: &w1,
		PartyID:         &customer,
		ActorID:         env.actorID,
		Settlements: []finance.Movement{
			finance.NewPayment(finance.PaymentReceived, decimal.NewFromInt(20), nil, &customer, "INV-2"),
		},
	})
	require.NoError(t, err)
	assert.Len(t, tx.EntryIDs, 2)
	assert.EqualValues(t, 6, env.onHand(p, w1))

	balance, err := env.queries.Balance(env.ctx, ledger.PartyKey(customer))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(balance), balance.String())
}

func TestPostgresLedger_ConcurrentOversell(t *testing.T) {
	env := newLedgerEnv(t, false)
	p, w1 := env.product(0), env.warehouse()
	_, err := env.submit(ledger.TransactionTypeIn, nil, &w1, p, 100)
	require.NoError(t, err)

	// Two coordinators with separate lockers stand in for two service
	// instances; only the row lock on stock_levels serializes them.
	coordinators := []*appledger.Coordinator{env.coordinator, newCoordinator(env.repos)}

	var wg sync.WaitGroup
	errs := make([]error, len(coordinators))
	for i, c := range coordinators {
		wg.Add(1)
		go func(i int, c *appledger.Coordinator) {
			defer wg.Done()
			_, errs[i] = c.Submit(env.ctx, ledger.TransactionRequest{
				Type:            ledger.TransactionTypeOut,
				Items:           []ledger.Item{{ProductID: p, Quantity: 60}},
				FromWarehouseID: &w1,
				ActorID:         env.actorID,
			})
		}(i, c)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		code := shared.ErrorCode(err)
		assert.Contains(t, []string{shared.CodeInsufficientStock, shared.CodeNegativeStock, shared.CodeConcurrencyConflict}, code, err.Error())
	}
	assert.Equal(t, 1, succeeded)
	assert.EqualValues(t, 40, env.onHand(p, w1))
}

func TestPostgresLedger_FoldConsistencyUnderConcurrency(t *testing.T) {
	env := newLedgerEnv(t, false)
	derived := persistence.NewRepositories(env.db.DB, true)

	products := []uuid.UUID{env.product(0), env.product(0)}
	warehouses := []uuid.UUID{env.warehouse(), env.warehouse()}
	for _, p := range products {
		for _, w := range warehouses {
			_, err := env.submit(ledger.TransactionTypeIn, nil, &w, p, 50)
			require.NoError(t, err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := products[i%2]
			from, to := warehouses[i%2], warehouses[(i+1)%2]
			switch i % 4 {
			case 0:
				_, _ = env.submit(ledger.TransactionTypeOut, &from, nil, p, 7)
			case 1:
				_, _ = env.submit(ledger.TransactionTypeTransfer, &from, &to, p, 5)
			default:
				_, _ = env.submit(ledger.TransactionTypeIn, nil, &to, p, 3)
			}
		}(i)
	}
	wg.Wait()

	for _, p := range products {
		for _, w := range warehouses {
			key := ledger.StockKey{ProductID: p, WarehouseID: w}
			cached, err := env.repos.Quantities.QuantityOnHand(env.ctx, key)
			require.NoError(t, err)
			folded, err := derived.Quantities.QuantityOnHand(env.ctx, key)
			require.NoError(t, err)
			assert.Equal(t, folded, cached)
			assert.GreaterOrEqual(t, cached, int64(0))
		}
	}

	entries := env.journal(ledger.EntryFilter{})
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i].Seq, entries[i-1].Seq)
	}
}

func TestPostgresLedger_JournalIsAppendOnly(t *testing.T) {
	env := newLedgerEnv(t, false)
	p, w1 := env.product(0), env.warehouse()
	tx, err := env.submit(ledger.TransactionTypeIn, nil, &w1, p, 5)
	require.NoError(t, err)

	err = env.db.DB.Exec("UPDATE journal_entries SET quantity_change = 500 WHERE transaction_id = ?", tx.ID).Error
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	err = env.db.DB.Exec("DELETE FROM journal_entries WHERE transaction_id = ?", tx.ID).Error
	require.Error(t, err)

	err = env.db.DB.Exec("UPDATE stock_levels SET on_hand = -1 WHERE product_id = ?", p).Error
	require.Error(t, err)
	assert.EqualValues(t, 5, env.onHand(p, w1))
}

func TestPostgresLedger_ReorderMonitor(t *testing.T) {
	env := newLedgerEnv(t, false)
	low, fine, w1 := env.product(10), env.product(10), env.warehouse()
	_, err := env.submit(ledger.TransactionTypeIn, nil, &w1, low, 8)
	require.NoError(t, err)
	_, err = env.submit(ledger.TransactionTypeIn, nil, &w1, fine, 40)
	require.NoError(t, err)

	monitor := appledger.NewReorderMonitor(env.repos.Quantities, env.repos.Products, nil)
	alerts, err := monitor.BelowReorder(env.ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, low, alerts[0].ProductID)
	assert.Equal(t, w1, alerts[0].WarehouseID)
	assert.EqualValues(t, 8, alerts[0].OnHand)
	assert.EqualValues(t, 10, alerts[0].ReorderLevel)
}
