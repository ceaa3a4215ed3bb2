package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fixture runs the coordinator over the in-memory store
type fixture struct {
	t           *testing.T
	ctx         context.Context
	store       *memory.Store
	coordinator *appledger.Coordinator
	queries     *appledger.QueryService
	publisher   *recordingPublisher
	actorID     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithConfig(t, appledger.DefaultCoordinatorConfig())
}

func newFixtureWithConfig(t *testing.T, cfg appledger.CoordinatorConfig) *fixture {
	return newFixtureWithMode(t, memory.ReadModeCache, cfg)
}

func newFixtureWithMode(t *testing.T, mode memory.ReadMode, cfg appledger.CoordinatorConfig) *fixture {
	t.Helper()
	store := memory.NewStore(mode)
	coordinator := appledger.NewCoordinator(store, cache.NewInMemoryKeyLocker(), cfg, nil)
	publisher := &recordingPublisher{}
	coordinator.SetEventPublisher(publisher)
	return &fixture{
		t:           t,
		ctx:         context.Background(),
		store:       store,
		coordinator: coordinator,
		queries:     appledger.NewQueryService(store, store, store, store),
		publisher:   publisher,
		actorID:     uuid.New(),
	}
}

// forEachReadMode runs fn against a store answering from running totals and
// against one folding the journal on every read
func forEachReadMode(t *testing.T, fn func(t *testing.T, f *fixture)) {
	t.Run("cached", func(t *testing.T) {
		fn(t, newFixtureWithMode(t, memory.ReadModeCache, appledger.DefaultCoordinatorConfig()))
	})
	t.Run("derived", func(t *testing.T) {
		fn(t, newFixtureWithMode(t, memory.ReadModeDerive, appledger.DefaultCoordinatorConfig()))
	})
}

func (f *fixture) product(reorderLevel int64) uuid.UUID {
	f.t.Helper()
	p, err := catalog.NewProduct("SKU-"+uuid.NewString()[:8], "", "Widget")
	require.NoError(f.t, err)
	require.NoError(f.t, p.SetReorderLevel(reorderLevel))
	require.NoError(f.t, f.store.SaveProduct(f.ctx, p))
	return p.ID
}

func (f *fixture) warehouse() uuid.UUID {
	f.t.Helper()
	w, err := partner.NewWarehouse("WH-"+uuid.NewString()[:8], "Main", "")
	require.NoError(f.t, err)
	require.NoError(f.t, f.store.SaveWarehouse(f.ctx, w))
	return w.ID
}

func (f *fixture) party(balanceType partner.BalanceType, limit int64) uuid.UUID {
	f.t.Helper()
	p, err := partner.NewParty("Acme", partner.PartyTypeBoth, balanceType)
	require.NoError(f.t, err)
	require.NoError(f.t, p.SetCreditLimit(decimal.NewFromInt(limit)))
	require.NoError(f.t, f.store.SaveParty(f.ctx, p))
	return p.ID
}

func (f *fixture) account() uuid.UUID {
	f.t.Helper()
	a, err := finance.NewAccount("ACC-"+uuid.NewString()[:8], "Till", finance.AccountTypeCash)
	require.NoError(f.t, err)
	require.NoError(f.t, f.store.SaveAccount(f.ctx, a))
	return a.ID
}

func (f *fixture) in(productID, warehouseID uuid.UUID, qty int64) *ledger.Transaction {
	f.t.Helper()
	tx, err := f.coordinator.Submit(f.ctx, f.request(ledger.TransactionTypeIn, nil, &warehouseID, productID, qty))
	require.NoError(f.t, err)
	return tx
}

func (f *fixture) request(typ ledger.TransactionType, from, to *uuid.UUID, productID uuid.UUID, qty int64) ledger.TransactionRequest {
	return ledger.TransactionRequest{
		Type:            typ,
		Items:           []ledger.Item{{ProductID: productID, Quantity: qty}},
		FromWarehouseID: from,
		ToWarehouseID:   to,
		ActorID:         f.actorID,
	}
}

func (f *fixture) onHand(productID, warehouseID uuid.UUID) int64 {
	f.t.Helper()
	n, err := f.queries.QuantityOnHand(f.ctx, productID, warehouseID)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) balance(key ledger.BalanceKey) decimal.Decimal {
	f.t.Helper()
	b, err := f.queries.Balance(f.ctx, key)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) entries(filter ledger.EntryFilter) []ledger.Entry {
	f.t.Helper()
	filter.PageSize = shared.MaxPageSize
	page, err := f.queries.ListEntries(f.ctx, filter)
	require.NoError(f.t, err)
	return page.Items
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// contendedLocker always reports lock contention
type contendedLocker struct{}

func (contendedLocker) Acquire(context.Context, []string, time.Duration) (func(), error) {
	return nil, shared.ErrConcurrencyConflict
}
