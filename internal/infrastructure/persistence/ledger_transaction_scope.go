package persistence

import (
	"context"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/partner"
	"gorm.io/gorm"
)

// GormTransactionScope implements appledger.TransactionScope using GORM transactions.
// Every store handed to fn shares one database transaction; a returned error
// rolls all of them back.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories exposes the stores bound to one transaction.
// Quantities and balances always read the maintained rows here, since they
// reflect deltas applied earlier in the same transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Quantities() ledger.QuantityStore {
	return NewGormQuantityStore(r.tx, false)
}

func (r *gormTransactionalRepositories) Balances() ledger.BalanceStore {
	return NewGormBalanceStore(r.tx, false)
}

func (r *gormTransactionalRepositories) Journal() ledger.Journal {
	return NewGormJournal(r.tx)
}

func (r *gormTransactionalRepositories) Transactions() ledger.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) Products() catalog.ProductReader {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) Warehouses() partner.WarehouseReader {
	return NewGormWarehouseRepository(r.tx)
}

func (r *gormTransactionalRepositories) Parties() partner.PartyReader {
	return NewGormPartyRepository(r.tx)
}

func (r *gormTransactionalRepositories) Accounts() finance.AccountReader {
	return NewGormAccountRepository(r.tx)
}

// Repositories bundles the committed-state stores for wiring
type Repositories struct {
	Scope        *GormTransactionScope
	Quantities   *GormQuantityStore
	Balances     *GormBalanceStore
	Journal      *GormJournal
	Transactions *GormTransactionRepository
	Products     *GormProductRepository
	Warehouses   *GormWarehouseRepository
	Parties      *GormPartyRepository
	Accounts     *GormAccountRepository
}

// NewRepositories creates every GORM store on db. deriveOnRead makes
// committed quantity and balance reads fold the journal.
func NewRepositories(db *gorm.DB, deriveOnRead bool) *Repositories {
	return &Repositories{
		Scope:        NewGormTransactionScope(db),
		Quantities:   NewGormQuantityStore(db, deriveOnRead),
		Balances:     NewGormBalanceStore(db, deriveOnRead),
		Journal:      NewGormJournal(db),
		Transactions: NewGormTransactionRepository(db),
		Products:     NewGormProductRepository(db),
		Warehouses:   NewGormWarehouseRepository(db),
		Parties:      NewGormPartyRepository(db),
		Accounts:     NewGormAccountRepository(db),
	}
}

var (
	_ appledger.TransactionScope          = (*GormTransactionScope)(nil)
	_ appledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
