package ledger

import (
	"context"

	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/partner"
)

// TransactionScope runs a unit of work. Every store mutation and journal
// append made through the repositories passed to fn commits together when
// fn returns nil, and none of them is visible to readers before that.
// If fn returns an error every tentative mutation is discarded.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger stores within one unit of work.
//
// Reads through these repositories see the unit's own tentative writes;
// reads through the committed readers never do.
type TransactionalRepositories interface {
	Quantities() ledger.QuantityStore
	Balances() ledger.BalanceStore
	Journal() ledger.Journal
	Transactions() ledger.TransactionRepository

	Products() catalog.ProductReader
	Warehouses() partner.WarehouseReader
	Parties() partner.PartyReader
	Accounts() finance.AccountReader
}
