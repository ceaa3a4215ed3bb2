package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// newTestDatabase opens a private shared-cache in-memory sqlite database
// with every table migrated
func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fixtures struct {
	product   *catalog.Product
	warehouse *partner.Warehouse
	other     *partner.Warehouse
	party     *partner.Party
	account   *finance.Account
}

func seedFixtures(t *testing.T, repos *Repositories) fixtures {
	t.Helper()
	ctx := context.Background()

	product, err := catalog.NewProduct("SKU-1", "", "Widget")
	require.NoError(t, err)
	require.NoError(t, repos.Products.SaveProduct(ctx, product))

	wh, err := partner.NewWarehouse("W1", "Main", "")
	require.NoError(t, err)
	require.NoError(t, repos.Warehouses.SaveWarehouse(ctx, wh))

	other, err := partner.NewWarehouse("W2", "Overflow", "")
	require.NoError(t, err)
	require.NoError(t, repos.Warehouses.SaveWarehouse(ctx, other))

	party, err := partner.NewParty("Acme", partner.PartyTypeCustomer, partner.BalanceTypeDebit)
	require.NoError(t, err)
	require.NoError(t, repos.Parties.SaveParty(ctx, party))

	account, err := finance.NewAccount("CASH", "Cash", finance.AccountTypeCash)
	require.NoError(t, err)
	require.NoError(t, repos.Accounts.SaveAccount(ctx, account))

	return fixtures{product: product, warehouse: wh, other: other, party: party, account: account}
}

func keyOf(productID, warehouseID uuid.UUID) ledger.StockKey {
	return ledger.StockKey{ProductID: productID, WarehouseID: warehouseID}
}

func stockEntry(productID, warehouseID uuid.UUID, change int64) *ledger.Entry {
	entryType := ledger.EntryTypePurchase
	if change < 0 {
		entryType = ledger.EntryTypeSale
	}
	return ledger.NewStockEntry(keyOf(productID, warehouseID), change, entryType, uuid.New(), "test")
}
