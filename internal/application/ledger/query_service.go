package ledger

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QueryService answers read-only questions from committed state
type QueryService struct {
	quantities   ledger.QuantityReader
	balances     ledger.BalanceReader
	journal      ledger.JournalReader
	transactions ledger.TransactionReader
}

// NewQueryService creates a new QueryService
func NewQueryService(
	quantities ledger.QuantityReader,
	balances ledger.BalanceReader,
	journal ledger.JournalReader,
	transactions ledger.TransactionReader,
) *QueryService {
	return &QueryService{
		quantities:   quantities,
		balances:     balances,
		journal:      journal,
		transactions: transactions,
	}
}

// ListEntries returns a page of journal entries in ascending Seq order
func (s *QueryService) ListEntries(ctx context.Context, filter ledger.EntryFilter) (shared.Paginated[ledger.Entry], error) {
	filter.Page = filter.Page.Normalize()
	entries, total, err := s.journal.ListEntries(ctx, filter)
	if err != nil {
		return shared.Paginated[ledger.Entry]{}, err
	}
	return shared.NewPaginated(entries, total, filter.Page.Page, filter.Page.PageSize), nil
}

// QuantityOnHand returns the committed on-hand quantity of a record
func (s *QueryService) QuantityOnHand(ctx context.Context, productID, warehouseID uuid.UUID) (int64, error) {
	return s.quantities.QuantityOnHand(ctx, ledger.StockKey{ProductID: productID, WarehouseID: warehouseID})
}

// Balance returns the committed balance of an account or party
func (s *QueryService) Balance(ctx context.Context, key ledger.BalanceKey) (decimal.Decimal, error) {
	return s.balances.Balance(ctx, key)
}

// GetTransaction returns a transaction with its entry ids
func (s *QueryService) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return s.transactions.FindTransaction(ctx, id)
}
