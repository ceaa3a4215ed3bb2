package masterdata

import (
	"context"
	"fmt"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateProductInput carries the fields of a new product
type CreateProductInput struct {
	SKU          string
	Barcode      string
	Name         string
	CategoryID   *uuid.UUID
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	ReorderLevel int64
}

// CreatePartyInput carries the fields of a new trading party
type CreatePartyInput struct {
	Name        string
	Type        partner.PartyType
	BalanceType partner.BalanceType
	CreditLimit decimal.Decimal
}

// Service manages the reference data that ledger entries point at.
// Nothing here touches quantities, balances or the journal.
type Service struct {
	products    catalog.ProductRepository
	warehouses  partner.WarehouseRepository
	parties     partner.PartyRepository
	accounts    finance.AccountRepository
	locker      appledger.KeyLocker
	lockTimeout time.Duration
	logger      *zap.Logger
}

// NewService creates a new master data service
func NewService(
	products catalog.ProductRepository,
	warehouses partner.WarehouseRepository,
	parties partner.PartyRepository,
	accounts finance.AccountRepository,
	locker appledger.KeyLocker,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		products:    products,
		warehouses:  warehouses,
		parties:     parties,
		accounts:    accounts,
		locker:      locker,
		lockTimeout: appledger.DefaultCoordinatorConfig().LockTimeout,
		logger:      logger,
	}
}

// SetLockTimeout bounds the wait for the SKU and barcode locks
func (s *Service) SetLockTimeout(d time.Duration) {
	if d > 0 {
		s.lockTimeout = d
	}
}

// CreateProduct creates a product whose SKU and barcode are not used by
// any other non-deleted product
func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (*catalog.Product, error) {
	product, err := catalog.NewProduct(in.SKU, in.Barcode, in.Name)
	if err != nil {
		return nil, err
	}
	if err := product.SetPrices(in.CostPrice, in.SellingPrice); err != nil {
		return nil, err
	}
	if err := product.SetReorderLevel(in.ReorderLevel); err != nil {
		return nil, err
	}
	product.SetCategory(in.CategoryID)

	keys := []string{"sku:" + product.SKU}
	if product.Barcode != "" {
		keys = append(keys, "barcode:"+product.Barcode)
	}
	release, err := s.locker.Acquire(ctx, appledger.SortedKeys(keys), s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.products.FindActiveBySKUOrBarcode(ctx, product.SKU, product.Barcode)
	if err != nil {
		return nil, fmt.Errorf("failed to check product uniqueness: %w", err)
	}
	for i := range existing {
		if product.ConflictsWith(&existing[i]) {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("product with SKU %q or barcode %q already exists", product.SKU, product.Barcode))
		}
	}

	if err := s.products.SaveProduct(ctx, product); err != nil {
		return nil, err
	}
	s.logger.Info("product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
	)
	return product, nil
}

// UpdateReorderLevel changes a product's replenishment threshold
func (s *Service) UpdateReorderLevel(ctx context.Context, id uuid.UUID, level int64) (*catalog.Product, error) {
	product, err := s.activeProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := product.SetReorderLevel(level); err != nil {
		return nil, err
	}
	if err := s.products.SaveProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct soft-deletes a product. Its journal history stays intact and
// new transactions referencing it fail with NOT_FOUND.
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.activeProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := product.Delete(); err != nil {
		return err
	}
	if err := s.products.SaveProduct(ctx, product); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.String("product_id", id.String()))
	return nil
}

// GetProduct returns a non-deleted product
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return s.activeProduct(ctx, id)
}

// ListProducts returns a page of non-deleted products
func (s *Service) ListProducts(ctx context.Context, page shared.Page) (shared.Paginated[catalog.Product], error) {
	page = page.Normalize()
	items, total, err := s.products.ListProducts(ctx, page)
	if err != nil {
		return shared.Paginated[catalog.Product]{}, err
	}
	return shared.NewPaginated(items, total, page.Page, page.PageSize), nil
}

// CreateWarehouse creates a stock location
func (s *Service) CreateWarehouse(ctx context.Context, code, name, location string) (*partner.Warehouse, error) {
	warehouse, err := partner.NewWarehouse(code, name, location)
	if err != nil {
		return nil, err
	}
	if err := s.warehouses.SaveWarehouse(ctx, warehouse); err != nil {
		return nil, err
	}
	return warehouse, nil
}

// CreateParty creates a customer and/or supplier
func (s *Service) CreateParty(ctx context.Context, in CreatePartyInput) (*partner.Party, error) {
	party, err := partner.NewParty(in.Name, in.Type, in.BalanceType)
	if err != nil {
		return nil, err
	}
	if err := party.SetCreditLimit(in.CreditLimit); err != nil {
		return nil, err
	}
	if err := s.parties.SaveParty(ctx, party); err != nil {
		return nil, err
	}
	return party, nil
}

// CreateAccount creates a financial account
func (s *Service) CreateAccount(ctx context.Context, code, name string, accountType finance.AccountType) (*finance.Account, error) {
	account, err := finance.NewAccount(code, name, accountType)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.SaveAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) activeProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	product, err := s.products.FindProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.IsDeleted() {
		return nil, shared.NewNotFoundError("product", id)
	}
	return product, nil
}
