package memory

import (
	"context"
	"sort"

	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// FindProduct implements catalog.ProductReader
func (s *Store) FindProduct(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, shared.NewNotFoundError("product", id)
	}
	return &p, nil
}

// FindActiveBySKUOrBarcode implements catalog.ProductRepository
func (s *Store) FindActiveBySKUOrBarcode(_ context.Context, sku, barcode string) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Product, 0)
	for _, p := range s.products {
		if p.IsDeleted() {
			continue
		}
		if p.SKU == sku || (barcode != "" && p.Barcode == barcode) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListProducts implements catalog.ProductRepository
func (s *Store) ListProducts(_ context.Context, page shared.Page) ([]catalog.Product, int64, error) {
	s.mu.RLock()
	all := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.IsDeleted() {
			all = append(all, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].SKU < all[j].SKU })
	total := int64(len(all))
	page = page.Normalize()
	offset := page.Offset()
	if offset < 0 || offset >= len(all) {
		return []catalog.Product{}, total, nil
	}
	end := min(offset+page.PageSize, len(all))
	return all[offset:end], total, nil
}

// SaveProduct implements catalog.ProductRepository
func (s *Store) SaveProduct(_ context.Context, product *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = *product
	return nil
}

// FindWarehouse implements partner.WarehouseReader
func (s *Store) FindWarehouse(_ context.Context, id uuid.UUID) (*partner.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.warehouses[id]
	if !ok {
		return nil, shared.NewNotFoundError("warehouse", id)
	}
	return &w, nil
}

// SaveWarehouse implements partner.WarehouseRepository
func (s *Store) SaveWarehouse(_ context.Context, warehouse *partner.Warehouse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses[warehouse.ID] = *warehouse
	return nil
}

// FindParty implements partner.PartyReader
func (s *Store) FindParty(_ context.Context, id uuid.UUID) (*partner.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parties[id]
	if !ok {
		return nil, shared.NewNotFoundError("party", id)
	}
	return &p, nil
}

// SaveParty implements partner.PartyRepository
func (s *Store) SaveParty(_ context.Context, party *partner.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties[party.ID] = *party
	return nil
}

// FindAccount implements finance.AccountReader
func (s *Store) FindAccount(_ context.Context, id uuid.UUID) (*finance.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, shared.NewNotFoundError("account", id)
	}
	return &a, nil
}

// SaveAccount implements finance.AccountRepository
func (s *Store) SaveAccount(_ context.Context, account *finance.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = *account
	return nil
}

var (
	_ catalog.ProductRepository   = (*Store)(nil)
	_ partner.WarehouseRepository = (*Store)(nil)
	_ partner.PartyRepository     = (*Store)(nil)
	_ finance.AccountRepository   = (*Store)(nil)
)
