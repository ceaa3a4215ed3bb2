package catalog

import (
	"context"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductReader looks products up by identity
type ProductReader interface {
	// FindProduct returns the product including soft-deleted ones,
	// or shared.ErrNotFound.
	FindProduct(ctx context.Context, id uuid.UUID) (*Product, error)
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	ProductReader

	// FindActiveBySKUOrBarcode returns non-deleted products sharing the SKU or barcode
	FindActiveBySKUOrBarcode(ctx context.Context, sku, barcode string) ([]Product, error)

	// ListProducts returns non-deleted products ordered by SKU
	ListProducts(ctx context.Context, page shared.Page) ([]Product, int64, error)

	// SaveProduct creates or updates a product
	SaveProduct(ctx context.Context, product *Product) error
}
