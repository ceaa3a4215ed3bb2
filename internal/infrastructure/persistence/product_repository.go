package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindProduct finds a product by ID, soft-deleted ones included
func (r *GormProductRepository) FindProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var m models.ProductModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("product", id)
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindActiveBySKUOrBarcode returns non-deleted products sharing the SKU or barcode
func (r *GormProductRepository) FindActiveBySKUOrBarcode(ctx context.Context, sku, barcode string) ([]catalog.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductModel{}).Where("deleted_at IS NULL")
	if barcode != "" {
		query = query.Where("sku = ? OR barcode = ?", sku, barcode)
	} else {
		query = query.Where("sku = ?", sku)
	}

	var ms []models.ProductModel
	if err := query.Find(&ms).Error; err != nil {
		return nil, err
	}
	return productsToDomain(ms), nil
}

// ListProducts returns non-deleted products ordered by SKU
func (r *GormProductRepository) ListProducts(ctx context.Context, page shared.Page) ([]catalog.Product, int64, error) {
	page = page.Normalize()
	query := r.db.WithContext(ctx).Model(&models.ProductModel{}).Where("deleted_at IS NULL")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.ProductModel
	if err := query.Order("sku ASC").Offset(page.Offset()).Limit(page.PageSize).Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return productsToDomain(ms), total, nil
}

// SaveProduct creates or updates a product
func (r *GormProductRepository) SaveProduct(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Save(models.ProductModelFromDomain(product)).Error
}

func productsToDomain(ms []models.ProductModel) []catalog.Product {
	out := make([]catalog.Product, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
