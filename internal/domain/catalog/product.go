package catalog

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a stock-keeping unit referenced by ledger entries.
// Products are never physically deleted once created; SKU and barcode are
// unique among products that are not soft-deleted.
type Product struct {
	shared.BaseEntity
	shared.SoftDeletable
	SKU          string
	Barcode      string
	Name         string
	CategoryID   *uuid.UUID
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	ReorderLevel int64
}

// NewProduct creates a new product
func NewProduct(sku, barcode, name string) (*Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return nil, shared.NewValidationError("product SKU cannot be empty")
	}
	if len(sku) > 50 {
		return nil, shared.NewValidationError("product SKU cannot exceed 50 characters")
	}
	barcode = strings.TrimSpace(barcode)
	if len(barcode) > 50 {
		return nil, shared.NewValidationError("product barcode cannot exceed 50 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("product name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewValidationError("product name cannot exceed 200 characters")
	}

	return &Product{
		BaseEntity:   shared.NewBaseEntity(),
		SKU:          sku,
		Barcode:      barcode,
		Name:         name,
		CostPrice:    decimal.Zero,
		SellingPrice: decimal.Zero,
	}, nil
}

// SetPrices sets both cost and selling prices
func (p *Product) SetPrices(costPrice, sellingPrice decimal.Decimal) error {
	if costPrice.IsNegative() {
		return shared.NewValidationError("cost price cannot be negative")
	}
	if sellingPrice.IsNegative() {
		return shared.NewValidationError("selling price cannot be negative")
	}
	p.CostPrice = costPrice
	p.SellingPrice = sellingPrice
	p.UpdatedAt = time.Now()
	return nil
}

// SetReorderLevel sets the replenishment threshold
func (p *Product) SetReorderLevel(level int64) error {
	if level < 0 {
		return shared.NewValidationError("reorder level cannot be negative")
	}
	p.ReorderLevel = level
	p.UpdatedAt = time.Now()
	return nil
}

// SetCategory sets the product category
func (p *Product) SetCategory(categoryID *uuid.UUID) {
	p.CategoryID = categoryID
	p.UpdatedAt = time.Now()
}

// Delete soft-deletes the product. Its ledger history is kept.
func (p *Product) Delete() error {
	if p.IsDeleted() {
		return shared.NewDomainError(shared.CodeInvalidState, "product is already deleted")
	}
	p.MarkDeleted()
	p.UpdatedAt = time.Now()
	return nil
}

// NeedsReorder reports whether onHand is at or below the reorder level.
// A zero reorder level means no threshold is configured.
func (p *Product) NeedsReorder(onHand int64) bool {
	return p.ReorderLevel > 0 && onHand <= p.ReorderLevel
}

// ConflictsWith reports whether other would violate SKU/barcode uniqueness
func (p *Product) ConflictsWith(other *Product) bool {
	if other == nil || other.ID == p.ID || other.IsDeleted() || p.IsDeleted() {
		return false
	}
	if p.SKU == other.SKU {
		return true
	}
	return p.Barcode != "" && p.Barcode == other.Barcode
}
