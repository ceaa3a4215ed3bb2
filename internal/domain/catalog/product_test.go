package catalog

import (
	"strings"
	"testing"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduct(t *testing.T, sku, barcode string) *Product {
	t.Helper()
	p, err := NewProduct(sku, barcode, "Widget")
	require.NoError(t, err)
	return p
}

func TestNewProduct(t *testing.T) {
	t.Run("normalizes the SKU", func(t *testing.T) {
		p := newTestProduct(t, " sku-1 ", " 0123 ")

		assert.Equal(t, "SKU-1", p.SKU)
		assert.Equal(t, "0123", p.Barcode)
		assert.True(t, p.CostPrice.IsZero())
		assert.Zero(t, p.ReorderLevel)
	})

	tests := []struct {
		name    string
		sku     string
		barcode string
		product string
	}{
		{"empty sku", "", "", "Widget"},
		{"long sku", strings.Repeat("x", 51), "", "Widget"},
		{"long barcode", "SKU", strings.Repeat("1", 51), "Widget"},
		{"empty name", "SKU", "", "  "},
		{"long name", "SKU", "", strings.Repeat("n", 201)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProduct(tt.sku, tt.barcode, tt.product)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestProduct_Setters(t *testing.T) {
	p := newTestProduct(t, "SKU", "")

	assert.ErrorIs(t, p.SetPrices(decimal.NewFromInt(-1), decimal.Zero), shared.ErrValidation)
	assert.ErrorIs(t, p.SetPrices(decimal.Zero, decimal.NewFromInt(-1)), shared.ErrValidation)
	require.NoError(t, p.SetPrices(decimal.NewFromInt(3), decimal.NewFromInt(5)))
	assert.True(t, p.SellingPrice.Equal(decimal.NewFromInt(5)))

	assert.ErrorIs(t, p.SetReorderLevel(-1), shared.ErrValidation)
	require.NoError(t, p.SetReorderLevel(10))
	assert.EqualValues(t, 10, p.ReorderLevel)

	categoryID := uuid.New()
	p.SetCategory(&categoryID)
	assert.Equal(t, &categoryID, p.CategoryID)
}

func TestProduct_Delete(t *testing.T) {
	p := newTestProduct(t, "SKU", "")

	require.NoError(t, p.Delete())
	assert.True(t, p.IsDeleted())
	assert.ErrorIs(t, p.Delete(), shared.ErrInvalidState)
}

func TestProduct_NeedsReorder(t *testing.T) {
	p := newTestProduct(t, "SKU", "")
	assert.False(t, p.NeedsReorder(0), "no threshold configured")

	require.NoError(t, p.SetReorderLevel(5))
	assert.True(t, p.NeedsReorder(5))
	assert.True(t, p.NeedsReorder(0))
	assert.False(t, p.NeedsReorder(6))
}

func TestProduct_ConflictsWith(t *testing.T) {
	a := newTestProduct(t, "SKU-A", "111")

	assert.True(t, a.ConflictsWith(newTestProduct(t, "sku-a", "")))
	assert.True(t, a.ConflictsWith(newTestProduct(t, "SKU-B", "111")))
	assert.False(t, a.ConflictsWith(newTestProduct(t, "SKU-B", "222")))
	assert.False(t, a.ConflictsWith(a), "same product")
	assert.False(t, a.ConflictsWith(nil))

	deleted := newTestProduct(t, "SKU-A", "")
	require.NoError(t, deleted.Delete())
	assert.False(t, a.ConflictsWith(deleted))

	noBarcode := newTestProduct(t, "SKU-C", "")
	assert.False(t, noBarcode.ConflictsWith(newTestProduct(t, "SKU-D", "")), "empty barcodes never collide")
}
