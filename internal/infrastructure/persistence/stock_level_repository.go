package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormQuantityStore implements ledger.QuantityStore over the stock_levels table.
// With deriveOnRead set, committed reads sum journal_entries instead.
type GormQuantityStore struct {
	db           *gorm.DB
	deriveOnRead bool
}

// NewGormQuantityStore creates a new GormQuantityStore
func NewGormQuantityStore(db *gorm.DB, deriveOnRead bool) *GormQuantityStore {
	return &GormQuantityStore{db: db, deriveOnRead: deriveOnRead}
}

// QuantityOnHand returns the on-hand figure; a missing record reads as 0
func (r *GormQuantityStore) QuantityOnHand(ctx context.Context, key ledger.StockKey) (int64, error) {
	if r.deriveOnRead {
		return r.derivedQuantity(ctx, key)
	}
	var m models.StockLevelModel
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", key.ProductID, key.WarehouseID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return m.OnHand, nil
}

func (r *GormQuantityStore) derivedQuantity(ctx context.Context, key ledger.StockKey) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).
		Select("COALESCE(SUM(quantity_change), 0)").
		Where("kind = ? AND product_id = ? AND warehouse_id = ?", string(ledger.EntryKindStock), key.ProductID, key.WarehouseID).
		Row().Scan(&sum)
	return sum, err
}

// ApplyStockDelta locks the record, applies delta and returns the new figure.
// It must run inside a database transaction for the row lock to hold.
func (r *GormQuantityStore) ApplyStockDelta(ctx context.Context, key ledger.StockKey, delta int64) (int64, error) {
	db := r.db.WithContext(ctx)

	var m models.StockLevelModel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND warehouse_id = ?", key.ProductID, key.WarehouseID).
		First(&m).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if delta < 0 {
			return 0, shared.NewNegativeStockError(key.ProductID, key.WarehouseID, 0, delta)
		}
		m = models.StockLevelModel{
			ProductID:   key.ProductID,
			WarehouseID: key.WarehouseID,
			OnHand:      delta,
			UpdatedAt:   time.Now(),
		}
		if err := db.Create(&m).Error; err != nil {
			return 0, err
		}
		return m.OnHand, nil
	case err != nil:
		return 0, err
	}

	next, err := ledger.AddQuantity(key, m.OnHand, delta)
	if err != nil {
		return m.OnHand, err
	}
	if next < 0 {
		return m.OnHand, shared.NewNegativeStockError(key.ProductID, key.WarehouseID, m.OnHand, delta)
	}
	if err := db.Model(&models.StockLevelModel{}).
		Where("product_id = ? AND warehouse_id = ?", key.ProductID, key.WarehouseID).
		Updates(map[string]any{"on_hand": next, "updated_at": time.Now()}).Error; err != nil {
		return 0, err
	}
	return next, nil
}

// ListStockLevels returns every committed quantity record
func (r *GormQuantityStore) ListStockLevels(ctx context.Context) ([]ledger.StockLevel, error) {
	var levels []ledger.StockLevel
	var err error
	if r.deriveOnRead {
		err = r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).
			Select("product_id, warehouse_id, SUM(quantity_change) AS on_hand").
			Where("kind = ?", string(ledger.EntryKindStock)).
			Group("product_id, warehouse_id").
			Order("product_id, warehouse_id").
			Scan(&levels).Error
	} else {
		err = r.db.WithContext(ctx).Model(&models.StockLevelModel{}).
			Select("product_id, warehouse_id, on_hand").
			Order("product_id, warehouse_id").
			Scan(&levels).Error
	}
	if err != nil {
		return nil, err
	}
	if levels == nil {
		levels = []ledger.StockLevel{}
	}
	return levels, nil
}

var (
	_ ledger.QuantityStore    = (*GormQuantityStore)(nil)
	_ ledger.StockLevelReader = (*GormQuantityStore)(nil)
)
