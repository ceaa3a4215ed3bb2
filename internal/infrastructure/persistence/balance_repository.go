package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBalanceStore implements ledger.BalanceStore over the balances table.
// With deriveOnRead set, committed reads sum journal_entries instead.
type GormBalanceStore struct {
	db           *gorm.DB
	deriveOnRead bool
}

// NewGormBalanceStore creates a new GormBalanceStore
func NewGormBalanceStore(db *gorm.DB, deriveOnRead bool) *GormBalanceStore {
	return &GormBalanceStore{db: db, deriveOnRead: deriveOnRead}
}

// Balance returns the balance; a missing record reads as 0
func (r *GormBalanceStore) Balance(ctx context.Context, key ledger.BalanceKey) (decimal.Decimal, error) {
	if r.deriveOnRead {
		return r.derivedBalance(ctx, key)
	}
	var m models.BalanceModel
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", string(key.Owner), key.ID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return m.Balance, nil
}

func (r *GormBalanceStore) derivedBalance(ctx context.Context, key ledger.BalanceKey) (decimal.Decimal, error) {
	column := "account_id"
	if key.Owner == ledger.BalanceOwnerParty {
		column = "party_id"
	}
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).
		Select("SUM(amount)").
		Where("kind = ? AND "+column+" = ?", string(ledger.EntryKindBalance), key.ID).
		Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// ApplyBalanceDelta locks the balance row, adds delta and returns the new balance
func (r *GormBalanceStore) ApplyBalanceDelta(ctx context.Context, key ledger.BalanceKey, delta decimal.Decimal) (decimal.Decimal, error) {
	db := r.db.WithContext(ctx)

	var m models.BalanceModel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_type = ? AND owner_id = ?", string(key.Owner), key.ID).
		First(&m).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		m = models.BalanceModel{
			OwnerType: string(key.Owner),
			OwnerID:   key.ID,
			Balance:   delta,
			UpdatedAt: time.Now(),
		}
		if err := db.Create(&m).Error; err != nil {
			return decimal.Zero, err
		}
		return m.Balance, nil
	case err != nil:
		return decimal.Zero, err
	}

	next := m.Balance.Add(delta)
	if err := db.Model(&models.BalanceModel{}).
		Where("owner_type = ? AND owner_id = ?", string(key.Owner), key.ID).
		Updates(map[string]any{"balance": next, "updated_at": time.Now()}).Error; err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

var _ ledger.BalanceStore = (*GormBalanceStore)(nil)
