package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTransactionRepository implements ledger.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindTransaction loads a transaction with its items and journal entry IDs
func (r *GormTransactionRepository) FindTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	db := r.db.WithContext(ctx)

	var m models.LedgerTransactionModel
	if err := db.Preload("Items").First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("transaction", id)
		}
		return nil, err
	}

	entries, err := NewGormJournal(r.db).EntriesForTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	entryIDs := make([]uuid.UUID, len(entries))
	for i := range entries {
		entryIDs[i] = entries[i].ID
	}
	return m.ToDomain(entryIDs), nil
}

// SaveTransaction upserts the header. Items are written once, on creation.
func (r *GormTransactionRepository) SaveTransaction(ctx context.Context, tx *ledger.Transaction) error {
	m := models.LedgerTransactionModelFromDomain(tx)
	items := m.Items
	m.Items = nil

	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "completed_at", "voided_at", "voided_by"}),
	}).Create(m).Error; err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	if len(items) == 0 {
		return nil
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&items).Error; err != nil {
		return fmt.Errorf("failed to save transaction items: %w", err)
	}
	return nil
}

var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
