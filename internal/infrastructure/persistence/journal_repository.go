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

// GormJournal implements ledger.Journal over journal_entries.
// Sequence numbers come from the journal_sequences row, which Append locks
// until the surrounding database transaction ends.
type GormJournal struct {
	db *gorm.DB
}

// NewGormJournal creates a new GormJournal
func NewGormJournal(db *gorm.DB) *GormJournal {
	return &GormJournal{db: db}
}

// Append assigns sequence numbers and inserts the entries.
// It must run inside a database transaction.
func (r *GormJournal) Append(ctx context.Context, entries ...*ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e == nil || !e.Kind.IsValid() {
			return shared.NewValidationError("cannot append an invalid journal entry")
		}
	}

	db := r.db.WithContext(ctx)
	seq, err := r.lockSequence(db)
	if err != nil {
		return err
	}

	rows := make([]*models.JournalEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.JournalEntryModelFromDomain(e)
		rows[i].Seq = seq.LastSeq + int64(i) + 1
	}
	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert journal entries: %w", err)
	}
	if err := db.Model(&models.JournalSequenceModel{}).
		Where("name = ?", seq.Name).
		Update("last_seq", seq.LastSeq+int64(len(entries))).Error; err != nil {
		return fmt.Errorf("failed to advance journal sequence: %w", err)
	}

	for i, e := range entries {
		e.Seq = rows[i].Seq
	}
	return nil
}

func (r *GormJournal) lockSequence(db *gorm.DB) (*models.JournalSequenceModel, error) {
	var seq models.JournalSequenceModel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", models.JournalSequenceName).
		First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = models.JournalSequenceModel{Name: models.JournalSequenceName}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error; err != nil {
			return nil, fmt.Errorf("failed to create journal sequence: %w", err)
		}
		err = db.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", models.JournalSequenceName).
			First(&seq).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock journal sequence: %w", err)
	}
	return &seq, nil
}

// ListEntries returns matching entries in ascending Seq order and the total match count
func (r *GormJournal) ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]ledger.Entry, int64, error) {
	query := applyEntryFilter(r.db.WithContext(ctx).Model(&models.JournalEntryModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page.Normalize()
	var rows []models.JournalEntryModel
	if err := query.Order("seq ASC").Offset(page.Offset()).Limit(page.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return entriesToDomain(rows), total, nil
}

// EntriesForTransaction returns every entry tied to a transaction in Seq order
func (r *GormJournal) EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]ledger.Entry, error) {
	var rows []models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return entriesToDomain(rows), nil
}

func applyEntryFilter(query *gorm.DB, f ledger.EntryFilter) *gorm.DB {
	if f.AfterSeq > 0 {
		query = query.Where("seq > ?", f.AfterSeq)
	}
	if f.Kind != nil {
		query = query.Where("kind = ?", string(*f.Kind))
	}
	if f.ProductID != nil {
		query = query.Where("product_id = ?", *f.ProductID)
	}
	if f.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *f.WarehouseID)
	}
	if f.AccountID != nil {
		query = query.Where("account_id = ?", *f.AccountID)
	}
	if f.PartyID != nil {
		query = query.Where("party_id = ?", *f.PartyID)
	}
	if f.TransactionID != nil {
		query = query.Where("transaction_id = ?", *f.TransactionID)
	}
	return query
}

func entriesToDomain(rows []models.JournalEntryModel) []ledger.Entry {
	out := make([]ledger.Entry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

var _ ledger.Journal = (*GormJournal)(nil)
