package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccountRepository implements finance.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindAccount finds an account by ID, soft-deleted ones included
func (r *GormAccountRepository) FindAccount(ctx context.Context, id uuid.UUID) (*finance.Account, error) {
	var m models.AccountModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("account", id)
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// SaveAccount creates or updates an account
func (r *GormAccountRepository) SaveAccount(ctx context.Context, account *finance.Account) error {
	return r.db.WithContext(ctx).Save(models.AccountModelFromDomain(account)).Error
}

var _ finance.AccountRepository = (*GormAccountRepository)(nil)
