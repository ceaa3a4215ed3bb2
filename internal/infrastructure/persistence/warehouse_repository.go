package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWarehouseRepository implements partner.WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindWarehouse finds a warehouse by ID, soft-deleted ones included
func (r *GormWarehouseRepository) FindWarehouse(ctx context.Context, id uuid.UUID) (*partner.Warehouse, error) {
	var m models.WarehouseModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("warehouse", id)
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// SaveWarehouse creates or updates a warehouse
func (r *GormWarehouseRepository) SaveWarehouse(ctx context.Context, warehouse *partner.Warehouse) error {
	return r.db.WithContext(ctx).Save(models.WarehouseModelFromDomain(warehouse)).Error
}

// GormPartyRepository implements partner.PartyRepository using GORM
type GormPartyRepository struct {
	db *gorm.DB
}

// NewGormPartyRepository creates a new GormPartyRepository
func NewGormPartyRepository(db *gorm.DB) *GormPartyRepository {
	return &GormPartyRepository{db: db}
}

// FindParty finds a party by ID, soft-deleted ones included
func (r *GormPartyRepository) FindParty(ctx context.Context, id uuid.UUID) (*partner.Party, error) {
	var m models.PartyModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("party", id)
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// SaveParty creates or updates a party
func (r *GormPartyRepository) SaveParty(ctx context.Context, party *partner.Party) error {
	return r.db.WithContext(ctx).Save(models.PartyModelFromDomain(party)).Error
}

var (
	_ partner.WarehouseRepository = (*GormWarehouseRepository)(nil)
	_ partner.PartyRepository     = (*GormPartyRepository)(nil)
)
