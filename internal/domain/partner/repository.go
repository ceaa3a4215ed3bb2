package partner

import (
	"context"

	"github.com/google/uuid"
)

// WarehouseReader looks warehouses up by identity
type WarehouseReader interface {
	// FindWarehouse returns the warehouse including soft-deleted ones, or shared.ErrNotFound
	FindWarehouse(ctx context.Context, id uuid.UUID) (*Warehouse, error)
}

// PartyReader looks trading parties up by identity
type PartyReader interface {
	// FindParty returns the party including soft-deleted ones, or shared.ErrNotFound
	FindParty(ctx context.Context, id uuid.UUID) (*Party, error)
}

// WarehouseRepository persists warehouses
type WarehouseRepository interface {
	WarehouseReader
	SaveWarehouse(ctx context.Context, warehouse *Warehouse) error
}

// PartyRepository persists trading parties
type PartyRepository interface {
	PartyReader
	SaveParty(ctx context.Context, party *Party) error
}
