package partner

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
)

// Warehouse is a stock location. Quantity records are keyed by
// (product, warehouse); the warehouse itself holds no stock figures.
type Warehouse struct {
	shared.BaseEntity
	shared.SoftDeletable
	Code     string
	Name     string
	Location string
}

// NewWarehouse creates a new warehouse with required fields
func NewWarehouse(code, name, location string) (*Warehouse, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewValidationError("warehouse code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewValidationError("warehouse code cannot exceed 50 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("warehouse name cannot be empty")
	}

	return &Warehouse{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       name,
		Location:   strings.TrimSpace(location),
	}, nil
}
