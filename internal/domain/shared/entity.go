package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity provides common fields for all entities
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt returns the creation timestamp
func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// GetUpdatedAt returns the last update timestamp
func (e *BaseEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// NewBaseEntity creates a new base entity with generated ID
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SoftDeletable marks master data that is referenced by ledger entries and
// therefore never physically removed.
type SoftDeletable struct {
	DeletedAt *time.Time
}

// IsDeleted reports whether the record has been soft-deleted
func (s *SoftDeletable) IsDeleted() bool {
	return s.DeletedAt != nil
}

// MarkDeleted soft-deletes the record
func (s *SoftDeletable) MarkDeleted() {
	now := time.Now()
	s.DeletedAt = &now
}
