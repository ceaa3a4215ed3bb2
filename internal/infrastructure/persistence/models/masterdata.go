package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MasterDataModel adds the soft-delete marker to BaseModel. Master data is
// referenced by journal entries and is never physically removed.
type MasterDataModel struct {
	BaseModel
	DeletedAt *time.Time `gorm:"index"`
}

// FromDomainMasterData populates MasterDataModel from domain fields
func (m *MasterDataModel) FromDomainMasterData(e shared.BaseEntity, d shared.SoftDeletable) {
	m.FromDomainBaseEntity(e)
	m.DeletedAt = d.DeletedAt
}

// ProductModel is the persistence model for catalog.Product
type ProductModel struct {
	MasterDataModel
	SKU          string          `gorm:"type:varchar(50);not null;index"`
	Barcode      string          `gorm:"type:varchar(50);index"`
	Name         string          `gorm:"type:varchar(200);not null"`
	CategoryID   *uuid.UUID      `gorm:"type:uuid;index"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReorderLevel int64           `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:    m.BaseModel.ToDomain(),
		SoftDeletable: shared.SoftDeletable{DeletedAt: m.DeletedAt},
		SKU:           m.SKU,
		Barcode:       m.Barcode,
		Name:          m.Name,
		CategoryID:    m.CategoryID,
		CostPrice:     m.CostPrice,
		SellingPrice:  m.SellingPrice,
		ReorderLevel:  m.ReorderLevel,
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{
		SKU:          p.SKU,
		Barcode:      p.Barcode,
		Name:         p.Name,
		CategoryID:   p.CategoryID,
		CostPrice:    p.CostPrice,
		SellingPrice: p.SellingPrice,
		ReorderLevel: p.ReorderLevel,
	}
	m.FromDomainMasterData(p.BaseEntity, p.SoftDeletable)
	return m
}

// WarehouseModel is the persistence model for partner.Warehouse
type WarehouseModel struct {
	MasterDataModel
	Code     string `gorm:"type:varchar(50);not null;index"`
	Name     string `gorm:"type:varchar(200);not null"`
	Location string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (WarehouseModel) TableName() string {
	return "warehouses"
}

// ToDomain converts the persistence model to a domain Warehouse
func (m *WarehouseModel) ToDomain() *partner.Warehouse {
	return &partner.Warehouse{
		BaseEntity:    m.BaseModel.ToDomain(),
		SoftDeletable: shared.SoftDeletable{DeletedAt: m.DeletedAt},
		Code:          m.Code,
		Name:          m.Name,
		Location:      m.Location,
	}
}

// WarehouseModelFromDomain creates a persistence model from a domain Warehouse
func WarehouseModelFromDomain(w *partner.Warehouse) *WarehouseModel {
	m := &WarehouseModel{Code: w.Code, Name: w.Name, Location: w.Location}
	m.FromDomainMasterData(w.BaseEntity, w.SoftDeletable)
	return m
}

// PartyModel is the persistence model for partner.Party
type PartyModel struct {
	MasterDataModel
	Name        string          `gorm:"type:varchar(200);not null"`
	Type        string          `gorm:"type:varchar(20);not null"`
	BalanceType string          `gorm:"type:varchar(10);not null;default:'DEBIT'"`
	CreditLimit decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (PartyModel) TableName() string {
	return "parties"
}

// ToDomain converts the persistence model to a domain Party
func (m *PartyModel) ToDomain() *partner.Party {
	return &partner.Party{
		BaseEntity:    m.BaseModel.ToDomain(),
		SoftDeletable: shared.SoftDeletable{DeletedAt: m.DeletedAt},
		Name:          m.Name,
		Type:          partner.PartyType(m.Type),
		BalanceType:   partner.BalanceType(m.BalanceType),
		CreditLimit:   m.CreditLimit,
	}
}

// PartyModelFromDomain creates a persistence model from a domain Party
func PartyModelFromDomain(p *partner.Party) *PartyModel {
	m := &PartyModel{
		Name:        p.Name,
		Type:        string(p.Type),
		BalanceType: string(p.BalanceType),
		CreditLimit: p.CreditLimit,
	}
	m.FromDomainMasterData(p.BaseEntity, p.SoftDeletable)
	return m
}

// AccountModel is the persistence model for finance.Account
type AccountModel struct {
	MasterDataModel
	Code string `gorm:"type:varchar(50);not null;index"`
	Name string `gorm:"type:varchar(200);not null"`
	Type string `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *finance.Account {
	return &finance.Account{
		BaseEntity:    m.BaseModel.ToDomain(),
		SoftDeletable: shared.SoftDeletable{DeletedAt: m.DeletedAt},
		Code:          m.Code,
		Name:          m.Name,
		Type:          finance.AccountType(m.Type),
	}
}

// AccountModelFromDomain creates a persistence model from a domain Account
func AccountModelFromDomain(a *finance.Account) *AccountModel {
	m := &AccountModel{Code: a.Code, Name: a.Name, Type: string(a.Type)}
	m.FromDomainMasterData(a.BaseEntity, a.SoftDeletable)
	return m
}

// AllMasterDataModels lists every master-data model
func AllMasterDataModels() []any {
	return []any{
		&ProductModel{},
		&WarehouseModel{},
		&PartyModel{},
		&AccountModel{},
	}
}
