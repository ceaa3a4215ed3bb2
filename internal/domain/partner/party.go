package partner

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PartyType classifies a trading party
type PartyType string

const (
	PartyTypeSupplier PartyType = "SUPPLIER"
	PartyTypeCustomer PartyType = "CUSTOMER"
	PartyTypeBoth     PartyType = "BOTH"
)

// IsValid checks if the party type is valid
func (t PartyType) IsValid() bool {
	switch t {
	case PartyTypeSupplier, PartyTypeCustomer, PartyTypeBoth:
		return true
	}
	return false
}

// BalanceType tells which sign of the party balance counts as exposure
type BalanceType string

const (
	// BalanceTypeDebit parties owe us when their balance is positive
	BalanceTypeDebit BalanceType = "DEBIT"
	// BalanceTypeCredit parties are owed by us when their balance is negative
	BalanceTypeCredit BalanceType = "CREDIT"
)

// IsValid checks if the balance type is valid
func (t BalanceType) IsValid() bool {
	return t == BalanceTypeDebit || t == BalanceTypeCredit
}

// Party is a customer and/or supplier. Its running balance lives in the
// balance store and is changed only by committed ledger movements.
type Party struct {
	shared.BaseEntity
	shared.SoftDeletable
	Name        string
	Type        PartyType
	BalanceType BalanceType
	CreditLimit decimal.Decimal
}

// NewParty creates a new trading party
func NewParty(name string, partyType PartyType, balanceType BalanceType) (*Party, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("party name cannot be empty")
	}
	if !partyType.IsValid() {
		return nil, shared.NewValidationError("invalid party type %q", partyType)
	}
	if balanceType == "" {
		balanceType = BalanceTypeDebit
	}
	if !balanceType.IsValid() {
		return nil, shared.NewValidationError("invalid balance type %q", balanceType)
	}

	return &Party{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        name,
		Type:        partyType,
		BalanceType: balanceType,
		CreditLimit: decimal.Zero,
	}, nil
}

// SetCreditLimit sets the credit limit. Zero disables the check.
func (p *Party) SetCreditLimit(limit decimal.Decimal) error {
	if limit.IsNegative() {
		return shared.NewValidationError("credit limit cannot be negative")
	}
	p.CreditLimit = limit
	return nil
}

// Exposure converts a signed balance into the amount at risk for this party
func (p *Party) Exposure(balance decimal.Decimal) decimal.Decimal {
	if p.BalanceType == BalanceTypeCredit {
		return balance.Neg()
	}
	return balance
}

// ExceedsCreditLimit reports whether balance would breach the credit limit
func (p *Party) ExceedsCreditLimit(balance decimal.Decimal) bool {
	if !p.CreditLimit.IsPositive() {
		return false
	}
	return p.Exposure(balance).GreaterThan(p.CreditLimit)
}
