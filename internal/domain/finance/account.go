package finance

import (
	"context"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountType classifies a financial account
type AccountType string

const (
	AccountTypeCash    AccountType = "CASH"
	AccountTypeBank    AccountType = "BANK"
	AccountTypeExpense AccountType = "EXPENSE"
	AccountTypeOther   AccountType = "OTHER"
)

// IsValid checks if the account type is valid
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeCash, AccountTypeBank, AccountTypeExpense, AccountTypeOther:
		return true
	}
	return false
}

// Account is a financial account. Its balance is held by the balance store
// and may go negative (overdraft).
type Account struct {
	shared.BaseEntity
	shared.SoftDeletable
	Code string
	Name string
	Type AccountType
}

// NewAccount creates a new account
func NewAccount(code, name string, accountType AccountType) (*Account, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewValidationError("account code cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("account name cannot be empty")
	}
	if !accountType.IsValid() {
		return nil, shared.NewValidationError("invalid account type %q", accountType)
	}
	return &Account{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       name,
		Type:       accountType,
	}, nil
}

// AccountReader looks accounts up by identity
type AccountReader interface {
	// FindAccount returns the account including soft-deleted ones, or shared.ErrNotFound
	FindAccount(ctx context.Context, id uuid.UUID) (*Account, error)
}

// AccountRepository persists accounts
type AccountRepository interface {
	AccountReader
	SaveAccount(ctx context.Context, account *Account) error
}
