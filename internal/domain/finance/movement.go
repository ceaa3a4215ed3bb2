package finance

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementKind tags the concrete Movement variant
type MovementKind string

const (
	MovementKindExpense         MovementKind = "EXPENSE"
	MovementKindPaymentMade     MovementKind = "PAYMENT_MADE"
	MovementKindPaymentReceived MovementKind = "PAYMENT_RECEIVED"
)

// Movement is a money movement that produces exactly one balance mutation.
// The set of implementations is closed: Expense and Payment.
type Movement interface {
	// Kind returns the variant tag, which is also the journal entry type
	Kind() MovementKind
	// MovementID returns the movement identity
	MovementID() uuid.UUID
	// Target returns the account or party whose balance changes
	Target() (accountID, partyID *uuid.UUID)
	// SignedAmount returns the balance delta: negative for outflows
	SignedAmount() decimal.Decimal
	// Reference returns the caller's reference text
	Reference() string
	// Validate checks the movement shape
	Validate() error

	isMovement()
}

// validateAmountAndTarget checks the rules shared by every movement
func validateAmountAndTarget(amount decimal.Decimal, accountID, partyID *uuid.UUID) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("amount must be positive")
	}
	hasAccount := accountID != nil && *accountID != uuid.Nil
	hasParty := partyID != nil && *partyID != uuid.Nil
	if hasAccount == hasParty {
		return shared.NewValidationError("exactly one of account_id or party_id is required")
	}
	return nil
}

// Expense is money spent from an account or charged against a party
type Expense struct {
	ID        uuid.UUID
	Amount    decimal.Decimal
	AccountID *uuid.UUID
	PartyID   *uuid.UUID
	Category  string
	Date      time.Time
	Ref       string
}

// NewExpense creates an expense with a generated ID
func NewExpense(amount decimal.Decimal, accountID, partyID *uuid.UUID, category, reference string) *Expense {
	return &Expense{
		ID:        uuid.New(),
		Amount:    amount,
		AccountID: accountID,
		PartyID:   partyID,
		Category:  category,
		Date:      time.Now(),
		Ref:       reference,
	}
}

func (e *Expense) isMovement() {}

// Kind implements Movement
func (e *Expense) Kind() MovementKind { return MovementKindExpense }

// MovementID implements Movement
func (e *Expense) MovementID() uuid.UUID { return e.ID }

// Target implements Movement
func (e *Expense) Target() (*uuid.UUID, *uuid.UUID) { return e.AccountID, e.PartyID }

// SignedAmount implements Movement. Expenses always decrement.
func (e *Expense) SignedAmount() decimal.Decimal { return e.Amount.Neg() }

// Reference implements Movement
func (e *Expense) Reference() string { return e.Ref }

// Validate implements Movement
func (e *Expense) Validate() error {
	return validateAmountAndTarget(e.Amount, e.AccountID, e.PartyID)
}

// PaymentDirection tells whether money left or arrived
type PaymentDirection string

const (
	PaymentMade     PaymentDirection = "PAYMENT_MADE"
	PaymentReceived PaymentDirection = "PAYMENT_RECEIVED"
)

// Payment is a payment made or received
type Payment struct {
	ID        uuid.UUID
	Direction PaymentDirection
	Amount    decimal.Decimal
	AccountID *uuid.UUID
	PartyID   *uuid.UUID
	Date      time.Time
	Ref       string
}

// NewPayment creates a payment with a generated ID
func NewPayment(direction PaymentDirection, amount decimal.Decimal, accountID, partyID *uuid.UUID, reference string) *Payment {
	return &Payment{
		ID:        uuid.New(),
		Direction: direction,
		Amount:    amount,
		AccountID: accountID,
		PartyID:   partyID,
		Date:      time.Now(),
		Ref:       reference,
	}
}

func (p *Payment) isMovement() {}

// Kind implements Movement
func (p *Payment) Kind() MovementKind {
	if p.Direction == PaymentReceived {
		return MovementKindPaymentReceived
	}
	return MovementKindPaymentMade
}

// MovementID implements Movement
func (p *Payment) MovementID() uuid.UUID { return p.ID }

// Target implements Movement
func (p *Payment) Target() (*uuid.UUID, *uuid.UUID) { return p.AccountID, p.PartyID }

// SignedAmount implements Movement
func (p *Payment) SignedAmount() decimal.Decimal {
	if p.Direction == PaymentReceived {
		return p.Amount
	}
	return p.Amount.Neg()
}

// Reference implements Movement
func (p *Payment) Reference() string { return p.Ref }

// Validate implements Movement
func (p *Payment) Validate() error {
	switch p.Direction {
	case PaymentMade, PaymentReceived:
	default:
		return shared.NewValidationError("unknown payment direction %q", p.Direction)
	}
	return validateAmountAndTarget(p.Amount, p.AccountID, p.PartyID)
}
