package ledger

import (
	"math"
	"strings"
	"testing"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func TestTransactionRequest_ValidateItems(t *testing.T) {
	productID := uuid.New()

	tests := []struct {
		name    string
		items   []Item
		wantErr bool
	}{
		{"valid", []Item{{ProductID: productID, Quantity: 1}}, false},
		{"empty", nil, true},
		{"zero quantity", []Item{{ProductID: productID, Quantity: 0}}, true},
		{"negative quantity", []Item{{ProductID: productID, Quantity: -2}}, true},
		{"missing product", []Item{{Quantity: 1}}, true},
		{"negative price", []Item{{ProductID: productID, Quantity: 1, Price: decimal.NewFromInt(-1)}}, true},
		{"max quantity", []Item{{ProductID: productID, Quantity: math.MaxInt64}}, false},
		{"product total overflows", []Item{{ProductID: productID, Quantity: math.MaxInt64}, {ProductID: productID, Quantity: 2}}, true},
		{"large lines on distinct products", []Item{{ProductID: productID, Quantity: math.MaxInt64}, {ProductID: uuid.New(), Quantity: math.MaxInt64}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TransactionRequest{Type: TransactionTypeIn, Items: tt.items}.ValidateItems()
			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransactionRequest_ValidateWarehouses(t *testing.T) {
	w1, w2 := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		typ     TransactionType
		from    *uuid.UUID
		to      *uuid.UUID
		wantErr bool
	}{
		{"in ok", TransactionTypeIn, nil, &w1, false},
		{"in with from", TransactionTypeIn, &w2, &w1, true},
		{"in without to", TransactionTypeIn, nil, nil, true},
		{"out ok", TransactionTypeOut, &w1, nil, false},
		{"out with to", TransactionTypeOut, &w1, &w2, true},
		{"transfer ok", TransactionTypeTransfer, &w1, &w2, false},
		{"transfer same warehouse", TransactionTypeTransfer, &w1, idPtr(w1), true},
		{"transfer missing to", TransactionTypeTransfer, &w1, nil, true},
		{"nil uuid is absent", TransactionTypeOut, &w1, idPtr(uuid.Nil), false},
		{"unknown type", "ADJUST", &w1, &w2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TransactionRequest{Type: tt.typ, FromWarehouseID: tt.from, ToWarehouseID: tt.to}.ValidateWarehouses()
			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransactionRequest_ValidateSettlements(t *testing.T) {
	accountID := uuid.New()

	ok := TransactionRequest{Settlements: []finance.Movement{
		finance.NewPayment(finance.PaymentMade, decimal.NewFromInt(10), &accountID, nil, ""),
	}}
	assert.NoError(t, ok.ValidateSettlements())

	bad := TransactionRequest{Settlements: []finance.Movement{
		finance.NewExpense(decimal.Zero, &accountID, nil, "", ""),
	}}
	assert.ErrorIs(t, bad.ValidateSettlements(), shared.ErrValidation)

	empty := TransactionRequest{Settlements: []finance.Movement{nil}}
	assert.ErrorIs(t, empty.ValidateSettlements(), shared.ErrValidation)
}

func TestTransactionRequest_RequiredOutflows(t *testing.T) {
	p1, p2, w := uuid.New(), uuid.New(), uuid.New()
	items := []Item{
		{ProductID: p1, Quantity: 3},
		{ProductID: p2, Quantity: 1},
		{ProductID: p1, Quantity: 4},
	}

	out := TransactionRequest{Type: TransactionTypeOut, Items: items, FromWarehouseID: &w}.RequiredOutflows()
	assert.Equal(t, map[StockKey]int64{
		{ProductID: p1, WarehouseID: w}: 7,
		{ProductID: p2, WarehouseID: w}: 1,
	}, out)

	assert.Nil(t, TransactionRequest{Type: TransactionTypeIn, Items: items, ToWarehouseID: &w}.RequiredOutflows())

	huge := TransactionRequest{Type: TransactionTypeOut, FromWarehouseID: &w, Items: []Item{
		{ProductID: p1, Quantity: math.MaxInt64},
		{ProductID: p1, Quantity: 2},
	}}.RequiredOutflows()
	assert.Equal(t, int64(math.MaxInt64), huge[StockKey{ProductID: p1, WarehouseID: w}], "sum saturates instead of wrapping")
}

func TestTransactionRequest_ValidateFields(t *testing.T) {
	assert.NoError(t, TransactionRequest{
		Reference:      strings.Repeat("r", MaxReferenceLength),
		IdempotencyKey: strings.Repeat("k", MaxIdempotencyKeyLength),
	}.ValidateFields())

	err := TransactionRequest{Reference: strings.Repeat("r", MaxReferenceLength+1)}.ValidateFields()
	assert.ErrorIs(t, err, shared.ErrValidation)

	err = TransactionRequest{IdempotencyKey: strings.Repeat("k", MaxIdempotencyKeyLength+1)}.ValidateFields()
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestAddQuantity(t *testing.T) {
	key := StockKey{ProductID: uuid.New(), WarehouseID: uuid.New()}

	sum, err := AddQuantity(key, 100, -30)
	require.NoError(t, err)
	assert.Equal(t, int64(70), sum)

	sum, err = AddQuantity(key, 5, -10)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), sum, "negative results are the caller's to reject")

	_, err = AddQuantity(key, 100, math.MaxInt64)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = AddQuantity(key, -2, math.MinInt64)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestTransaction_StockDeltas(t *testing.T) {
	p, w1, w2 := uuid.New(), uuid.New(), uuid.New()
	items := []Item{{ProductID: p, Quantity: 5}}

	t.Run("in", func(t *testing.T) {
		tx := NewTransaction(TransactionRequest{Type: TransactionTypeIn, Items: items, ToWarehouseID: &w1})
		deltas, err := tx.StockDeltas()

		require.NoError(t, err)
		assert.Equal(t, []StockDelta{{Key: StockKey{p, w1}, Delta: 5, Type: EntryTypePurchase}}, deltas)
	})

	t.Run("out", func(t *testing.T) {
		tx := NewTransaction(TransactionRequest{Type: TransactionTypeOut, Items: items, FromWarehouseID: &w1})
		deltas, err := tx.StockDeltas()

		require.NoError(t, err)
		assert.Equal(t, []StockDelta{{Key: StockKey{p, w1}, Delta: -5, Type: EntryTypeSale}}, deltas)
	})

	t.Run("transfer yields two deltas", func(t *testing.T) {
		tx := NewTransaction(TransactionRequest{Type: TransactionTypeTransfer, Items: items, FromWarehouseID: &w1, ToWarehouseID: &w2})
		deltas, err := tx.StockDeltas()

		require.NoError(t, err)
		assert.Equal(t, []StockDelta{
			{Key: StockKey{p, w1}, Delta: -5, Type: EntryTypeTransferOut},
			{Key: StockKey{p, w2}, Delta: 5, Type: EntryTypeTransferIn},
		}, deltas)
	})
}

func TestTransaction_Lifecycle(t *testing.T) {
	w := uuid.New()
	tx := NewTransaction(TransactionRequest{
		Type:          TransactionTypeIn,
		Items:         []Item{{ProductID: uuid.New(), Quantity: 1}},
		ToWarehouseID: &w,
		ActorID:       uuid.New(),
	})
	assert.Equal(t, TransactionStatusPending, tx.Status)

	err := tx.MarkVoided(uuid.New(), nil)
	assert.ErrorIs(t, err, shared.ErrInvalidState, "pending cannot be voided")

	first := uuid.New()
	require.NoError(t, tx.MarkCompleted([]uuid.UUID{first}))
	assert.Equal(t, TransactionStatusCompleted, tx.Status)
	assert.NotNil(t, tx.CompletedAt)
	assert.ErrorIs(t, tx.MarkCompleted(nil), shared.ErrInvalidState)

	voider := uuid.New()
	comp := uuid.New()
	require.NoError(t, tx.MarkVoided(voider, []uuid.UUID{comp}))
	assert.True(t, tx.IsVoided())
	assert.Equal(t, &voider, tx.VoidedBy)
	assert.Equal(t, []uuid.UUID{first, comp}, tx.EntryIDs)

	assert.ErrorIs(t, tx.MarkVoided(voider, nil), shared.ErrAlreadyVoided)
}

func TestNewTransaction_CopiesItems(t *testing.T) {
	items := []Item{{ProductID: uuid.New(), Quantity: 2}}
	tx := NewTransaction(TransactionRequest{Type: TransactionTypeIn, Items: items})

	items[0].Quantity = 99
	assert.EqualValues(t, 2, tx.Items[0].Quantity)
	assert.NotEqual(t, uuid.Nil, tx.ID)
}

func TestMovementHelpers(t *testing.T) {
	accountID, partyID := uuid.New(), uuid.New()

	expense := finance.NewExpense(decimal.NewFromInt(1), &accountID, nil, "", "")
	typ, err := MovementEntryType(expense)
	require.NoError(t, err)
	assert.Equal(t, EntryTypeExpense, typ)
	assert.Equal(t, AccountKey(accountID), MovementKey(expense))

	received := finance.NewPayment(finance.PaymentReceived, decimal.NewFromInt(1), nil, &partyID, "")
	typ, err = MovementEntryType(received)
	require.NoError(t, err)
	assert.Equal(t, EntryTypePaymentReceived, typ)
	assert.Equal(t, PartyKey(partyID), MovementKey(received))
}
