package masterdata

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timeoutRecorder grants every lock and remembers the wait it was given
type timeoutRecorder struct {
	keys    []string
	timeout time.Duration
}

func (r *timeoutRecorder) Acquire(_ context.Context, keys []string, timeout time.Duration) (func(), error) {
	r.keys = keys
	r.timeout = timeout
	return func() {}, nil
}

func newTestService(locker *timeoutRecorder) *Service {
	store := memory.NewStore(memory.ReadModeCache)
	return NewService(store, store, store, store, locker, nil)
}

func TestService_CreateProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("locks SKU and barcode", func(t *testing.T) {
		locker := &timeoutRecorder{}
		svc := newTestService(locker)

		p, err := svc.CreateProduct(ctx, CreateProductInput{SKU: "abc-1", Barcode: "123", Name: "Bolt"})
		require.NoError(t, err)
		assert.Equal(t, "ABC-1", p.SKU)
		assert.Equal(t, []string{"barcode:123", "sku:ABC-1"}, locker.keys)
	})

	t.Run("duplicate SKU", func(t *testing.T) {
		svc := newTestService(&timeoutRecorder{})
		_, err := svc.CreateProduct(ctx, CreateProductInput{SKU: "DUP", Name: "One"})
		require.NoError(t, err)

		_, err = svc.CreateProduct(ctx, CreateProductInput{SKU: "dup", Name: "Two"})
		assert.Equal(t, shared.CodeAlreadyExists, shared.ErrorCode(err))
	})
}

func TestService_LockTimeout(t *testing.T) {
	ctx := context.Background()
	locker := &timeoutRecorder{}
	svc := newTestService(locker)

	_, err := svc.CreateProduct(ctx, CreateProductInput{SKU: "A", Name: "Default"})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, locker.timeout)

	svc.SetLockTimeout(250 * time.Millisecond)
	_, err = svc.CreateProduct(ctx, CreateProductInput{SKU: "B", Name: "Configured"})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, locker.timeout)

	svc.SetLockTimeout(0)
	_, err = svc.CreateProduct(ctx, CreateProductInput{SKU: "C", Name: "Ignored"})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, locker.timeout, "non-positive values keep the current timeout")
}
