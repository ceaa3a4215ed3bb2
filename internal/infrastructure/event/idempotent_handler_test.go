package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{ shared.IdempotencyStore }

func (failingStore) MarkProcessed(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func TestIdempotentHandler_SkipsDuplicates(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	inner := &recordingHandler{}
	h := NewIdempotentHandler(inner, store, shared.DefaultIdempotencyConfig(), nil)
	event := stockChanged(1, 1)

	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), stockChanged(1, 2)))

	assert.Equal(t, 2, inner.count())
	assert.Equal(t, IdempotencyStats{EventsProcessed: 2, EventsDuplicate: 1}, h.Stats())
}

func TestIdempotentHandler_StoreFailureStillProcesses(t *testing.T) {
	inner := &recordingHandler{}
	h := NewIdempotentHandler(inner, failingStore{}, shared.DefaultIdempotencyConfig(), nil)

	require.NoError(t, h.Handle(context.Background(), stockChanged(1, 1)))
	assert.Equal(t, 1, inner.count())
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	inner := &recordingHandler{err: errors.New("nope")}
	h := NewIdempotentHandler(inner, store, shared.IdempotencyConfig{Enabled: false}, nil)
	event := stockChanged(1, 1)

	assert.Error(t, h.Handle(context.Background(), event))
	assert.Error(t, h.Handle(context.Background(), event))
	assert.Equal(t, 2, inner.count())
	assert.Zero(t, h.Stats().EventsFailed)
}

func TestIdempotentHandler_PerInstanceStoresEachHandle(t *testing.T) {
	event := stockChanged(1, 1)
	var handlers []*recordingHandler
	for range 2 {
		store := cache.NewInMemoryIdempotencyStore()
		t.Cleanup(func() { _ = store.Close() })

		inner := &recordingHandler{}
		handlers = append(handlers, inner)
		h := NewIdempotentHandler(inner, store, shared.DefaultIdempotencyConfig(), nil)

		require.NoError(t, h.Handle(context.Background(), event))
		require.NoError(t, h.Handle(context.Background(), event))
	}

	for _, inner := range handlers {
		assert.Equal(t, 1, inner.count(), "each instance handles a broadcast once")
	}
}
