package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryKeyLocker_SerializesSameKey(t *testing.T) {
	locker := NewInMemoryKeyLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, []string{"stock:p:w"}, time.Second)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := locker.Acquire(ctx, []string{"stock:p:w"}, time.Second)
		if err == nil {
			close(acquired)
			r()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(30 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the released key")
	}
}

func TestInMemoryKeyLocker_DisjointKeysDoNotBlock(t *testing.T) {
	locker := NewInMemoryKeyLocker()
	ctx := context.Background()

	r1, err := locker.Acquire(ctx, []string{"stock:a:w"}, 50*time.Millisecond)
	require.NoError(t, err)
	defer r1()

	r2, err := locker.Acquire(ctx, []string{"stock:b:w"}, 50*time.Millisecond)
	require.NoError(t, err)
	r2()
}

func TestInMemoryKeyLocker_TimeoutIsConcurrencyConflict(t *testing.T) {
	locker := NewInMemoryKeyLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, []string{"account:1"}, time.Second)
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(ctx, []string{"account:0", "account:1"}, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, shared.IsRetryable(err))

	// the partially acquired account:0 must have been released
	r, err := locker.Acquire(ctx, []string{"account:0"}, 20*time.Millisecond)
	require.NoError(t, err)
	r()
}

func TestInMemoryKeyLocker_CancelledContextReturnsContextError(t *testing.T) {
	locker := NewInMemoryKeyLocker()

	release, err := locker.Acquire(context.Background(), []string{"tx:1"}, 0)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Acquire(ctx, []string{"tx:1"}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryKeyLocker_OppositeOrderDoesNotDeadlock(t *testing.T) {
	locker := NewInMemoryKeyLocker()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := range 200 {
		keys := []string{"stock:x:w", "stock:y:w"}
		if i%2 == 1 {
			keys = []string{"stock:y:w", "stock:x:w"}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, keys, 5*time.Second)
			if err != nil {
				errs <- err
				return
			}
			release()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected acquire error: %v", err)
	}
	assert.Equal(t, 0, locker.Len())
}

func TestInMemoryKeyLocker_ReleaseIsIdempotent(t *testing.T) {
	locker := NewInMemoryKeyLocker()

	release, err := locker.Acquire(context.Background(), []string{"party:1", "party:1"}, time.Second)
	require.NoError(t, err)
	release()
	release()

	assert.Equal(t, 0, locker.Len())
}
