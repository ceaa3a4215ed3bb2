package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared"
)

// InMemoryKeyLocker serializes work per key inside one process. Each key
// is a one-slot channel; a holder owns the slot until it releases.
type InMemoryKeyLocker struct {
	mu    sync.Mutex
	slots map[string]*keySlot
}

type keySlot struct {
	ch   chan struct{}
	refs int
}

// NewInMemoryKeyLocker creates a new InMemoryKeyLocker
func NewInMemoryKeyLocker() *InMemoryKeyLocker {
	return &InMemoryKeyLocker{slots: make(map[string]*keySlot)}
}

// Acquire takes every key in sorted order, waiting at most timeout in total.
// On timeout every key taken so far is released and the error carries
// CONCURRENCY_CONFLICT. A zero timeout waits until ctx is done.
func (l *InMemoryKeyLocker) Acquire(ctx context.Context, keys []string, timeout time.Duration) (func(), error) {
	keys = appledger.SortedKeys(keys)

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	held := make([]string, 0, len(keys))
	for _, key := range keys {
		slot := l.ref(key)
		select {
		case slot.ch <- struct{}{}:
			held = append(held, key)
		case <-waitCtx.Done():
			l.unref(key)
			l.release(held)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, shared.NewDomainError(shared.CodeConcurrencyConflict,
				fmt.Sprintf("timed out after %s waiting for lock %s", timeout, key))
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(held) })
	}, nil
}

func (l *InMemoryKeyLocker) release(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		slot := l.slots[keys[i]]
		l.mu.Unlock()
		<-slot.ch
		l.unref(keys[i])
	}
}

func (l *InMemoryKeyLocker) ref(key string) *keySlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &keySlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *InMemoryKeyLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot := l.slots[key]
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

// Len returns the number of keys currently held or awaited
func (l *InMemoryKeyLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

var _ appledger.KeyLocker = (*InMemoryKeyLocker)(nil)
