package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
)

// DefaultCleanupInterval is how often expired request keys are swept
const DefaultCleanupInterval = 5 * time.Minute

// InMemoryIdempotencyStore remembers request keys in a process-local map.
// It is suitable for single-instance deployments and tests.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	expiries  map[string]time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a new in-memory idempotency store and
// starts a background sweep of expired keys
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return NewInMemoryIdempotencyStoreWithInterval(DefaultCleanupInterval)
}

// NewInMemoryIdempotencyStoreWithInterval creates a store with a custom sweep interval
func NewInMemoryIdempotencyStoreWithInterval(interval time.Duration) *InMemoryIdempotencyStore {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	store := &InMemoryIdempotencyStore{
		expiries: make(map[string]time.Time),
		stopChan: make(chan struct{}),
	}
	store.wg.Add(1)
	go store.cleanupLoop(interval)
	return store
}

// MarkProcessed records key until ttl elapses.
// Returns true if the key was newly recorded, false if it was still live.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiresAt, ok := s.expiries[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.expiries[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether key is recorded and not expired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiresAt, ok := s.expiries[key]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expiresAt), nil
}

// Close stops the sweep goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, expiresAt := range s.expiries {
		if !now.Before(expiresAt) {
			delete(s.expiries, key)
		}
	}
}

// Size returns the number of recorded keys, expired ones included until swept
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expiries)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
