package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockPrefix = "ledger:lock:"
	defaultLockTTL    = 30 * time.Second
	lockRetryMin      = 5 * time.Millisecond
	lockRetryMax      = 100 * time.Millisecond
)

// releaseScript deletes the lock only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisKeyLocker serializes work per key across instances. Each key is a
// Redis string set with NX and a TTL; the value is a per-acquisition token
// so a holder never deletes a lock it no longer owns.
type RedisKeyLocker struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// RedisKeyLockerOption configures a RedisKeyLocker
type RedisKeyLockerOption func(*RedisKeyLocker)

// WithLockTTL sets how long a lock survives a crashed holder
func WithLockTTL(ttl time.Duration) RedisKeyLockerOption {
	return func(l *RedisKeyLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithLockPrefix sets the Redis key namespace
func WithLockPrefix(prefix string) RedisKeyLockerOption {
	return func(l *RedisKeyLocker) {
		if prefix != "" {
			l.keyPrefix = prefix
		}
	}
}

// WithLockLogger sets the logger
func WithLockLogger(logger *zap.Logger) RedisKeyLockerOption {
	return func(l *RedisKeyLocker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRedisKeyLocker creates a new RedisKeyLocker
func NewRedisKeyLocker(client redis.UniversalClient, opts ...RedisKeyLockerOption) *RedisKeyLocker {
	l := &RedisKeyLocker{
		client:    client,
		keyPrefix: defaultLockPrefix,
		ttl:       defaultLockTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire takes every key in sorted order, polling with backoff until
// timeout elapses, then fails with CONCURRENCY_CONFLICT
func (l *RedisKeyLocker) Acquire(ctx context.Context, keys []string, timeout time.Duration) (func(), error) {
	keys = appledger.SortedKeys(keys)
	token, err := newLockToken()
	if err != nil {
		return nil, err
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	held := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := l.acquireOne(ctx, key, token, deadline, timeout); err != nil {
			l.release(held, token)
			return nil, err
		}
		held = append(held, key)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		l.release(held, token)
	}, nil
}

func (l *RedisKeyLocker) acquireOne(ctx context.Context, key, token string, deadline time.Time, timeout time.Duration) error {
	backoff := lockRetryMin
	for {
		ok, err := l.client.SetNX(ctx, l.keyPrefix+key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return nil
		}

		wait := backoff
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return shared.NewDomainError(shared.CodeConcurrencyConflict,
					fmt.Sprintf("timed out after %s waiting for lock %s", timeout, key))
			}
			wait = min(wait, remaining)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, lockRetryMax)
	}
}

func (l *RedisKeyLocker) release(keys []string, token string) {
	// detached from the caller's context, which may already be done
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(keys) - 1; i >= 0; i-- {
		err := releaseScript.Run(ctx, l.client, []string{l.keyPrefix + keys[i]}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("failed to release lock; it will expire by TTL",
				zap.String("key", keys[i]),
				zap.Error(err),
			)
		}
	}
}

func newLockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

var _ appledger.KeyLocker = (*RedisKeyLocker)(nil)
