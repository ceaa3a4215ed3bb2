package cache

import (
	"context"
	"fmt"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Coordination bundles the key locker and idempotency store the coordinator
// runs on. Both are Redis-backed when Redis is enabled and reachable.
type Coordination struct {
	Locker      appledger.KeyLocker
	Idempotency shared.IdempotencyStore
	Distributed bool

	client *redis.Client
}

// Client returns the Redis connection, or nil for in-memory coordination
func (c *Coordination) Client() *redis.Client {
	return c.client
}

// Ping checks the Redis connection. In-memory coordination is always healthy.
func (c *Coordination) Ping(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the idempotency sweep and the Redis connection, if any
func (c *Coordination) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if closer, ok := c.Idempotency.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// CoordinationFactory creates lockers and idempotency stores from configuration
type CoordinationFactory struct {
	redisConfig           config.RedisConfig
	lockTTL               time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// CoordinationFactoryOption is a functional option for configuring the factory
type CoordinationFactoryOption func(*CoordinationFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) CoordinationFactoryOption {
	return func(f *CoordinationFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-process coordination
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) CoordinationFactoryOption {
	return func(f *CoordinationFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithDistributedLockTTL sets the TTL of Redis locks
func WithDistributedLockTTL(ttl time.Duration) CoordinationFactoryOption {
	return func(f *CoordinationFactory) {
		f.lockTTL = ttl
	}
}

// NewCoordinationFactory creates a new factory
func NewCoordinationFactory(cfg config.RedisConfig, opts ...CoordinationFactoryOption) *CoordinationFactory {
	f := &CoordinationFactory{
		redisConfig:           cfg,
		lockTTL:               defaultLockTTL,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedis connects to Redis and builds the distributed locker and store
func (f *CoordinationFactory) CreateRedis(ctx context.Context) (*Coordination, error) {
	client, err := NewRedisClient(ctx, RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis coordination: %w", err)
	}
	return &Coordination{
		Locker: NewRedisKeyLocker(client,
			WithLockTTL(f.lockTTL),
			WithLockLogger(f.logger),
		),
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Distributed: true,
		client:      client,
	}, nil
}

// CreateInMemory builds process-local coordination.
// WARNING: locks and request keys are not shared between instances, so only
// one instance may write to a given store.
func (f *CoordinationFactory) CreateInMemory() *Coordination {
	return &Coordination{
		Locker:      NewInMemoryKeyLocker(),
		Idempotency: NewInMemoryIdempotencyStore(),
	}
}

// Create uses Redis when enabled, falling back to in-memory coordination if
// Redis is unreachable and fallback is allowed
func (f *CoordinationFactory) Create(ctx context.Context) (*Coordination, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory coordination")
		return f.CreateInMemory(), nil
	}

	c, err := f.CreateRedis(ctx)
	if err == nil {
		f.logger.Info("using Redis coordination",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port),
		)
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for coordination but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory coordination. "+
		"Concurrent instances will not see each other's locks.",
		zap.Error(err),
	)
	return f.CreateInMemory(), nil
}
