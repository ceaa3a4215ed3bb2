package cache

import (
	"context"
	"testing"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinationFactory_RedisDisabledUsesInMemory(t *testing.T) {
	f := NewCoordinationFactory(config.RedisConfig{Enabled: false})

	c, err := f.Create(context.Background())
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.Distributed)
	assert.IsType(t, &InMemoryKeyLocker{}, c.Locker)
	assert.IsType(t, &InMemoryIdempotencyStore{}, c.Idempotency)
}

func TestCoordinationFactory_UnreachableRedis(t *testing.T) {
	unreachable := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	t.Run("falls back when allowed", func(t *testing.T) {
		c, err := NewCoordinationFactory(unreachable).Create(context.Background())
		require.NoError(t, err)
		defer c.Close()
		assert.False(t, c.Distributed)
	})

	t.Run("fails when fallback is disabled", func(t *testing.T) {
		_, err := NewCoordinationFactory(unreachable, WithInMemoryFallback(false)).Create(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Redis required")
	})
}
