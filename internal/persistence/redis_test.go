package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/migratemate/cancellation-flow/internal/config"
)

func TestRedis_IdempotencyStoreUsesConfiguredTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	r := NewRedis(context.Background(), config.RedisConfig{Addr: mr.Addr(), IdempotencyTTLSecs: 30}, zap.NewNop())
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Ping(context.Background()))

	_, err = r.IdempotencyStore().Begin(context.Background(), "k", "fp")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mr.TTL("cancellation:idem:k"))
}

func TestRedis_UnreachableIsNotFatal(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	core, logs := observer.New(zap.WarnLevel)
	r := NewRedis(context.Background(), config.RedisConfig{Addr: addr}, zap.New(core))
	t.Cleanup(func() { _ = r.Close() })

	assert.Error(t, r.Ping(context.Background()))
	assert.Equal(t, 1, logs.FilterMessageSnippet("without replay protection").Len())
}

func TestRedis_NilIsNotConfigured(t *testing.T) {
	var r *Redis
	assert.Error(t, r.Ping(context.Background()))
	assert.NoError(t, r.Close())
}
