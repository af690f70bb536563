package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...IdempotencyOption) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyStore(client, opts...), mr
}

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	stored, err := store.Begin(ctx, "k1", "fp")
	require.NoError(t, err)
	assert.Nil(t, stored, "first caller owns the key")

	_, err = store.Begin(ctx, "k1", "fp")
	assert.ErrorIs(t, err, ErrRequestInFlight)

	require.NoError(t, store.Complete(ctx, "k1", StoredResponse{
		Status:      200,
		ContentType: "application/json",
		Body:        []byte(`{"cancellation":{"id":"c1"}}`),
		Fingerprint: "fp",
	}))

	stored, err = store.Begin(ctx, "k1", "fp")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 200, stored.Status)
	assert.JSONEq(t, `{"cancellation":{"id":"c1"}}`, string(stored.Body))
}

func TestIdempotencyStore_AbortReleasesKey(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Begin(ctx, "k2", "fp")
	require.NoError(t, err)
	require.NoError(t, store.Abort(ctx, "k2"))

	stored, err := store.Begin(ctx, "k2", "fp")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestIdempotencyStore_TTL(t *testing.T) {
	store, mr := newTestStore(t, WithIdempotencyTTL(time.Second), WithIdempotencyPrefix("test:"))
	ctx := context.Background()

	_, err := store.Begin(ctx, "k3", "fp")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:k3"))

	mr.FastForward(2 * time.Second)
	assert.False(t, mr.Exists("test:k3"))

	stored, err := store.Begin(ctx, "k3", "fp")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestIdempotencyStore_KeyReuseWithDifferentBody(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first := Fingerprint("PATCH", "/cancellations", []byte(`{"feedback":"a"}`))
	second := Fingerprint("PATCH", "/cancellations", []byte(`{"feedback":"b"}`))
	assert.NotEqual(t, first, second)
	assert.Equal(t, first, Fingerprint("PATCH", "/cancellations", []byte(`{"feedback":"a"}`)))

	_, err := store.Begin(ctx, "k4", first)
	require.NoError(t, err)
	_, err = store.Begin(ctx, "k4", second)
	assert.ErrorIs(t, err, ErrKeyReused)

	require.NoError(t, store.Complete(ctx, "k4", StoredResponse{Status: 200, Fingerprint: first}))
	_, err = store.Begin(ctx, "k4", second)
	assert.ErrorIs(t, err, ErrKeyReused)
}
