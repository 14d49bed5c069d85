package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryIdempotencyStoreRoundTrip(t *testing.T) {
	store := NewMemoryIdempotencyStore()
	ctx := context.Background()

	_, ok := store.Get(ctx, "user-1", "key-1")
	require.False(t, ok)

	store.Set(ctx, "user-1", "key-1", []byte(`{"allowed":true}`))

	cached, ok := store.Get(ctx, "user-1", "key-1")
	require.True(t, ok)
	require.JSONEq(t, `{"allowed":true}`, string(cached))

	// Keys are scoped per user.
	_, ok = store.Get(ctx, "user-2", "key-1")
	require.False(t, ok)
}

func TestMemoryIdempotencyStoreExpiry(t *testing.T) {
	store := NewMemoryIdempotencyStore()
	ctx := context.Background()

	store.Set(ctx, "user-1", "key-1", []byte("cached"))
	store.entries[idemKey("user-1", "key-1")] = memoryEntry{
		response:  []byte("cached"),
		expiresAt: time.Now().Add(-time.Second),
	}

	_, ok := store.Get(ctx, "user-1", "key-1")
	require.False(t, ok)
}

func TestNewIdempotencyStoreDefaultsToMemory(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	store := NewIdempotencyStore()
	_, isMemory := store.(*MemoryIdempotencyStore)
	require.True(t, isMemory)
}
