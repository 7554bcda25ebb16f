package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, ":memory:", 0)
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get(ctx, "ratelimit:alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "ratelimit:alice", `{"failureCount":1}`))
	require.NoError(t, store.Set(ctx, "ratelimit:alice", `{"failureCount":2}`))

	value, ok, err := store.Get(ctx, "ratelimit:alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"failureCount":2}`, value, "second write should win")

	require.NoError(t, store.Remove(ctx, "ratelimit:alice"))
	_, ok, err = store.Get(ctx, "ratelimit:alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_ExpiryAndSweep(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, ":memory:", time.Hour)
	require.NoError(t, err)
	defer store.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "old", "1"))
	now = now.Add(30 * time.Minute)
	require.NoError(t, store.Set(ctx, "new", "2"))
	now = now.Add(45 * time.Minute)

	_, ok, err := store.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, ok, err = store.Get(ctx, "new")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteStore_SetRetainedSurvivesSweep(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, ":memory:", time.Hour)
	require.NoError(t, err)
	defer store.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.SetRetained(ctx, "locked", "1", now.Add(24*time.Hour)))
	now = now.Add(2 * time.Hour)

	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	_, ok, err := store.Get(ctx, "locked")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "attempts.db")

	store, err := NewSQLiteStore(ctx, path, 0)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "ratelimit:carol", "{}"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(ctx, path, 0)
	require.NoError(t, err)
	defer reopened.Close()

	_, ok, err := reopened.Get(ctx, "ratelimit:carol")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, reopened.Ping(ctx))
}
