package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedRecord(t *testing.T, store *MockKeyValueStore, identifier string) models.AttemptRecord {
	t.Helper()
	raw, ok, err := store.Get(context.Background(), DefaultKeyPrefix+identifier)
	require.NoError(t, err)
	require.True(t, ok, "no record stored for %s", identifier)

	var rec models.AttemptRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

func TestNewGovernor_RejectsInvalidConfig(t *testing.T) {
	_, err := NewGovernor(nil, models.DefaultRateLimitConfig(), discardLogger())
	assert.ErrorIs(t, err, models.ErrInvalidConfig)

	cfg := models.DefaultRateLimitConfig()
	cfg.MaxAttempts = 0
	_, err = NewGovernor(&MockKeyValueStore{}, cfg, discardLogger())
	assert.ErrorIs(t, err, models.ErrInvalidConfig)

	cfg = models.DefaultRateLimitConfig()
	cfg.LockoutDuration = -time.Second
	_, err = NewGovernor(&MockKeyValueStore{}, cfg, discardLogger())
	assert.ErrorIs(t, err, models.ErrInvalidConfig)
}

func TestGovernor_UnknownIdentifierIsClear(t *testing.T) {
	g := newTestGovernor(&MockKeyValueStore{}, newFakeClock())

	status := g.CheckAllowed(context.Background(), "bob")

	assert.True(t, status.Allowed)
	assert.False(t, status.IsLocked)
	assert.Equal(t, 5, status.AttemptsRemaining)
	assert.Equal(t, 0, status.WaitTimeSeconds)
	assert.Equal(t, models.StateClear, status.State)
}

func TestGovernor_LockoutScenario(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := &MockKeyValueStore{}
	g := newTestGovernor(store, clock)

	for i := 0; i < 4; i++ {
		g.RecordFailedAttempt(ctx, "alice")
	}

	status := g.CheckAllowed(ctx, "alice")
	assert.Equal(t, 1, status.AttemptsRemaining)
	assert.False(t, status.IsLocked)
	assert.False(t, status.Allowed, "fourth failure opens a 16s delay window")
	assert.Equal(t, models.StateDelayed, status.State)
	assert.Equal(t, 16, status.WaitTimeSeconds)

	clock.Advance(16 * time.Second)
	status = g.CheckAllowed(ctx, "alice")
	assert.True(t, status.Allowed)
	assert.Equal(t, models.StateWarning, status.State)

	status = g.RecordFailedAttempt(ctx, "alice")
	assert.True(t, status.IsLocked)
	assert.False(t, status.Allowed)
	assert.Equal(t, 900, status.WaitTimeSeconds)
	assert.Equal(t, 0, status.AttemptsRemaining)
	assert.Equal(t, models.StateLocked, status.State)
	require.NotNil(t, status.LockedUntil)
	assert.Equal(t, clock.Now().Add(15*time.Minute), *status.LockedUntil)

	clock.Advance(10 * time.Minute)
	status = g.CheckAllowed(ctx, "alice")
	assert.True(t, status.IsLocked)
	assert.Equal(t, 300, status.WaitTimeSeconds)
}

func TestGovernor_MonotonicLockout(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := &MockKeyValueStore{}
	g := newTestGovernor(store, clock)

	prev := 0
	for i := 1; i <= 7; i++ {
		g.RecordFailedAttempt(ctx, "carol")
		rec := storedRecord(t, store, "carol")

		assert.GreaterOrEqual(t, rec.FailureCount, prev)
		prev = rec.FailureCount

		if i < 5 {
			assert.Nil(t, rec.LockedUntil, "attempt %d", i)
		} else {
			assert.NotNil(t, rec.LockedUntil, "attempt %d", i)
		}
		clock.Advance(time.Second)
	}
}

func TestGovernor_FailureWhileLockedDoesNotExtend(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := &MockKeyValueStore{}
	g := newTestGovernor(store, clock)

	for i := 0; i < 5; i++ {
		g.RecordFailedAttempt(ctx, "dave")
	}
	lockedUntil := *storedRecord(t, store, "dave").LockedUntil

	clock.Advance(time.Minute)
	g.RecordFailedAttempt(ctx, "dave")

	rec := storedRecord(t, store, "dave")
	assert.Equal(t, 6, rec.FailureCount)
	assert.Equal(t, lockedUntil, *rec.LockedUntil)
}

func TestGovernor_SuccessResets(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := &MockKeyValueStore{}
	g := newTestGovernor(store, clock)

	for i := 0; i < 6; i++ {
		g.RecordFailedAttempt(ctx, "erin")
	}
	require.True(t, g.CheckAllowed(ctx, "erin").IsLocked)

	g.RecordSuccessfulLogin(ctx, "erin")

	status := g.CheckAllowed(ctx, "erin")
	assert.True(t, status.Allowed)
	assert.Equal(t, 0, status.WaitTimeSeconds)
	assert.Equal(t, 5, status.AttemptsRemaining)
	assert.Equal(t, models.StateClear, status.State)

	rec := storedRecord(t, store, "erin")
	assert.True(t, rec.IsClean())
	require.NotNil(t, rec.SuccessAt)
	assert.Equal(t, clock.Now(), *rec.SuccessAt)
}

func TestGovernor_SuccessWithoutHistory(t *testing.T) {
	store := &MockKeyValueStore{}
	g := newTestGovernor(store, newFakeClock())

	g.RecordSuccessfulLogin(context.Background(), "frank")

	rec := storedRecord(t, store, "frank")
	assert.True(t, rec.IsClean())
	assert.True(t, g.CheckAllowed(context.Background(), "frank").Allowed)
}

func TestGovernor_LazyLockoutExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := &MockKeyValueStore{}
	g := newTestGovernor(store, clock)

	for i := 0; i < 5; i++ {
		g.RecordFailedAttempt(ctx, "gina")
	}
	writes := store.SetCalls()

	clock.Advance(15 * time.Minute)

	status := g.CheckAllowed(ctx, "gina")
	assert.True(t, status.Allowed)
	assert.Equal(t, 5, status.AttemptsRemaining)
	assert.Equal(t, models.StateClear, status.State)
	assert.Equal(t, writes, store.SetCalls(), "CheckAllowed must not write")

	g.RecordFailedAttempt(ctx, "gina")
	rec := storedRecord(t, store, "gina")
	assert.Equal(t, 1, rec.FailureCount)
	assert.Nil(t, rec.LockedUntil)
	assert.Equal(t, clock.Now(), *rec.FirstFailureAt)
}

func TestGovernor_StreakReset(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := &MockKeyValueStore{}
	g := newTestGovernor(store, clock)

	g.RecordFailedAttempt(ctx, "hank")
	g.RecordFailedAttempt(ctx, "hank")

	clock.Advance(15*time.Minute - time.Second)
	assert.Equal(t, 3, g.CheckAllowed(ctx, "hank").AttemptsRemaining)

	clock.Advance(time.Second)
	assert.Equal(t, 5, g.CheckAllowed(ctx, "hank").AttemptsRemaining)

	g.RecordFailedAttempt(ctx, "hank")
	assert.Equal(t, 1, storedRecord(t, store, "hank").FailureCount)
}

func TestGovernor_StreakResetDisabled(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cfg := models.DefaultRateLimitConfig()
	cfg.FailureStreakReset = 0

	g, err := NewGovernor(&MockKeyValueStore{}, cfg, discardLogger(), WithClock(clock.Now))
	require.NoError(t, err)

	g.RecordFailedAttempt(ctx, "ivy")
	clock.Advance(48 * time.Hour)

	assert.Equal(t, 4, g.CheckAllowed(ctx, "ivy").AttemptsRemaining)
}

func TestGovernor_FailOpen(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("storage offline")
	store := &MockKeyValueStore{
		GetFunc:    func(ctx context.Context, key string) (string, bool, error) { return "", false, boom },
		SetFunc:    func(ctx context.Context, key, value string) error { return boom },
		RemoveFunc: func(ctx context.Context, key string) error { return boom },
	}
	g := newTestGovernor(store, newFakeClock())

	status := g.CheckAllowed(ctx, "jack")
	assert.True(t, status.Allowed)
	assert.Equal(t, 5, status.AttemptsRemaining)

	assert.NotPanics(t, func() {
		failed := g.RecordFailedAttempt(ctx, "jack")
		assert.Equal(t, 4, failed.AttemptsRemaining)
	})
	assert.Equal(t, 0, store.SetCalls(), "an unreadable record is never overwritten")

	assert.NotPanics(t, func() { g.RecordSuccessfulLogin(ctx, "jack") })

	_, err := g.Record(ctx, "jack")
	assert.ErrorIs(t, err, models.ErrPersistence)
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, g.Reset(ctx, "jack"), models.ErrPersistence)
}

func TestGovernor_WriteFailureStillReportsStatus(t *testing.T) {
	store := &MockKeyValueStore{
		SetFunc: func(ctx context.Context, key, value string) error { return errors.New("read-only") },
	}
	g := newTestGovernor(store, newFakeClock())

	status := g.RecordFailedAttempt(context.Background(), "kate")

	assert.Equal(t, 4, status.AttemptsRemaining)
	assert.Equal(t, models.StateDelayed, status.State)
}

func TestGovernor_CorruptRecordFailsOpen(t *testing.T) {
	store := &MockKeyValueStore{data: map[string]string{DefaultKeyPrefix + "liam": "{not json"}}
	g := newTestGovernor(store, newFakeClock())

	status := g.CheckAllowed(context.Background(), "liam")
	assert.True(t, status.Allowed)

	_, err := g.Record(context.Background(), "liam")
	var perr *models.LocalPersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "decode", perr.Op)
}

func TestGovernor_ApplyServerLockout(t *testing.T) {
	ctx := context.Background()

	t.Run("locks a clear identifier for retry-after", func(t *testing.T) {
		clock := newFakeClock()
		store := &MockKeyValueStore{}
		g := newTestGovernor(store, clock)

		status := g.ApplyServerLockout(ctx, "mia", 30*time.Second)

		assert.True(t, status.IsLocked)
		assert.Equal(t, 30, status.WaitTimeSeconds)
		assert.Equal(t, 0, status.AttemptsRemaining)
		assert.Equal(t, 5, storedRecord(t, store, "mia").FailureCount)
	})

	t.Run("keeps a longer local lock", func(t *testing.T) {
		clock := newFakeClock()
		g := newTestGovernor(&MockKeyValueStore{}, clock)
		for i := 0; i < 5; i++ {
			g.RecordFailedAttempt(ctx, "noah")
		}

		status := g.ApplyServerLockout(ctx, "noah", time.Minute)
		assert.Equal(t, 900, status.WaitTimeSeconds)
	})

	t.Run("extends a shorter local lock", func(t *testing.T) {
		clock := newFakeClock()
		g := newTestGovernor(&MockKeyValueStore{}, clock)
		for i := 0; i < 5; i++ {
			g.RecordFailedAttempt(ctx, "olga")
		}

		status := g.ApplyServerLockout(ctx, "olga", time.Hour)
		assert.Equal(t, 3600, status.WaitTimeSeconds)
	})

	t.Run("zero retry-after counts as a plain failure", func(t *testing.T) {
		g := newTestGovernor(&MockKeyValueStore{}, newFakeClock())

		status := g.ApplyServerLockout(ctx, "pete", 0)
		assert.False(t, status.IsLocked)
		assert.Equal(t, 4, status.AttemptsRemaining)
	})
}

func TestGovernor_KeyPrefixAndReset(t *testing.T) {
	ctx := context.Background()
	store := &MockKeyValueStore{}
	g := newTestGovernor(store, newFakeClock(), WithKeyPrefix("tenant-a:"))

	g.RecordFailedAttempt(ctx, "quinn")

	_, ok, _ := store.Get(ctx, "tenant-a:quinn")
	assert.True(t, ok)

	rec, err := g.Record(ctx, "quinn")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.FailureCount)

	require.NoError(t, g.Reset(ctx, "quinn"))
	_, ok, _ = store.Get(ctx, "tenant-a:quinn")
	assert.False(t, ok)
}

func TestGovernor_ConcurrentFailuresAreCounted(t *testing.T) {
	ctx := context.Background()
	store := &MockKeyValueStore{}
	cfg := models.DefaultRateLimitConfig()
	cfg.MaxAttempts = 100
	g, err := NewGovernor(store, cfg, discardLogger(), WithClock(newFakeClock().Now))
	require.NoError(t, err)

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			g.RecordFailedAttempt(ctx, "rita")
			done <- struct{}{}
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	assert.Equal(t, 20, storedRecord(t, store, "rita").FailureCount)
}

// retainingStore records the keepUntil of every retained write
type retainingStore struct {
	*MockKeyValueStore
	keepUntil map[string]time.Time
	retained  int
}

func (r *retainingStore) SetRetained(ctx context.Context, key, value string, keepUntil time.Time) error {
	r.keepUntil[key] = keepUntil
	r.retained++
	return r.Set(ctx, key, value)
}

func TestGovernor_RetainsRecordsPastStoreTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := &retainingStore{MockKeyValueStore: &MockKeyValueStore{}, keepUntil: map[string]time.Time{}}
	g, err := NewGovernor(store, models.DefaultRateLimitConfig(), discardLogger(), WithClock(clock.Now))
	require.NoError(t, err)

	// A server lock longer than any store TTL is kept until it ends
	g.ApplyServerLockout(ctx, "sara", 48*time.Hour)
	assert.Equal(t, clock.Now().Add(48*time.Hour), store.keepUntil[DefaultKeyPrefix+"sara"])

	// A live streak is kept until it would age out
	g.RecordFailedAttempt(ctx, "tom")
	assert.Equal(t, clock.Now().Add(15*time.Minute), store.keepUntil[DefaultKeyPrefix+"tom"])
	assert.Equal(t, 2, store.retained)

	// Clean records need no retention
	g.RecordSuccessfulLogin(ctx, "sara")
	assert.Equal(t, 2, store.retained)
	assert.Equal(t, 3, store.SetCalls())
}
