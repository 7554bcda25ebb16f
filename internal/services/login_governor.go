package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/repositories"
	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
)

// DefaultKeyPrefix namespaces governor keys in a shared store
const DefaultKeyPrefix = "ratelimit:"

// Governor decides whether an identifier may attempt to log in and keeps its
// failure history. It is advisory: storage failures fail open, and the
// authentication server's own 429 responses always take precedence.
type Governor struct {
	store  repositories.KeyValueStore
	config models.RateLimitConfig
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
	now    func() time.Time
	prefix string
	env    string

	// serializes read-modify-write cycles and admissions within this
	// process; across processes the store is last-write-wins
	mu       sync.Mutex
	inflight map[string]chan struct{} // closed when the pending attempt settles
}

// GovernorOption customizes a Governor
type GovernorOption func(*Governor)

// WithClock replaces the wall clock, mainly for tests
func WithClock(now func() time.Time) GovernorOption {
	return func(g *Governor) { g.now = now }
}

// WithKeyPrefix overrides DefaultKeyPrefix
func WithKeyPrefix(prefix string) GovernorOption {
	return func(g *Governor) { g.prefix = prefix }
}

// WithAuditLogger emits lockout audit events
func WithAuditLogger(audit *pkglogger.AuditLogger) GovernorOption {
	return func(g *Governor) { g.audit = audit }
}

// WithEnv controls identifier redaction in logs ("production" masks identifiers)
func WithEnv(env string) GovernorOption {
	return func(g *Governor) { g.env = env }
}

// NewGovernor validates the policy and builds a Governor over store
func NewGovernor(store repositories.KeyValueStore, config models.RateLimitConfig, logger *slog.Logger, opts ...GovernorOption) (*Governor, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: attempt store is required", models.ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	g := &Governor{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
		prefix: DefaultKeyPrefix,
		env:    "production",

		inflight: make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Config returns the policy in force
func (g *Governor) Config() models.RateLimitConfig {
	return g.config
}

// CheckAllowed reports whether identifier may attempt a login now.
// It never writes; expired lockouts and streaks are ignored at read time.
// If the store cannot be read the attempt is allowed.
func (g *Governor) CheckAllowed(ctx context.Context, identifier string) models.RateLimitStatus {
	return g.checkAllowed(ctx, identifier)
}

func (g *Governor) checkAllowed(ctx context.Context, identifier string) models.RateLimitStatus {
	now := g.now()

	rec, err := g.load(ctx, identifier)
	if err != nil {
		g.logger.Error("attempt store read failed, allowing attempt",
			g.identifierAttr(identifier),
			slog.Any("error", err))
		return statusAt(models.AttemptRecord{Identifier: identifier}, g.config, now)
	}

	return statusAt(*rec, g.config, now)
}

// RecordFailedAttempt counts one failed login for identifier and returns the new status.
// Call it exactly once per failed attempt.
func (g *Governor) RecordFailedAttempt(ctx context.Context, identifier string) models.RateLimitStatus {
	return g.recordFailure(ctx, identifier, 0)
}

// ApplyServerLockout records a failure rejected upstream with 429 and locks the
// identifier for at least retryAfter, so the local countdown tracks the server.
func (g *Governor) ApplyServerLockout(ctx context.Context, identifier string, retryAfter time.Duration) models.RateLimitStatus {
	return g.recordFailure(ctx, identifier, retryAfter)
}

func (g *Governor) recordFailure(ctx context.Context, identifier string, serverRetryAfter time.Duration) models.RateLimitStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	persist := true
	rec, err := g.load(ctx, identifier)
	if err != nil {
		// Writing over an unreadable record would wipe its history; keep it in memory only
		g.logger.Error("attempt store read failed, failure not persisted",
			g.identifierAttr(identifier),
			slog.Any("error", err))
		rec = &models.AttemptRecord{Identifier: identifier}
		persist = false
	}

	expireStale(rec, g.config, now)
	wasLocked := rec.IsLockedAt(now)

	rec.Identifier = identifier
	rec.FailureCount++
	stamp := now
	if rec.FirstFailureAt == nil {
		rec.FirstFailureAt = &stamp
	}
	rec.LastFailureAt = &stamp

	source := ""
	switch {
	case serverRetryAfter > 0:
		// A server lock is only representable locally at the threshold
		if rec.FailureCount < g.config.MaxAttempts {
			rec.FailureCount = g.config.MaxAttempts
		}
		until := now.Add(serverRetryAfter)
		if rec.LockedUntil == nil || until.After(*rec.LockedUntil) {
			rec.LockedUntil = &until
			source = "server"
		}

	case rec.FailureCount >= g.config.MaxAttempts && !wasLocked:
		until := now.Add(g.config.LockoutDuration)
		rec.LockedUntil = &until
		source = "local"
	}

	if source != "" {
		g.logger.Warn("login identifier locked",
			g.identifierAttr(identifier),
			slog.String("source", source),
			slog.Int("failed_attempts", rec.FailureCount),
			slog.Time("locked_until", *rec.LockedUntil))
		if g.audit != nil {
			g.audit.LogLockout(pkglogger.SanitizedIdentifier(identifier), source, *rec.LockedUntil)
		}
	}

	if persist {
		if err := g.save(ctx, rec); err != nil {
			g.logger.Error("attempt store write failed, failure not persisted",
				g.identifierAttr(identifier),
				slog.Any("error", err))
		}
	}

	return statusAt(*rec, g.config, now)
}

// RecordSuccessfulLogin clears identifier's failure history. Calling it for an
// identifier with no history is harmless.
func (g *Governor) RecordSuccessfulLogin(ctx context.Context, identifier string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	rec := &models.AttemptRecord{Identifier: identifier, SuccessAt: &now}

	if err := g.save(ctx, rec); err != nil {
		g.logger.Error("attempt store write failed, success not persisted",
			g.identifierAttr(identifier),
			slog.Any("error", err))
	}
}

// Record returns the stored record for identifier after lazy expiry.
// Unlike the other operations it reports store errors, for operator tooling.
func (g *Governor) Record(ctx context.Context, identifier string) (*models.AttemptRecord, error) {
	rec, err := g.load(ctx, identifier)
	if err != nil {
		return nil, err
	}
	expireStale(rec, g.config, g.now())
	return rec, nil
}

// Reset removes identifier's record entirely
func (g *Governor) Reset(ctx context.Context, identifier string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := g.key(identifier)
	if err := g.store.Remove(ctx, key); err != nil {
		return &models.LocalPersistenceError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

func (g *Governor) key(identifier string) string {
	return g.prefix + identifier
}

func (g *Governor) load(ctx context.Context, identifier string) (*models.AttemptRecord, error) {
	key := g.key(identifier)

	raw, ok, err := g.store.Get(ctx, key)
	if err != nil {
		return nil, &models.LocalPersistenceError{Op: "read", Key: key, Err: err}
	}
	if !ok || raw == "" {
		return &models.AttemptRecord{Identifier: identifier}, nil
	}

	var rec models.AttemptRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, &models.LocalPersistenceError{Op: "decode", Key: key, Err: err}
	}
	if rec.FailureCount < 0 {
		return nil, &models.LocalPersistenceError{Op: "decode", Key: key, Err: errors.New("negative failure count")}
	}
	return &rec, nil
}

func (g *Governor) save(ctx context.Context, rec *models.AttemptRecord) error {
	key := g.key(rec.Identifier)

	data, err := json.Marshal(rec)
	if err != nil {
		return &models.LocalPersistenceError{Op: "encode", Key: key, Err: err}
	}
	keepUntil := g.retainUntil(rec)
	if rs, ok := g.store.(repositories.RetainingStore); ok && !keepUntil.IsZero() {
		err = rs.SetRetained(ctx, key, string(data), keepUntil)
	} else {
		err = g.store.Set(ctx, key, string(data))
	}
	if err != nil {
		return &models.LocalPersistenceError{Op: "write", Key: key, Err: err}
	}
	return nil
}

// retainUntil is how long rec must outlive the store TTL: until its lock ends
// and until its failure streak would age out
func (g *Governor) retainUntil(rec *models.AttemptRecord) time.Time {
	var until time.Time
	if rec.LockedUntil != nil {
		until = *rec.LockedUntil
	}
	if rec.LastFailureAt != nil && g.config.FailureStreakReset > 0 {
		if streakEnd := rec.LastFailureAt.Add(g.config.FailureStreakReset); streakEnd.After(until) {
			until = streakEnd
		}
	}
	return until
}

func (g *Governor) identifierAttr(identifier string) slog.Attr {
	return pkglogger.IdentifierAttr(identifier, g.env)
}
