package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
)

// PendingAttempt is a login attempt admitted by BeginAttempt. Settle it with
// Succeeded, Failed or ServerLocked, or drop it uncounted with Release. Only
// the first settling call takes effect.
type PendingAttempt struct {
	g          *Governor
	identifier string
	done       chan struct{}
	once       sync.Once
}

// BeginAttempt admits one login attempt for identifier. Only one attempt per
// identifier is in flight at a time; later callers wait for it to settle and
// are then checked against the updated record. A refused attempt returns the
// refusing status and a nil *PendingAttempt. The error is non-nil only when
// ctx ends while waiting.
func (g *Governor) BeginAttempt(ctx context.Context, identifier string) (models.RateLimitStatus, *PendingAttempt, error) {
	for {
		g.mu.Lock()
		if pending, busy := g.inflight[identifier]; busy {
			g.mu.Unlock()
			select {
			case <-pending:
				continue
			case <-ctx.Done():
				return models.RateLimitStatus{}, nil, ctx.Err()
			}
		}

		status := g.checkAllowed(ctx, identifier)
		if !status.Allowed {
			g.mu.Unlock()
			return status, nil, nil
		}

		done := make(chan struct{})
		g.inflight[identifier] = done
		g.mu.Unlock()

		return status, &PendingAttempt{g: g, identifier: identifier, done: done}, nil
	}
}

// Succeeded records a successful login and frees the identifier
func (a *PendingAttempt) Succeeded(ctx context.Context) {
	a.settle(func() { a.g.RecordSuccessfulLogin(ctx, a.identifier) })
}

// Failed counts the attempt as a failure and frees the identifier
func (a *PendingAttempt) Failed(ctx context.Context) models.RateLimitStatus {
	var status models.RateLimitStatus
	a.settle(func() { status = a.g.RecordFailedAttempt(ctx, a.identifier) })
	return status
}

// ServerLocked applies an upstream lockout and frees the identifier
func (a *PendingAttempt) ServerLocked(ctx context.Context, retryAfter time.Duration) models.RateLimitStatus {
	var status models.RateLimitStatus
	a.settle(func() { status = a.g.ApplyServerLockout(ctx, a.identifier, retryAfter) })
	return status
}

// Release frees the identifier without recording anything
func (a *PendingAttempt) Release() {
	a.settle(nil)
}

func (a *PendingAttempt) settle(record func()) {
	a.once.Do(func() {
		if record != nil {
			record()
		}
		a.g.mu.Lock()
		delete(a.g.inflight, a.identifier)
		a.g.mu.Unlock()
		close(a.done)
	})
}
