package services

import (
	"context"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
)

// Watch polls CheckAllowed every interval and emits each status, for countdown
// displays. The channel closes after the first allowed status or when ctx is done;
// cancelling ctx is how the caller stops the poller.
func (g *Governor) Watch(ctx context.Context, identifier string, interval time.Duration) <-chan models.RateLimitStatus {
	if interval <= 0 {
		interval = time.Second
	}

	ch := make(chan models.RateLimitStatus, 1)

	go func() {
		defer close(ch)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			status := g.CheckAllowed(ctx, identifier)

			select {
			case ch <- status:
			case <-ctx.Done():
				return
			}

			if status.Allowed {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}
