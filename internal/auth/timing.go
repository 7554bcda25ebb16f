package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// ResponseFloor pads failed credential checks to a minimum duration plus
// random jitter, so unknown identifiers and wrong passwords look alike.
type ResponseFloor struct {
	Base   time.Duration
	Jitter time.Duration
}

// Pad sleeps until at least Base+jitter has passed since start, or ctx is done
func (f ResponseFloor) Pad(ctx context.Context, start time.Time) {
	target := f.Base + randomDuration(f.Jitter)
	remaining := target - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// randomDuration returns a uniformly random duration in [0, max) from crypto/rand
func randomDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return time.Duration(binary.BigEndian.Uint64(b[:]) % uint64(max))
}
