package models

import (
	"fmt"
	"time"
)

// RateLimitConfig is the lockout and backoff policy applied per identifier
type RateLimitConfig struct {
	MaxAttempts                int
	LockoutDuration            time.Duration
	ProgressiveDelayBase       time.Duration
	ProgressiveDelayMultiplier float64
	ProgressiveDelayMax        time.Duration
	FailureStreakReset         time.Duration
	WarningThreshold           int // attempts remaining at which WARNING is reported
}

// DefaultRateLimitConfig returns the production defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:                5,
		LockoutDuration:            15 * time.Minute,
		ProgressiveDelayBase:       2 * time.Second,
		ProgressiveDelayMultiplier: 2,
		ProgressiveDelayMax:        60 * time.Second,
		FailureStreakReset:         15 * time.Minute,
		WarningThreshold:           2,
	}
}

// Validate rejects policies that can only come from a programming error
func (c RateLimitConfig) Validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max attempts must be positive (got %d)", ErrInvalidConfig, c.MaxAttempts)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"lockout duration", c.LockoutDuration},
		{"progressive delay base", c.ProgressiveDelayBase},
		{"progressive delay max", c.ProgressiveDelayMax},
		{"failure streak reset", c.FailureStreakReset},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%w: %s must not be negative (got %s)", ErrInvalidConfig, d.name, d.value)
		}
	}

	if c.ProgressiveDelayMultiplier <= 0 {
		return fmt.Errorf("%w: progressive delay multiplier must be positive (got %g)", ErrInvalidConfig, c.ProgressiveDelayMultiplier)
	}
	if c.WarningThreshold < 0 {
		return fmt.Errorf("%w: warning threshold must not be negative (got %d)", ErrInvalidConfig, c.WarningThreshold)
	}

	return nil
}

// ServerRateLimit is the interpretation of an authoritative upstream 429
type ServerRateLimit struct {
	IsRateLimited     bool   `json:"isRateLimited"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
	Message           string `json:"message"`
}
