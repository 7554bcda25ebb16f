package services

import (
	"math"
	"strings"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
)

// NormalizeIdentifier case-folds and trims a login identifier before it is used as a key
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// ProgressiveDelay returns the minimum wait after the n-th consecutive failure:
// base * multiplier^(n-1), capped at ProgressiveDelayMax. No failures means no delay.
func ProgressiveDelay(cfg models.RateLimitConfig, failures int) time.Duration {
	if failures <= 0 || cfg.ProgressiveDelayBase <= 0 {
		return 0
	}

	delay := float64(cfg.ProgressiveDelayBase) * math.Pow(cfg.ProgressiveDelayMultiplier, float64(failures-1))
	if delay > float64(cfg.ProgressiveDelayMax) || math.IsInf(delay, 1) || math.IsNaN(delay) {
		return cfg.ProgressiveDelayMax
	}
	return time.Duration(delay)
}

// ceilSeconds rounds a duration up to whole seconds; negative durations become 0
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// expireStale applies lazy expiry to rec at now. A finished lockout or a streak
// idle for FailureStreakReset resets the failure history. Reports whether it reset.
func expireStale(rec *models.AttemptRecord, cfg models.RateLimitConfig, now time.Time) bool {
	if rec.LockedUntil != nil {
		if now.Before(*rec.LockedUntil) {
			return false
		}
		rec.Reset()
		return true
	}

	// FailureStreakReset of 0 disables streak aging
	if rec.LastFailureAt != nil && cfg.FailureStreakReset > 0 &&
		!now.Before(rec.LastFailureAt.Add(cfg.FailureStreakReset)) {
		rec.Reset()
		return true
	}

	return false
}

// statusAt derives the externally visible status of rec at now without mutating it
func statusAt(rec models.AttemptRecord, cfg models.RateLimitConfig, now time.Time) models.RateLimitStatus {
	expireStale(&rec, cfg, now)

	delay := ProgressiveDelay(cfg, rec.FailureCount)
	status := models.RateLimitStatus{
		Allowed:                 true,
		AttemptsRemaining:       max(0, cfg.MaxAttempts-rec.FailureCount),
		ProgressiveDelaySeconds: ceilSeconds(delay),
		State:                   models.StateClear,
	}

	switch {
	case rec.IsLockedAt(now):
		until := *rec.LockedUntil
		status.Allowed = false
		status.IsLocked = true
		status.WaitTimeSeconds = ceilSeconds(until.Sub(now))
		status.State = models.StateLocked
		status.LockedUntil = &until

	case rec.LastFailureAt != nil && delay > 0 && elapsedSince(*rec.LastFailureAt, now) < delay:
		status.Allowed = false
		status.WaitTimeSeconds = ceilSeconds(delay - elapsedSince(*rec.LastFailureAt, now))
		status.State = models.StateDelayed

	case rec.FailureCount > 0 && status.AttemptsRemaining <= cfg.WarningThreshold:
		status.State = models.StateWarning
	}

	return status
}

// elapsedSince clamps clock skew so a timestamp in the future counts as just now
func elapsedSince(t, now time.Time) time.Duration {
	if d := now.Sub(t); d > 0 {
		return d
	}
	return 0
}
