package models

import "time"

// AttemptRecord is the persisted failure history for a single login identifier
type AttemptRecord struct {
	Identifier     string     `json:"identifier"`
	FailureCount   int        `json:"failureCount"`
	FirstFailureAt *time.Time `json:"firstFailureAt,omitempty"`
	LastFailureAt  *time.Time `json:"lastFailureAt,omitempty"`
	LockedUntil    *time.Time `json:"lockedUntil,omitempty"`
	SuccessAt      *time.Time `json:"successAt,omitempty"`
}

// IsClean reports whether the record carries no failure state.
// A clean record is treated the same as a missing one.
func (r *AttemptRecord) IsClean() bool {
	return r.FailureCount == 0 && r.LockedUntil == nil
}

// IsLockedAt reports whether the lockout is still in force at now
func (r *AttemptRecord) IsLockedAt(now time.Time) bool {
	return r.LockedUntil != nil && now.Before(*r.LockedUntil)
}

// Reset drops the failure streak while keeping the identifier and last success
func (r *AttemptRecord) Reset() {
	r.FailureCount = 0
	r.FirstFailureAt = nil
	r.LastFailureAt = nil
	r.LockedUntil = nil
}

// AttemptState is the externally visible phase of an identifier's login history
type AttemptState string

const (
	StateClear   AttemptState = "CLEAR"
	StateWarning AttemptState = "WARNING"
	StateDelayed AttemptState = "DELAYED"
	StateLocked  AttemptState = "LOCKED"
)

// RateLimitStatus is derived from an AttemptRecord on every query; it is never stored
type RateLimitStatus struct {
	Allowed                 bool         `json:"allowed"`
	IsLocked                bool         `json:"isLocked"`
	WaitTimeSeconds         int          `json:"waitTimeSeconds"`
	AttemptsRemaining       int          `json:"attemptsRemaining"`
	ProgressiveDelaySeconds int          `json:"progressiveDelaySeconds"`
	State                   AttemptState `json:"state"`
	LockedUntil             *time.Time   `json:"lockedUntil,omitempty"`
}
