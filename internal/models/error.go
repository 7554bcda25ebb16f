package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// Governor errors
	ErrInvalidConfig       = errors.New("invalid rate limit configuration")
	ErrPersistence         = errors.New("attempt store unavailable")
	ErrRateLimitExceeded   = errors.New("too many failed login attempts")
	ErrRateLimitedByServer = errors.New("rate limited by authentication server")
	ErrAccountLocked       = errors.New("account locked by authentication server")
	ErrUpstreamUnavailable = errors.New("authentication server unavailable")
)

// LocalPersistenceError describes a failed read or write against the attempt store.
// The governor recovers from it locally; it never reaches the end user.
type LocalPersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *LocalPersistenceError) Error() string {
	return fmt.Sprintf("attempt store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *LocalPersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// RateLimitError is returned when a login is refused, locally or by the server
type RateLimitError struct {
	Cause      error // ErrRateLimitExceeded, ErrRateLimitedByServer or ErrAccountLocked
	RetryAfter time.Duration
	Message    string
	Status     RateLimitStatus
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", e.Cause, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return e.Cause
}

// LoginFailedError is returned when credentials are rejected.
// Status carries the governor's view after counting the failure.
type LoginFailedError struct {
	Status RateLimitStatus
}

func (e *LoginFailedError) Error() string {
	return fmt.Sprintf("%v (%d attempts remaining)", ErrUnauthorized, e.Status.AttemptsRemaining)
}

func (e *LoginFailedError) Unwrap() error {
	return ErrUnauthorized
}
