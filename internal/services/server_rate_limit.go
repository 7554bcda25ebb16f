package services

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
)

const (
	// DefaultServerRetryAfter applies when a 429 carries no usable retry hint
	DefaultServerRetryAfter = 60 * time.Second

	// DefaultAccountLockout applies when a 423 carries no remaining time
	DefaultAccountLockout = 15 * time.Minute
)

// rateLimitBody holds the hints an auth server may put in a 429 or 423 body
type rateLimitBody struct {
	Message     string   `json:"message"`
	Error       string   `json:"error"`
	RetryAfter  *float64 `json:"retryAfter"`
	WaitSeconds *float64 `json:"waitSeconds"`
	WaitMinutes *float64 `json:"waitMinutes"`

	RemainingTime *float64 `json:"remainingTime"` // minutes, sent with 423
}

// Handle429Response reports whether err is an upstream 429 and how long to wait
func Handle429Response(err error) models.ServerRateLimit {
	return InterpretRateLimit(err, DefaultLocale, time.Now())
}

// InterpretRateLimit is Handle429Response with an explicit locale and clock.
// The Retry-After header wins; body hints are consulted only when it is absent or unusable.
func InterpretRateLimit(err error, locale string, now time.Time) models.ServerRateLimit {
	var respErr *pkghttp.ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusTooManyRequests {
		return models.ServerRateLimit{}
	}

	body := decodeRateLimitBody(respErr.Body)

	seconds, ok := parseRetryAfter(respErr.RetryAfter(), now)
	if !ok {
		seconds, ok = body.retrySeconds()
	}
	if !ok {
		seconds = int(DefaultServerRetryAfter / time.Second)
	}

	message := body.message()
	if message == "" {
		message = TooManyRequestsMessage(seconds, locale)
	}

	return models.ServerRateLimit{
		IsRateLimited:     true,
		RetryAfterSeconds: seconds,
		Message:           message,
	}
}

// InterpretAccountLocked reports whether err is an upstream 423 Locked and for how
// long. Retry-After wins, then the body's remainingTime in minutes, then
// DefaultAccountLockout. Any other status yields the zero value.
func InterpretAccountLocked(err error, locale string, now time.Time) models.ServerRateLimit {
	var respErr *pkghttp.ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusLocked {
		return models.ServerRateLimit{}
	}

	body := decodeRateLimitBody(respErr.Body)

	seconds, ok := parseRetryAfter(respErr.RetryAfter(), now)
	if !ok && body.RemainingTime != nil {
		seconds, ok = nonNegativeCeil(*body.RemainingTime * 60)
	}
	if !ok {
		seconds = int(DefaultAccountLockout / time.Second)
	}

	message := body.message()
	if message == "" {
		message = AccountLockedMessage(seconds, locale)
	}

	return models.ServerRateLimit{
		IsRateLimited:     true,
		RetryAfterSeconds: seconds,
		Message:           message,
	}
}

// parseRetryAfter accepts delta-seconds (fractions round up) or an HTTP-date.
// Dates in the past yield 0.
func parseRetryAfter(value string, now time.Time) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return nonNegativeCeil(secs)
	}

	if at, err := http.ParseTime(value); err == nil {
		return ceilSeconds(at.Sub(now)), true
	}

	return 0, false
}

func decodeRateLimitBody(raw []byte) rateLimitBody {
	var body rateLimitBody
	if len(raw) == 0 {
		return body
	}
	// A non-JSON body just means no hints
	_ = json.Unmarshal(raw, &body)
	return body
}

func (b rateLimitBody) message() string {
	if m := strings.TrimSpace(b.Message); m != "" {
		return m
	}
	return strings.TrimSpace(b.Error)
}

func (b rateLimitBody) retrySeconds() (int, bool) {
	if b.RetryAfter != nil {
		if secs, ok := nonNegativeCeil(*b.RetryAfter); ok {
			return secs, true
		}
	}
	if b.WaitSeconds != nil {
		if secs, ok := nonNegativeCeil(*b.WaitSeconds); ok {
			return secs, true
		}
	}
	if b.WaitMinutes != nil {
		if secs, ok := nonNegativeCeil(*b.WaitMinutes * 60); ok {
			return secs, true
		}
	}
	return 0, false
}

func nonNegativeCeil(secs float64) (int, bool) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 || secs > math.MaxInt32 {
		return 0, false
	}
	return int(math.Ceil(secs)), true
}
