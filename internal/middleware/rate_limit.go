package middleware

import (
	"net/http"
	"time"

	"github.com/BradenHooton/loginguard/internal/auth"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds per-client request limits. These sit in front of the
// login governor and bound request volume, not failed attempts.
type RateLimitConfig struct {
	RequestsPerMinute int
	Window            time.Duration
	IPConfig          *pkghttp.IPConfig
}

// DefaultLoginRateLimit returns the limit applied to POST /auth/login
func DefaultLoginRateLimit(ipConfig *pkghttp.IPConfig) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 20,
		Window:            time.Minute,
		IPConfig:          ipConfig,
	}
}

func (c RateLimitConfig) window() time.Duration {
	if c.Window <= 0 {
		return time.Minute
	}
	return c.Window
}

// RateLimitByIP limits requests per client IP, resolving the IP through the
// trusted-proxy rules used everywhere else
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	window := config.window()
	return httprate.Limit(
		config.RequestsPerMinute,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return "ip:" + pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(limitHandler(window)),
	)
}

// RateLimitBySubject limits operator requests per token subject, falling back
// to the client IP for unauthenticated requests. Use after auth.RequireBearer.
func RateLimitBySubject(config RateLimitConfig) func(next http.Handler) http.Handler {
	window := config.window()
	return httprate.Limit(
		config.RequestsPerMinute,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if claims := auth.ClaimsFromContext(r.Context()); claims != nil && claims.Subject != "" {
				return "sub:" + claims.Subject, nil
			}
			return "ip:" + pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(limitHandler(window)),
	)
}

func limitHandler(window time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteTooManyRequestsRetry(w, "Rate limit exceeded", window)
	}
}
