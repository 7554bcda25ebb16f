package routes

import (
	"github.com/BradenHooton/loginguard/internal/auth"
	"github.com/BradenHooton/loginguard/internal/handlers"
	"github.com/BradenHooton/loginguard/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers groups everything RegisterRoutes mounts
type Handlers struct {
	Auth      *handlers.AuthHandler
	Attempts  *handlers.AttemptsHandler
	RateLimit *handlers.RateLimitHandler
	Health    *handlers.HealthHandler
}

// Limits are the per-client request limits for each route group
type Limits struct {
	Login    middleware.RateLimitConfig
	Public   middleware.RateLimitConfig
	Operator middleware.RateLimitConfig
}

// RegisterRoutes registers all application routes. Public routes only read
// attempt state; everything that changes it outside /auth/login is an operator
// route, mounted only when tokenManager is non-nil.
func RegisterRoutes(router chi.Router, h Handlers, limits Limits, tokenManager *auth.TokenManager) {
	router.Get("/health", h.Health.Health)

	// Login passes through the governor before reaching the authenticator
	router.With(middleware.RateLimitByIP(limits.Login)).Post("/auth/login", h.Auth.Login)

	router.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(limits.Public))

		r.Post("/rate-limit/interpret", h.RateLimit.Interpret)
		r.Get("/format/lockout", h.RateLimit.FormatLockout)

		r.Route("/attempts/{identifier}", func(r chi.Router) {
			r.Get("/", h.Attempts.Status)
			r.Get("/watch", h.Attempts.Watch)

			if tokenManager == nil {
				return
			}

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireBearer(tokenManager))
				r.Use(middleware.RateLimitBySubject(limits.Operator))
				r.Get("/record", h.Attempts.GetRecord)
				r.Post("/failures", h.Attempts.RecordFailure)
				r.Post("/success", h.Attempts.RecordSuccess)
				r.Delete("/", h.Attempts.Reset)
			})
		})
	})
}
