package main

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/loginguard/internal/auth"
	"github.com/BradenHooton/loginguard/internal/config"
	"github.com/BradenHooton/loginguard/internal/handlers"
	middlewareCustom "github.com/BradenHooton/loginguard/internal/middleware"
	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/routes"
	"github.com/BradenHooton/loginguard/internal/services"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// app holds the wired services behind the HTTP router
type app struct {
	router       http.Handler
	governor     *services.Governor
	tokenManager *auth.TokenManager // nil when JWT_SECRET is unset
}

// newApp wires the governor, authenticator and handlers over store
func newApp(cfg *config.Config, store *attemptStore, logger *slog.Logger) (*app, error) {
	auditLogger := pkglogger.NewAuditLogger(logger)
	governor, err := services.NewGovernor(store.kv, governorConfig(cfg.Governor), logger,
		services.WithKeyPrefix(cfg.Governor.KeyPrefix),
		services.WithAuditLogger(auditLogger),
		services.WithEnv(cfg.Server.Env),
	)
	if err != nil {
		return nil, err
	}

	// Token manager backs operator endpoints and local-mode tokens
	var tokenManager *auth.TokenManager
	if cfg.Auth.JWTSecret != "" {
		tokenManager = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	} else {
		logger.Warn("JWT_SECRET not set, operator endpoints are disabled")
	}

	authenticator, err := newAuthenticator(cfg, tokenManager, logger)
	if err != nil {
		return nil, err
	}

	authService := services.NewAuthService(governor, authenticator, logger, auditLogger, cfg.Server.Env)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, ipConfig),
		Attempts:  handlers.NewAttemptsHandler(governor, logger, cfg.Server.Env),
		RateLimit: handlers.NewRateLimitHandler(),
		Health:    handlers.NewHealthHandler(store.pinger, cfg.Store.Backend, logger),
	}

	loginLimit := middlewareCustom.DefaultLoginRateLimit(ipConfig)
	loginLimit.RequestsPerMinute = cfg.Server.LoginRequestsPerM
	limits := routes.Limits{
		Login:    loginLimit,
		Public:   middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.PublicRequestsPerM, IPConfig: ipConfig},
		Operator: middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.AdminRequestsPerM, IPConfig: ipConfig},
	}

	// chi's RealIP is not used: client IPs are resolved against
	// TRUSTED_PROXIES instead of trusting any forwarded header
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, cfg.Server.Env))
	router.Use(middleware.Recoverer)

	routes.RegisterRoutes(router, h, limits, tokenManager)

	return &app{router: router, governor: governor, tokenManager: tokenManager}, nil
}

func governorConfig(c config.GovernorConfig) models.RateLimitConfig {
	return models.RateLimitConfig{
		MaxAttempts:                c.MaxAttempts,
		LockoutDuration:            c.LockoutDuration,
		ProgressiveDelayBase:       c.ProgressiveDelayBase,
		ProgressiveDelayMultiplier: c.ProgressiveDelayMultiplier,
		ProgressiveDelayMax:        c.ProgressiveDelayMax,
		FailureStreakReset:         c.FailureStreakReset,
		WarningThreshold:           c.WarningThreshold,
	}
}

func newAuthenticator(cfg *config.Config, tm *auth.TokenManager, logger *slog.Logger) (services.Authenticator, error) {
	if cfg.Upstream.Mode == config.UpstreamHTTP {
		return services.NewUpstreamAuthenticator(services.UpstreamConfig{
			URL:             cfg.Upstream.URL,
			Timeout:         cfg.Upstream.Timeout,
			IdentifierField: cfg.Upstream.IdentifierField,
		}, nil, logger), nil
	}

	return services.NewLocalAuthenticator(
		cfg.Auth.AdminIdentifier,
		cfg.Auth.AdminPasswordHash,
		tm,
		auth.ResponseFloor{Base: cfg.Auth.FailureFloor, Jitter: cfg.Auth.FailureJitter},
	)
}
