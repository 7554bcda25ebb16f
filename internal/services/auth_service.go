package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
)

// AuthService is the login gateway: it consults the governor, forwards the
// credentials and feeds the outcome back into the governor.
type AuthService struct {
	governor      *Governor
	authenticator Authenticator
	logger        *slog.Logger
	auditLogger   *pkglogger.AuditLogger
	env           string
	now           func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(governor *Governor, authenticator Authenticator, logger *slog.Logger, auditLogger *pkglogger.AuditLogger, env string) *AuthService {
	return &AuthService{
		governor:      governor,
		authenticator: authenticator,
		logger:        logger,
		auditLogger:   auditLogger,
		env:           env,
		now:           time.Now,
	}
}

// Login authenticates creds. Refusals come back as *models.RateLimitError
// (local or server), rejected credentials as *models.LoginFailedError.
// Concurrent logins for one identifier reach the authenticator one at a time.
// Messages are rendered in locale.
func (s *AuthService) Login(ctx context.Context, creds models.Credentials, locale string) (*models.LoginResult, error) {
	identifier := NormalizeIdentifier(creds.Identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: identifier is required", models.ErrBadRequest)
	}
	creds.Identifier = identifier

	status, attempt, err := s.governor.BeginAttempt(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		s.audit(creds, false, "rate_limited_local", map[string]string{
			"state":        string(status.State),
			"wait_seconds": strconv.Itoa(status.WaitTimeSeconds),
		})
		return nil, &models.RateLimitError{
			Cause:      models.ErrRateLimitExceeded,
			RetryAfter: time.Duration(status.WaitTimeSeconds) * time.Second,
			Message:    TooManyAttemptsMessage(status.WaitTimeSeconds, locale),
			Status:     status,
		}
	}
	defer attempt.Release()

	result, err := s.authenticator.Authenticate(ctx, creds)
	if err == nil {
		attempt.Succeeded(ctx)
		s.logger.Info("login succeeded", pkglogger.IdentifierAttr(identifier, s.env))
		s.audit(creds, true, "", nil)
		return result, nil
	}

	if limit, cause := s.serverLockout(err, locale); limit.IsRateLimited {
		// The server is authoritative even when the local governor allowed the attempt
		retryAfter := time.Duration(limit.RetryAfterSeconds) * time.Second
		status := attempt.ServerLocked(ctx, retryAfter)
		reason := "rate_limited_server"
		if errors.Is(cause, models.ErrAccountLocked) {
			reason = "account_locked_server"
		}
		s.audit(creds, false, reason, map[string]string{
			"retry_after_seconds": strconv.Itoa(limit.RetryAfterSeconds),
		})
		return nil, &models.RateLimitError{
			Cause:      cause,
			RetryAfter: retryAfter,
			Message:    limit.Message,
			Status:     status,
		}
	}

	if errors.Is(err, models.ErrUnauthorized) {
		status := attempt.Failed(ctx)
		s.logger.Info("login failed: invalid credentials",
			pkglogger.IdentifierAttr(identifier, s.env),
			slog.Int("attempts_remaining", status.AttemptsRemaining))
		s.audit(creds, false, "invalid_credentials", nil)
		return nil, &models.LoginFailedError{Status: status}
	}

	// Outages are not the user's fault and are not counted
	s.logger.Error("login could not be completed",
		pkglogger.IdentifierAttr(identifier, s.env),
		slog.Any("error", err))
	s.audit(creds, false, "upstream_error", nil)
	if errors.Is(err, models.ErrUpstreamUnavailable) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
}

// serverLockout interprets an upstream 429 or 423 as a lockout imposed by the server
func (s *AuthService) serverLockout(err error, locale string) (models.ServerRateLimit, error) {
	now := s.now()
	if limit := InterpretRateLimit(err, locale, now); limit.IsRateLimited {
		return limit, models.ErrRateLimitedByServer
	}
	if limit := InterpretAccountLocked(err, locale, now); limit.IsRateLimited {
		return limit, models.ErrAccountLocked
	}
	return models.ServerRateLimit{}, nil
}

func (s *AuthService) audit(creds models.Credentials, success bool, reason string, metadata map[string]string) {
	if s.auditLogger == nil {
		return
	}
	eventType := "login_success"
	if !success {
		eventType = "login_failed"
	}
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     eventType,
		Identifier:    pkglogger.SanitizedIdentifier(creds.Identifier),
		IPAddress:     creds.IPAddress,
		UserAgent:     creds.UserAgent,
		Success:       success,
		FailureReason: reason,
		Metadata:      metadata,
	})
}
