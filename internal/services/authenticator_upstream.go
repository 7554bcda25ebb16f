package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	"github.com/google/uuid"
)

// Authenticator verifies credentials against whatever owns them
type Authenticator interface {
	Authenticate(ctx context.Context, creds models.Credentials) (*models.LoginResult, error)
}

const maxUpstreamBody = 1 << 20

// UpstreamConfig points the gateway at the real authentication endpoint
type UpstreamConfig struct {
	URL             string
	Timeout         time.Duration
	IdentifierField string // JSON field the endpoint expects the identifier in
}

// UpstreamAuthenticator forwards credentials to an HTTP login endpoint
type UpstreamAuthenticator struct {
	config UpstreamConfig
	client *http.Client
	logger *slog.Logger
}

// NewUpstreamAuthenticator creates an UpstreamAuthenticator. A nil client gets one
// with config.Timeout.
func NewUpstreamAuthenticator(config UpstreamConfig, client *http.Client, logger *slog.Logger) *UpstreamAuthenticator {
	if config.IdentifierField == "" {
		config.IdentifierField = "email"
	}
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &UpstreamAuthenticator{config: config, client: client, logger: logger}
}

// Authenticate posts the credentials as JSON. A 2xx body is returned verbatim;
// 401 and 403 map to ErrUnauthorized; any other status is a *pkghttp.ResponseError.
func (a *UpstreamAuthenticator) Authenticate(ctx context.Context, creds models.Credentials) (*models.LoginResult, error) {
	payload, err := json.Marshal(map[string]string{
		a.config.IdentifierField: creds.Identifier,
		"password":               creds.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build login request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if creds.IPAddress != "" {
		req.Header.Set("X-Forwarded-For", creds.IPAddress)
	}
	if creds.UserAgent != "" {
		req.Header.Set("User-Agent", creds.UserAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("upstream login request failed",
			slog.String("request_id", requestID),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
		if err != nil {
			return nil, fmt.Errorf("%w: reading response: %v", models.ErrUpstreamUnavailable, err)
		}
		result := &models.LoginResult{Identifier: creds.Identifier}
		if len(bytes.TrimSpace(body)) > 0 && json.Valid(body) {
			result.Body = body
		}
		return result, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxUpstreamBody))
		return nil, models.ErrUnauthorized

	default:
		a.logger.Warn("upstream login rejected",
			slog.String("request_id", requestID),
			slog.Int("status", resp.StatusCode))
		return nil, pkghttp.NewResponseError(resp)
	}
}
