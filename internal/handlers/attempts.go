package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/services"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	defaultWatchInterval = time.Second
	minWatchInterval     = 250 * time.Millisecond
	watchKeepAlive       = 15 * time.Second
)

// GovernorInterface defines the governor operations exposed over HTTP
type GovernorInterface interface {
	CheckAllowed(ctx context.Context, identifier string) models.RateLimitStatus
	RecordFailedAttempt(ctx context.Context, identifier string) models.RateLimitStatus
	ApplyServerLockout(ctx context.Context, identifier string, retryAfter time.Duration) models.RateLimitStatus
	RecordSuccessfulLogin(ctx context.Context, identifier string)
	Record(ctx context.Context, identifier string) (*models.AttemptRecord, error)
	Reset(ctx context.Context, identifier string) error
	Watch(ctx context.Context, identifier string, interval time.Duration) <-chan models.RateLimitStatus
}

// AttemptsHandler exposes per-identifier governor state
type AttemptsHandler struct {
	governor GovernorInterface
	logger   *slog.Logger
	env      string
}

// NewAttemptsHandler creates a new AttemptsHandler
func NewAttemptsHandler(governor GovernorInterface, logger *slog.Logger, env string) *AttemptsHandler {
	return &AttemptsHandler{governor: governor, logger: logger, env: env}
}

// RecordFailureRequest optionally carries an upstream retry-after; when set the
// failure is applied as a server lockout
type RecordFailureRequest struct {
	RetryAfterSeconds int `json:"retryAfterSeconds" validate:"gte=0,lte=86400"`
}

// identifierParam returns the normalized {identifier} path parameter
func identifierParam(r *http.Request) (string, error) {
	raw, err := url.PathUnescape(chi.URLParam(r, "identifier"))
	if err != nil {
		return "", fmt.Errorf("invalid identifier encoding")
	}
	id := services.NormalizeIdentifier(raw)
	if id == "" {
		return "", fmt.Errorf("identifier is required")
	}
	if len(id) > 254 {
		return "", fmt.Errorf("identifier is too long")
	}
	return id, nil
}

// Status handles GET /v1/attempts/{identifier}
func (h *AttemptsHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := identifierParam(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.governor.CheckAllowed(r.Context(), id))
}

// RecordFailure handles POST /v1/attempts/{identifier}/failures
func (h *AttemptsHandler) RecordFailure(w http.ResponseWriter, r *http.Request) {
	id, err := identifierParam(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	var req RecordFailureRequest
	if r.ContentLength != 0 {
		if err := pkghttp.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			pkghttp.WriteBadRequest(w, "Invalid request body")
			return
		}
		if err := ValidateRequest(req); err != nil {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
	}

	var status models.RateLimitStatus
	if req.RetryAfterSeconds > 0 {
		status = h.governor.ApplyServerLockout(r.Context(), id, time.Duration(req.RetryAfterSeconds)*time.Second)
	} else {
		status = h.governor.RecordFailedAttempt(r.Context(), id)
	}

	writeJSON(w, http.StatusOK, status)
}

// RecordSuccess handles POST /v1/attempts/{identifier}/success
func (h *AttemptsHandler) RecordSuccess(w http.ResponseWriter, r *http.Request) {
	id, err := identifierParam(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	h.governor.RecordSuccessfulLogin(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// GetRecord handles GET /v1/attempts/{identifier}/record (operator)
func (h *AttemptsHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := identifierParam(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	rec, err := h.governor.Record(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to read attempt record", pkglogger.IdentifierAttr(id, h.env), slog.Any("error", err))
		pkghttp.WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "Attempt store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Reset handles DELETE /v1/attempts/{identifier} (operator)
func (h *AttemptsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id, err := identifierParam(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.governor.Reset(r.Context(), id); err != nil {
		h.logger.Error("failed to reset attempt record", pkglogger.IdentifierAttr(id, h.env), slog.Any("error", err))
		pkghttp.WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "Attempt store unavailable")
		return
	}

	h.logger.Info("attempt record reset", pkglogger.IdentifierAttr(id, h.env))
	w.WriteHeader(http.StatusNoContent)
}

// Watch handles GET /v1/attempts/{identifier}/watch, streaming status events
// until the identifier may log in again or the client goes away.
func (h *AttemptsHandler) Watch(w http.ResponseWriter, r *http.Request) {
	id, err := identifierParam(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	interval := defaultWatchInterval
	if raw := r.URL.Query().Get("interval"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < minWatchInterval {
			pkghttp.WriteBadRequest(w, fmt.Sprintf("interval must be a duration of at least %s", minWatchInterval))
			return
		}
		interval = d
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		pkghttp.WriteInternalError(w, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	keepAlive := time.NewTicker(watchKeepAlive)
	defer keepAlive.Stop()

	updates := h.governor.Watch(ctx, id, interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case status, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, "status", status); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
