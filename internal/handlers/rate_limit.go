package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/services"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
)

// RateLimitHandler exposes the 429/423 interpreter and the lockout formatter.
// Neither endpoint touches attempt state.
type RateLimitHandler struct {
	now func() time.Time
}

// NewRateLimitHandler creates a new RateLimitHandler
func NewRateLimitHandler() *RateLimitHandler {
	return &RateLimitHandler{now: time.Now}
}

// InterpretRequest describes an upstream response to classify
type InterpretRequest struct {
	Status  int               `json:"status" validate:"required,gte=100,lte=599"`
	Headers map[string]string `json:"headers"`
	Body    json.RawMessage   `json:"body"`
	Locale  string            `json:"locale" validate:"omitempty,bcp47_language_tag"`
}

// InterpretResponse is the server lockout read from a described response
type InterpretResponse struct {
	models.ServerRateLimit
	AccountLocked bool `json:"accountLocked,omitempty"`
}

// FormatResponse is the result of the lockout formatter
type FormatResponse struct {
	Seconds int    `json:"seconds"`
	Locale  string `json:"locale"`
	Text    string `json:"text"`
}

// Interpret handles POST /v1/rate-limit/interpret
func (h *RateLimitHandler) Interpret(w http.ResponseWriter, r *http.Request) {
	var req InterpretRequest
	if err := pkghttp.DecodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	header := http.Header{}
	for k, v := range req.Headers {
		header.Set(k, v)
	}
	upstreamErr := &pkghttp.ResponseError{StatusCode: req.Status, Header: header, Body: req.Body}

	locale := req.Locale
	if locale == "" {
		locale = RequestLocale(r)
	}

	now := h.now()
	resp := InterpretResponse{ServerRateLimit: services.InterpretRateLimit(upstreamErr, locale, now)}
	if !resp.IsRateLimited {
		if locked := services.InterpretAccountLocked(upstreamErr, locale, now); locked.IsRateLimited {
			resp = InterpretResponse{ServerRateLimit: locked, AccountLocked: true}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// FormatLockout handles GET /v1/format/lockout?seconds=&locale=
func (h *RateLimitHandler) FormatLockout(w http.ResponseWriter, r *http.Request) {
	seconds, err := strconv.Atoi(r.URL.Query().Get("seconds"))
	if err != nil || seconds < 0 {
		pkghttp.WriteBadRequest(w, "seconds must be a non-negative integer")
		return
	}

	locale := RequestLocale(r)
	if locale == "" {
		locale = services.DefaultLocale
	}

	writeJSON(w, http.StatusOK, FormatResponse{
		Seconds: seconds,
		Locale:  locale,
		Text:    services.FormatLockoutTime(seconds, locale),
	})
}
