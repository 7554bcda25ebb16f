package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/BradenHooton/loginguard/internal/models"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
)

// AuthServiceInterface defines the interface for the login gateway
type AuthServiceInterface interface {
	Login(ctx context.Context, creds models.Credentials, locale string) (*models.LoginResult, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"required,max=1024"`
}

// Login handles user login
// @Summary Governed login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} object "Authenticator response, forwarded"
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Failure 502 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := pkghttp.DecodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	creds := models.Credentials{
		Identifier: req.Identifier,
		Password:   req.Password,
		IPAddress:  pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:  r.Header.Get("User-Agent"),
	}

	result, err := h.service.Login(r.Context(), creds, RequestLocale(r))
	if err != nil {
		writeLoginError(w, err)
		return
	}

	body := []byte(result.Body)
	if len(body) == 0 {
		body = []byte("{}")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeLoginError(w http.ResponseWriter, err error) {
	var limited *models.RateLimitError
	var failed *models.LoginFailedError

	switch {
	case errors.As(err, &limited):
		pkghttp.WriteTooManyRequestsRetry(w, limited.Message, limited.RetryAfter)
	case errors.As(err, &failed):
		remaining := failed.Status.AttemptsRemaining
		w.Header().Set("X-Attempts-Remaining", strconv.Itoa(remaining))
		pkghttp.WriteErrorWithDetails(w, http.StatusUnauthorized, "unauthorized", "Authentication failed",
			fmt.Sprintf("%d attempts remaining", remaining))
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Identifier is required")
	case errors.Is(err, models.ErrUpstreamUnavailable):
		pkghttp.WriteBadGateway(w, "Authentication service unavailable")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
