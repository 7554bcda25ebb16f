package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithURLParam sets a chi route parameter on the request, for calling handlers directly
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc func(ctx context.Context, creds models.Credentials, locale string) (*models.LoginResult, error)
}

func (m *MockAuthService) Login(ctx context.Context, creds models.Credentials, locale string) (*models.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds, locale)
	}
	return nil, models.ErrUnauthorized
}

// MockGovernor implements GovernorInterface for testing
type MockGovernor struct {
	CheckAllowedFunc          func(ctx context.Context, identifier string) models.RateLimitStatus
	RecordFailedAttemptFunc   func(ctx context.Context, identifier string) models.RateLimitStatus
	ApplyServerLockoutFunc    func(ctx context.Context, identifier string, retryAfter time.Duration) models.RateLimitStatus
	RecordSuccessfulLoginFunc func(ctx context.Context, identifier string)
	RecordFunc                func(ctx context.Context, identifier string) (*models.AttemptRecord, error)
	ResetFunc                 func(ctx context.Context, identifier string) error
	WatchFunc                 func(ctx context.Context, identifier string, interval time.Duration) <-chan models.RateLimitStatus
}

func (m *MockGovernor) CheckAllowed(ctx context.Context, identifier string) models.RateLimitStatus {
	if m.CheckAllowedFunc != nil {
		return m.CheckAllowedFunc(ctx, identifier)
	}
	return models.RateLimitStatus{Allowed: true, State: models.StateClear}
}

func (m *MockGovernor) RecordFailedAttempt(ctx context.Context, identifier string) models.RateLimitStatus {
	if m.RecordFailedAttemptFunc != nil {
		return m.RecordFailedAttemptFunc(ctx, identifier)
	}
	return models.RateLimitStatus{}
}

func (m *MockGovernor) ApplyServerLockout(ctx context.Context, identifier string, retryAfter time.Duration) models.RateLimitStatus {
	if m.ApplyServerLockoutFunc != nil {
		return m.ApplyServerLockoutFunc(ctx, identifier, retryAfter)
	}
	return models.RateLimitStatus{}
}

func (m *MockGovernor) RecordSuccessfulLogin(ctx context.Context, identifier string) {
	if m.RecordSuccessfulLoginFunc != nil {
		m.RecordSuccessfulLoginFunc(ctx, identifier)
	}
}

func (m *MockGovernor) Record(ctx context.Context, identifier string) (*models.AttemptRecord, error) {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, identifier)
	}
	return &models.AttemptRecord{Identifier: identifier}, nil
}

func (m *MockGovernor) Reset(ctx context.Context, identifier string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, identifier)
	}
	return nil
}

func (m *MockGovernor) Watch(ctx context.Context, identifier string, interval time.Duration) <-chan models.RateLimitStatus {
	if m.WatchFunc != nil {
		return m.WatchFunc(ctx, identifier, interval)
	}
	ch := make(chan models.RateLimitStatus)
	close(ch)
	return ch
}
