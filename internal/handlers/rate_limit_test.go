package handlers_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/loginguard/internal/handlers"
	"github.com/stretchr/testify/assert"
)

func TestInterpret(t *testing.T) {
	h := handlers.NewRateLimitHandler()

	t.Run("429 with header", func(t *testing.T) {
		req := handlers.NewTestRequest(t, "POST", "/v1/rate-limit/interpret", handlers.InterpretRequest{
			Status:  429,
			Headers: map[string]string{"retry-after": "30"},
		})
		w := httptest.NewRecorder()
		h.Interpret(w, req)

		var resp handlers.InterpretResponse
		handlers.AssertJSONResponse(t, w, 200, &resp)
		assert.True(t, resp.IsRateLimited)
		assert.False(t, resp.AccountLocked)
		assert.Equal(t, 30, resp.RetryAfterSeconds)
		assert.Equal(t, "Too many requests. Please wait 30 seconds.", resp.Message)
	})

	t.Run("423 with remaining time", func(t *testing.T) {
		req := handlers.NewTestRequest(t, "POST", "/v1/rate-limit/interpret", handlers.InterpretRequest{
			Status: 423,
			Body:   json.RawMessage(`{"remainingTime": 5}`),
		})
		w := httptest.NewRecorder()
		h.Interpret(w, req)

		var resp handlers.InterpretResponse
		handlers.AssertJSONResponse(t, w, 200, &resp)
		assert.True(t, resp.IsRateLimited)
		assert.True(t, resp.AccountLocked)
		assert.Equal(t, 300, resp.RetryAfterSeconds)
		assert.Equal(t, "Account temporarily locked. Try again in 5 minutes.", resp.Message)
	})

	t.Run("429 with body hints", func(t *testing.T) {
		req := handlers.NewTestRequest(t, "POST", "/v1/rate-limit/interpret", handlers.InterpretRequest{
			Status: 429,
			Body:   json.RawMessage(`{"waitMinutes": 3, "message": "Locked."}`),
		})
		w := httptest.NewRecorder()
		h.Interpret(w, req)

		var resp handlers.InterpretResponse
		handlers.AssertJSONResponse(t, w, 200, &resp)
		assert.Equal(t, 180, resp.RetryAfterSeconds)
		assert.Equal(t, "Locked.", resp.Message)
	})

	t.Run("not a 429", func(t *testing.T) {
		req := handlers.NewTestRequest(t, "POST", "/v1/rate-limit/interpret", handlers.InterpretRequest{Status: 404})
		w := httptest.NewRecorder()
		h.Interpret(w, req)

		var resp handlers.InterpretResponse
		handlers.AssertJSONResponse(t, w, 200, &resp)
		assert.False(t, resp.IsRateLimited)
		assert.Equal(t, 0, resp.RetryAfterSeconds)
	})

	t.Run("invalid status", func(t *testing.T) {
		req := handlers.NewTestRequest(t, "POST", "/v1/rate-limit/interpret", handlers.InterpretRequest{Status: 42})
		w := httptest.NewRecorder()
		h.Interpret(w, req)

		handlers.AssertErrorResponse(t, w, 400, "bad_request")
	})
}

func TestFormatLockout(t *testing.T) {
	h := handlers.NewRateLimitHandler()

	w := httptest.NewRecorder()
	h.FormatLockout(w, httptest.NewRequest("GET", "/v1/format/lockout?seconds=120", nil))

	var resp handlers.FormatResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "2 minutes", resp.Text)
	assert.Equal(t, "en", resp.Locale)

	w = httptest.NewRecorder()
	h.FormatLockout(w, httptest.NewRequest("GET", "/v1/format/lockout?seconds=120&locale=ar", nil))
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "دقيقتان", resp.Text)

	for _, q := range []string{"", "seconds=abc", "seconds=-1"} {
		w = httptest.NewRecorder()
		h.FormatLockout(w, httptest.NewRequest("GET", "/v1/format/lockout?"+q, nil))
		handlers.AssertErrorResponse(t, w, 400, "bad_request")
	}
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	handlers.NewHealthHandler(nil, "memory", quietLogger()).Health(w, httptest.NewRequest("GET", "/health", nil))

	var resp handlers.HealthResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "memory", resp.Store)
}

func TestRequestLocale(t *testing.T) {
	req := httptest.NewRequest("GET", "/?locale=ar", nil)
	req.Header.Set("Accept-Language", "en-US")
	assert.Equal(t, "ar", handlers.RequestLocale(req))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Language", "fr-CH, fr;q=0.9, en;q=0.8")
	assert.Equal(t, "fr-CH", handlers.RequestLocale(req))

	assert.Equal(t, "", handlers.RequestLocale(httptest.NewRequest("GET", "/", nil)))
}
