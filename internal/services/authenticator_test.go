package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/loginguard/internal/auth"
	"github.com/BradenHooton/loginguard/internal/models"
	pkgauth "github.com/BradenHooton/loginguard/pkg/auth"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUpstreamAuthenticator(t *testing.T) {
	var gotBody map[string]string
	var gotHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		switch gotBody["email"] {
		case "ok@example.com":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token":"abc"}`))
		case "bad@example.com":
			w.WriteHeader(http.StatusUnauthorized)
		case "limited@example.com":
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"slow down"}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	a := NewUpstreamAuthenticator(UpstreamConfig{URL: server.URL, Timeout: time.Second}, nil, discardLogger())
	ctx := context.Background()

	t.Run("success forwards body", func(t *testing.T) {
		result, err := a.Authenticate(ctx, models.Credentials{
			Identifier: "ok@example.com", Password: "pw", IPAddress: "203.0.113.9", UserAgent: "test-agent",
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"token":"abc"}`, string(result.Body))
		assert.Equal(t, "pw", gotBody["password"])
		assert.Equal(t, "203.0.113.9", gotHeaders.Get("X-Forwarded-For"))
		assert.Equal(t, "test-agent", gotHeaders.Get("User-Agent"))
		assert.NotEmpty(t, gotHeaders.Get("X-Request-ID"))
	})

	t.Run("401 is unauthorized", func(t *testing.T) {
		_, err := a.Authenticate(ctx, models.Credentials{Identifier: "bad@example.com"})
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("429 keeps status headers and body", func(t *testing.T) {
		_, err := a.Authenticate(ctx, models.Credentials{Identifier: "limited@example.com"})

		var respErr *pkghttp.ResponseError
		require.True(t, errors.As(err, &respErr))
		assert.Equal(t, http.StatusTooManyRequests, respErr.StatusCode)
		assert.Equal(t, "30", respErr.RetryAfter())

		limit := Handle429Response(err)
		assert.True(t, limit.IsRateLimited)
		assert.Equal(t, 30, limit.RetryAfterSeconds)
		assert.Equal(t, "slow down", limit.Message)
	})

	t.Run("other statuses are response errors", func(t *testing.T) {
		_, err := a.Authenticate(ctx, models.Credentials{Identifier: "x@example.com"})

		var respErr *pkghttp.ResponseError
		require.True(t, errors.As(err, &respErr))
		assert.Equal(t, http.StatusServiceUnavailable, respErr.StatusCode)
	})
}

func TestUpstreamAuthenticator_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	a := NewUpstreamAuthenticator(UpstreamConfig{URL: url, Timeout: time.Second, IdentifierField: "username"}, nil, discardLogger())

	_, err := a.Authenticate(context.Background(), models.Credentials{Identifier: "alice"})
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestLocalAuthenticator(t *testing.T) {
	hash, err := pkgauth.HashPasswordWithCost("Sup3r-Secret!", bcrypt.MinCost)
	require.NoError(t, err)

	tm := auth.NewTokenManager("local-secret-for-tests", 15*time.Minute)
	a, err := NewLocalAuthenticator("Admin@Example.com", hash, tm, auth.ResponseFloor{})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("valid credentials issue a token", func(t *testing.T) {
		result, err := a.Authenticate(ctx, models.Credentials{Identifier: "admin@example.com", Password: "Sup3r-Secret!"})
		require.NoError(t, err)

		var body TokenResponse
		require.NoError(t, json.Unmarshal(result.Body, &body))
		assert.Equal(t, "Bearer", body.TokenType)
		assert.Equal(t, 900, body.ExpiresIn)

		claims, err := tm.ValidateToken(body.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "admin@example.com", claims.Subject)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := a.Authenticate(ctx, models.Credentials{Identifier: "admin@example.com", Password: "nope"})
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("unknown identifier with the right password", func(t *testing.T) {
		_, err := a.Authenticate(ctx, models.Credentials{Identifier: "root", Password: "Sup3r-Secret!"})
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})
}

func TestNewLocalAuthenticator_Validation(t *testing.T) {
	tm := auth.NewTokenManager("s", time.Minute)

	_, err := NewLocalAuthenticator("", "hash", tm, auth.ResponseFloor{})
	assert.ErrorIs(t, err, models.ErrInvalidConfig)

	_, err = NewLocalAuthenticator("admin", "not-a-bcrypt-hash", tm, auth.ResponseFloor{})
	assert.ErrorIs(t, err, models.ErrInvalidConfig)
}
