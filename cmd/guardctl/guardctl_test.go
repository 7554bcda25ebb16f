package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestAPIClient_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/v1/attempts/alice@example.com", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"allowed":false,"isLocked":true,"waitTimeSeconds":120,"attemptsRemaining":0,"state":"LOCKED"}`))
	}))
	defer srv.Close()

	status, err := newAPIClient(srv.URL+"/", "").Status(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)
	assert.Equal(t, models.StateLocked, status.State)
	assert.Equal(t, 120, status.WaitTimeSeconds)
}

func TestAPIClient_ResetSendsToken(t *testing.T) {
	var gotAuth, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, newAPIClient(srv.URL, "tok").Reset(context.Background(), "bob"))
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "DELETE", gotMethod)
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteUnauthorized(w, "invalid or expired token")
	}))
	defer srv.Close()

	err := newAPIClient(srv.URL, "bad").Reset(context.Background(), "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid or expired token")
}

func TestRenderStatus(t *testing.T) {
	until := time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)
	var buf bytes.Buffer
	renderStatus(&buf, "alice", &models.RateLimitStatus{
		IsLocked:        true,
		WaitTimeSeconds: 900,
		State:           models.StateLocked,
		LockedUntil:     &until,
	}, "en")

	out := buf.String()
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "LOCKED")
	assert.Contains(t, out, "15 minutes")
	assert.Contains(t, out, "2026-03-01T12:15:00Z")
}

func TestRenderRecord(t *testing.T) {
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	renderRecord(&buf, &models.AttemptRecord{Identifier: "alice", FailureCount: 2, FirstFailureAt: &first})

	out := buf.String()
	assert.Contains(t, out, "failures:      2")
	assert.Contains(t, out, "2026-03-01T12:00:00Z")
	assert.Contains(t, out, "last success:  -")
}

func TestWarnIfWeak(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, warnIfWeak(&buf, "password"))
	assert.Contains(t, buf.String(), "commonly used")

	buf.Reset()
	assert.False(t, warnIfWeak(&buf, "Correct-Horse-9-Battery"))
	assert.Empty(t, buf.String())
}
