package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "a****@*******.com"},
		{"bob", "b**"},
		{"x", "x"},
		{"", "[empty]"},
		{"a@b@c", "[invalid-email]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, pkglogger.SanitizedIdentifier(tt.in), tt.in)
	}
}

func TestIdentifierAttr_RedactsInProduction(t *testing.T) {
	assert.Equal(t, "alice", pkglogger.IdentifierAttr("alice", "development").Value.String())
	assert.Equal(t, "a****", pkglogger.IdentifierAttr("alice", "production").Value.String())
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, pkglogger.SanitizeQueryString("identifier=alice"))
	assert.True(t, pkglogger.SanitizeQueryString("Password=x"))
	assert.False(t, pkglogger.SanitizeQueryString("seconds=90&locale=ar"))
}

func TestAuditLogger_LogLockout(t *testing.T) {
	var buf bytes.Buffer
	audit := pkglogger.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	audit.LogLockout("a****", "local", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "lockout", entry["audit_type"])
	assert.Equal(t, "2026-01-02T03:04:05Z", entry["locked_until"])
}

func TestAuditLogger_LogAuthAttempt(t *testing.T) {
	var buf bytes.Buffer
	audit := pkglogger.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		Identifier:    "a****",
		FailureReason: "invalid_credentials",
		Metadata:      map[string]string{"attempts_remaining": "2"},
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "auth", entry["audit_type"])
	assert.Equal(t, false, entry["success"])
	assert.Equal(t, "2", entry["attempts_remaining"])
	assert.NotContains(t, entry, "ip_address")
	assert.NotContains(t, entry, "user_agent")
}
