package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit categories
const (
	auditLogin   = "auth"
	auditLockout = "lockout"
)

// AuditEvent is one login outcome as recorded in the audit trail
type AuditEvent struct {
	EventType     string
	Identifier    string // already sanitized by the caller
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit records through a slog.Logger under the "audit" message
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger, now: time.Now}
}

// LogAuthAttempt records a login outcome. Failures are logged at WARN.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := make([]slog.Attr, 0, 8+len(event.Metadata))
	attrs = append(attrs,
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
	)
	attrs = appendNonEmpty(attrs,
		"identifier", event.Identifier,
		"ip_address", event.IPAddress,
		"user_agent", event.UserAgent,
		"failure_reason", event.FailureReason,
	)
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.emit(level, auditLogin, attrs)
}

// LogLockout records an identifier entering LOCKED. source is "local" or "server".
func (al *AuditLogger) LogLockout(identifier, source string, until time.Time) {
	al.emit(slog.LevelWarn, auditLockout, []slog.Attr{
		slog.String("event_type", "identifier_locked"),
		slog.String("identifier", identifier),
		slog.String("source", source),
		slog.String("locked_until", until.UTC().Format(time.RFC3339)),
	})
}

func (al *AuditLogger) emit(level slog.Level, category string, attrs []slog.Attr) {
	attrs = append(attrs,
		slog.String("audit_type", category),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	)
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

// appendNonEmpty takes key/value pairs and skips empty values
func appendNonEmpty(attrs []slog.Attr, kv ...string) []slog.Attr {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			attrs = append(attrs, slog.String(kv[i], kv[i+1]))
		}
	}
	return attrs
}
