package logger

import (
	"log/slog"
	"strings"
)

// SanitizedIdentifier masks a login identifier for logging.
// Emails become "u***@*******.com"; plain usernames keep their first character.
func SanitizedIdentifier(identifier string) string {
	if identifier == "" {
		return "[empty]"
	}
	if strings.Contains(identifier, "@") {
		return SanitizedEmail(identifier)
	}
	return maskTail(identifier)
}

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := maskTail(parts[0])

	// Mask all but the TLD
	domainParts := strings.Split(parts[1], ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
	}

	return username + "@" + strings.Join(domainParts, ".")
}

func maskTail(s string) string {
	r := []rune(s)
	if len(r) <= 1 {
		return s
	}
	return string(r[0]) + strings.Repeat("*", len(r)-1)
}

// IdentifierAttr returns the masked identifier as a slog attribute.
// In non-production environments the raw identifier is logged.
func IdentifierAttr(identifier, env string) slog.Attr {
	if env == "production" {
		return slog.String("identifier", SanitizedIdentifier(identifier))
	}
	return slog.String("identifier", identifier)
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"password", "token", "secret", "api_key", "apikey",
		"email", "identifier", "auth", "csrf",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
