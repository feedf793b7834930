// Package logger provides security event logging for the MailGuard backend.
package logger

import (
	"log/slog"
	"os"
	"time"
)

// SecurityLogger provides methods for logging security-related events.
// It ensures sensitive data is never logged.
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger creates a new SecurityLogger with JSON output.
func NewSecurityLogger() *SecurityLogger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &SecurityLogger{
		logger: slog.New(handler),
	}
}

// NewSecurityLoggerWithHandler creates a SecurityLogger with a custom handler.
func NewSecurityLoggerWithHandler(handler slog.Handler) *SecurityLogger {
	return &SecurityLogger{
		logger: slog.New(handler),
	}
}

// NewSecurityLoggerFrom wraps an existing slog.Logger.
func NewSecurityLoggerFrom(logger *slog.Logger) *SecurityLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecurityLogger{logger: logger}
}

// AuthFailure logs a request rejected for a missing or invalid session.
func (s *SecurityLogger) AuthFailure(ip, path, reason string) {
	s.logger.Warn("authentication_failure",
		slog.String("event_type", "auth_failure"),
		slog.String("ip", ip),
		slog.String("path", path),
		slog.String("reason", reason),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// LoginFailure logs a rejected login. The access code is never logged.
func (s *SecurityLogger) LoginFailure(email, reason string) {
	s.logger.Warn("login_failure",
		slog.String("event_type", "login_failure"),
		slog.String("email", email),
		slog.String("reason", reason),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// IllegalTransition logs a refused processing-status change.
func (s *SecurityLogger) IllegalTransition(actorID, emailID, from, to, reason string) {
	s.logger.Warn("illegal_transition",
		slog.String("event_type", "illegal_transition"),
		slog.String("actor_id", actorID),
		slog.String("email_id", emailID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("reason", reason),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// PrivilegeChange logs a role change in the directory.
func (s *SecurityLogger) PrivilegeChange(actorID, targetID, from, to string) {
	s.logger.Info("privilege_change",
		slog.String("event_type", "privilege_change"),
		slog.String("actor_id", actorID),
		slog.String("target_id", targetID),
		slog.String("from", from),
		slog.String("to", to),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// AccessDenied logs an authenticated request refused for insufficient role.
func (s *SecurityLogger) AccessDenied(actorID, path, role string) {
	s.logger.Warn("access_denied",
		slog.String("event_type", "access_denied"),
		slog.String("actor_id", actorID),
		slog.String("path", path),
		slog.String("role", role),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// RateLimitExceeded logs when a client exceeds rate limits.
func (s *SecurityLogger) RateLimitExceeded(ip, path string) {
	s.logger.Warn("rate_limit_exceeded",
		slog.String("event_type", "rate_limit"),
		slog.String("ip", ip),
		slog.String("path", path),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// InvalidOrigin logs a rejected WebSocket connection due to invalid origin.
func (s *SecurityLogger) InvalidOrigin(ip, origin string) {
	s.logger.Warn("invalid_origin",
		slog.String("event_type", "invalid_origin"),
		slog.String("ip", ip),
		slog.String("origin", origin),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// SecurityEvent logs a generic security event.
func (s *SecurityLogger) SecurityEvent(eventType, ip string, details map[string]string) {
	attrs := []any{
		slog.String("event_type", eventType),
		slog.String("ip", ip),
		slog.Time("timestamp", time.Now().UTC()),
	}

	for k, v := range details {
		if isSensitiveKey(k) {
			continue
		}
		attrs = append(attrs, slog.String(k, v))
	}

	s.logger.Warn("security_event", attrs...)
}

// Info logs an informational message.
func (s *SecurityLogger) Info(msg string, args ...any) {
	s.logger.Info(msg, args...)
}

// Warn logs a warning.
func (s *SecurityLogger) Warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)
}

// Error logs an error message.
func (s *SecurityLogger) Error(msg string, args ...any) {
	s.logger.Error(msg, args...)
}

// GetLogger returns the underlying slog.Logger for use with middleware.
func (s *SecurityLogger) GetLogger() *slog.Logger {
	return s.logger
}

var sensitiveKeys = map[string]bool{
	"password":      true,
	"access_code":   true,
	"accesscode":    true,
	"api_key":       true,
	"apikey":        true,
	"token":         true,
	"secret":        true,
	"authorization": true,
	"auth":          true,
	"credential":    true,
	"credentials":   true,
	"session":       true,
	"cookie":        true,
}

// isSensitiveKey checks if a key might contain sensitive data.
func isSensitiveKey(key string) bool {
	return sensitiveKeys[key]
}
