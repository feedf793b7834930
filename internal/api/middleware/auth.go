// Package middleware provides HTTP middleware for the MailGuard API.
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/response"
	apperrors "github.com/welldanyogia/webrana-mailguard-backend/internal/errors"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/logger"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
)

// Context keys set by SessionAuth
const (
	ContextKeyUser  = "mailguard.user"
	ContextKeyToken = "mailguard.token"
)

// SessionResolver maps a bearer token to the current directory record
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// SessionAuth requires a valid session token in the Authorization header.
// The resolved user, with its current role, is stored on the context.
func SessionAuth(resolver SessionResolver, security *logger.SecurityLogger) echo.MiddlewareFunc {
	if security == nil {
		security = logger.NewSecurityLoggerFrom(nil)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := BearerToken(c)
			if token == "" {
				security.AuthFailure(c.RealIP(), c.Path(), "missing bearer token")
				return response.Unauthorized(c, "missing authorization header")
			}

			user, err := resolver.Resolve(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, apperrors.ErrUnauthorized) {
					security.AuthFailure(c.RealIP(), c.Path(), "invalid or expired session")
					return response.Unauthorized(c, "invalid or expired session")
				}
				return response.Error(c, err)
			}

			c.Set(ContextKeyUser, user)
			c.Set(ContextKeyToken, token)
			return next(c)
		}
	}
}

// RequireRole rejects authenticated users whose current role differs from role.
// It must run after SessionAuth.
func RequireRole(role models.Role, security *logger.SecurityLogger) echo.MiddlewareFunc {
	if security == nil {
		security = logger.NewSecurityLoggerFrom(nil)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return response.Unauthorized(c, "authentication required")
			}
			if user.Role != role {
				security.AccessDenied(user.ID, c.Path(), string(user.Role))
				return response.Forbidden(c, "insufficient role")
			}
			return next(c)
		}
	}
}

// BearerToken extracts the token from a "Bearer <token>" Authorization header
func BearerToken(c echo.Context) string {
	header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// CurrentUser returns the user set by SessionAuth, or nil
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(ContextKeyUser).(*models.User)
	return user
}

// CurrentToken returns the session token set by SessionAuth
func CurrentToken(c echo.Context) string {
	token, _ := c.Get(ContextKeyToken).(string)
	return token
}
