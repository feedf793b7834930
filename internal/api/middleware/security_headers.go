package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecureHeaders adds security headers to API responses
func SecureHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")

			// JSON only; nothing should be rendered or framed
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

			// Mail content and audit data must not be cached by intermediaries
			h.Set("Cache-Control", "no-store")

			if c.Scheme() == "https" {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

			return next(c)
		}
	}
}
