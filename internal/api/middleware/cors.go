package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DefaultAllowedOrigin is used when no origin is configured
const DefaultAllowedOrigin = "http://localhost:3000"

// SecureCORS returns CORS middleware restricted to the given origins.
// Wildcard origins are dropped in production.
func SecureCORS(origins []string, production bool) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     FilterOrigins(origins, production),
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.PATCH, echo.DELETE, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// FilterOrigins trims the configured origins and removes "*" in production
func FilterOrigins(origins []string, production bool) []string {
	filtered := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if production && origin == "*" {
			continue
		}
		filtered = append(filtered, origin)
	}
	if len(filtered) == 0 {
		filtered = []string{DefaultAllowedOrigin}
	}
	return filtered
}
