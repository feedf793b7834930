package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/response"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/services"
)

// LogHandler exposes the audit trail to admins
type LogHandler struct {
	audit services.AuditTrail
}

// NewLogHandler creates a new LogHandler
func NewLogHandler(audit services.AuditTrail) *LogHandler {
	return &LogHandler{audit: audit}
}

// List handles GET /api/logs, newest first
func (h *LogHandler) List(c echo.Context) error {
	limit, offset := paginationParams(c)

	entries, total, err := h.audit.List(c.Request().Context(), limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, entries, total, limit, offset)
}
