package handlers

import (
	"errors"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/response"
	apperrors "github.com/welldanyogia/webrana-mailguard-backend/internal/errors"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/logger"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/websocket"
)

// WSHandler upgrades authenticated console sessions to live event streams
type WSHandler struct {
	hub      *websocket.Hub
	sessions middleware.SessionResolver
	upgrader gorillaws.Upgrader
	security *logger.SecurityLogger
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *websocket.Hub, sessions middleware.SessionResolver, upgrader gorillaws.Upgrader, security *logger.SecurityLogger) *WSHandler {
	if security == nil {
		security = logger.NewSecurityLoggerFrom(nil)
	}
	return &WSHandler{
		hub:      hub,
		sessions: sessions,
		upgrader: upgrader,
		security: security,
	}
}

// Connect handles GET /ws. Browsers cannot set headers on a WebSocket
// handshake, so the token may also be passed as ?token=.
func (h *WSHandler) Connect(c echo.Context) error {
	token := middleware.BearerToken(c)
	if token == "" {
		token = c.QueryParam("token")
	}
	if token == "" {
		h.security.AuthFailure(c.RealIP(), c.Path(), "missing websocket token")
		return response.Unauthorized(c, "missing session token")
	}

	user, err := h.sessions.Resolve(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			h.security.AuthFailure(c.RealIP(), c.Path(), "invalid websocket session")
		}
		return response.Error(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error
		return nil
	}

	h.hub.Serve(conn, user)
	return nil
}
