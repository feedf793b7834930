package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/response"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/services"
)

// AuthHandler handles login, logout and the current identity
type AuthHandler struct {
	sessions services.SessionService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(sessions services.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// LoginRequest represents the request body for a login
type LoginRequest struct {
	Email      string `json:"email"`
	AccessCode string `json:"access_code"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if strings.TrimSpace(req.Email) == "" || req.AccessCode == "" {
		return response.BadRequest(c, "email and access_code are required")
	}

	result, err := h.sessions.Login(c.Request().Context(), req.Email, req.AccessCode)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.sessions.Logout(c.Request().Context(), middleware.CurrentToken(c)); err != nil {
		return response.Error(c, err)
	}
	return response.SuccessWithMessage(c, nil, "Session terminated")
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	return response.Success(c, middleware.CurrentUser(c))
}
