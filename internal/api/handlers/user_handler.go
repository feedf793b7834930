package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/response"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/services"
)

// UserHandler handles directory administration
type UserHandler struct {
	directory services.DirectoryService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(directory services.DirectoryService) *UserHandler {
	return &UserHandler{directory: directory}
}

// CreateUserRequest represents the request body for provisioning a user
type CreateUserRequest struct {
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	AccessCode  string      `json:"access_code"`
	Role        models.Role `json:"role"`
	Avatar      string      `json:"avatar"`
}

// SetRoleRequest represents the request body for a role change
type SetRoleRequest struct {
	Role models.Role `json:"role"`
}

// List handles GET /api/users
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.directory.List(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, users)
}

// Create handles POST /api/users
func (h *UserHandler) Create(c echo.Context) error {
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if strings.TrimSpace(req.Email) == "" {
		return response.BadRequest(c, "email is required")
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}

	user, err := h.directory.Provision(c.Request().Context(), middleware.CurrentUser(c).ID, services.ProvisionRequest{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		AccessCode:  req.AccessCode,
		Role:        models.Role(strings.ToUpper(string(req.Role))),
		Avatar:      req.Avatar,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, user)
}

// SetRole handles PUT /api/users/:id/role
func (h *UserHandler) SetRole(c echo.Context) error {
	var req SetRoleRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.Role == "" {
		return response.BadRequest(c, "role is required")
	}

	user, err := h.directory.SetRole(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("id"),
		models.Role(strings.ToUpper(string(req.Role))))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

// ToggleRole handles POST /api/users/:id/toggle-role
func (h *UserHandler) ToggleRole(c echo.Context) error {
	user, err := h.directory.ToggleRole(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}
