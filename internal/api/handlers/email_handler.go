package handlers

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/response"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/services"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/validator"
)

// EmailHandler handles mail HTTP requests
type EmailHandler struct {
	mail services.MailService
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(mail services.MailService) *EmailHandler {
	return &EmailHandler{mail: mail}
}

// UpdateStatusRequest represents the request body for a status change
type UpdateStatusRequest struct {
	Status models.ProcessingStatus `json:"status"`
}

// EmailDetail is a message with the moves available to the caller
type EmailDetail struct {
	*models.Email
	AllowedTransitions []models.ProcessingStatus `json:"allowed_transitions"`
}

// List handles GET /api/emails
func (h *EmailHandler) List(c echo.Context) error {
	user := middleware.CurrentUser(c)
	view := models.MailView(strings.ToLower(strings.TrimSpace(c.QueryParam("view"))))
	limit, offset := paginationParams(c)

	emails, total, err := h.mail.List(c.Request().Context(), user.ID, view, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, emails, total, limit, offset)
}

// Get handles GET /api/emails/:id
func (h *EmailHandler) Get(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id := c.Param("id")
	ctx := c.Request().Context()

	email, err := h.mail.Get(ctx, user.ID, id)
	if err != nil {
		return response.Error(c, err)
	}

	allowed, err := h.mail.AllowedTransitions(ctx, user.ID, id)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, EmailDetail{Email: email, AllowedTransitions: allowed})
}

// Compose handles POST /api/emails
func (h *EmailHandler) Compose(c echo.Context) error {
	var req services.ComposeRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if strings.TrimSpace(req.Recipient) == "" {
		return response.BadRequest(c, "recipient is required")
	}

	email, err := h.mail.Compose(c.Request().Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, email)
}

// UpdateStatus handles POST /api/emails/:id/status
func (h *EmailHandler) UpdateStatus(c echo.Context) error {
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.Status == "" {
		return response.BadRequest(c, "status is required")
	}

	email, err := h.mail.Transition(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("id"), req.Status)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, email)
}

// SimulateAttack handles POST /api/emails/simulate-attack
func (h *EmailHandler) SimulateAttack(c echo.Context) error {
	email, err := h.mail.SimulateAttack(c.Request().Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, email)
}

// Stats handles GET /api/stats
func (h *EmailHandler) Stats(c echo.Context) error {
	stats, err := h.mail.Stats(c.Request().Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, stats)
}

// paginationParams reads limit and offset, ignoring malformed values
func paginationParams(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return validator.ValidatePagination(limit, offset)
}
