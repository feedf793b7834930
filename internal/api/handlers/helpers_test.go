package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/response"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
)

var (
	adminUser = &models.User{ID: "admin-001", Email: "cavid@gmail.com", Role: models.RoleAdmin, DisplayName: "Cavid Admin"}
	plainUser = &models.User{ID: "u-1", Email: "user1@company.com", Role: models.RoleUser, DisplayName: "Alex Thompson"}
)

// newContext builds an echo context; a non-nil user is set as the session identity
func newContext(e *echo.Echo, method, path, body string, user *models.User) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set(middleware.ContextKeyUser, user)
		c.Set(middleware.ContextKeyToken, "token-"+user.ID)
	}
	return c, rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorResponse {
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func testEmail(id string, status models.ProcessingStatus) *models.Email {
	return &models.Email{
		ID:               id,
		Sender:           "hr@enterprise.com",
		Recipient:        "user1@company.com",
		Subject:          "Weekly Sync Meeting",
		Direction:        models.DirectionReceived,
		RiskScore:        12,
		ThreatLevel:      models.ThreatLow,
		Suggestions:      []string{},
		ProcessingStatus: status,
		Timestamp:        time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}
