package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/response"
	apperrors "github.com/welldanyogia/webrana-mailguard-backend/internal/errors"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/services"
	"github.com/welldanyogia/webrana-mailguard-backend/tests/mocks"
)

// EmailHandlerTestSuite is the test suite for EmailHandler
type EmailHandlerTestSuite struct {
	suite.Suite
	echo     *echo.Echo
	handler  *EmailHandler
	mockMail *mocks.MockMailService
}

// SetupTest runs before each test
func (s *EmailHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.mockMail = new(mocks.MockMailService)
	s.handler = NewEmailHandler(s.mockMail)
}

// TearDownTest runs after each test
func (s *EmailHandlerTestSuite) TearDownTest() {
	s.mockMail.AssertExpectations(s.T())
}

// TestEmailHandlerTestSuite runs the test suite
func TestEmailHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(EmailHandlerTestSuite))
}

// ==================== List Tests ====================

func (s *EmailHandlerTestSuite) TestList_DefaultPagination() {
	// Arrange
	c, rec := newContext(s.echo, http.MethodGet, "/api/emails?view=Inbox", "", plainUser)
	emails := []models.Email{*testEmail("e-1", models.StatusPending)}
	s.mockMail.On("List", mock.Anything, "u-1", models.ViewInbox, 50, 0).Return(emails, int64(1), nil)

	// Act
	err := s.handler.List(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	var resp response.PaginatedResponse
	s.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(int64(1), resp.Meta.Total)
	s.Equal(50, resp.Meta.Limit)
}

func (s *EmailHandlerTestSuite) TestList_ClampsPagination() {
	c, _ := newContext(s.echo, http.MethodGet, "/api/emails?limit=5000&offset=-3&view=risk_alerts", "", plainUser)
	s.mockMail.On("List", mock.Anything, "u-1", models.ViewRiskAlerts, 200, 0).Return([]models.Email{}, int64(0), nil)

	err := s.handler.List(c)

	s.NoError(err)
}

func (s *EmailHandlerTestSuite) TestList_AdminPanelForbiddenForUser() {
	c, rec := newContext(s.echo, http.MethodGet, "/api/emails?view=admin_panel", "", plainUser)
	s.mockMail.On("List", mock.Anything, "u-1", models.ViewAdminPanel, 50, 0).
		Return(nil, int64(0), fmt.Errorf("admin panel: %w", apperrors.ErrForbidden))

	err := s.handler.List(c)

	s.NoError(err)
	s.Equal(http.StatusForbidden, rec.Code)
}

// ==================== Get Tests ====================

func (s *EmailHandlerTestSuite) TestGet_IncludesAllowedTransitions() {
	// Arrange
	c, rec := newContext(s.echo, http.MethodGet, "/api/emails/e-1", "", plainUser)
	c.SetParamNames("id")
	c.SetParamValues("e-1")
	s.mockMail.On("Get", mock.Anything, "u-1", "e-1").Return(testEmail("e-1", models.StatusPending), nil)
	s.mockMail.On("AllowedTransitions", mock.Anything, "u-1", "e-1").
		Return([]models.ProcessingStatus{models.StatusAccepted, models.StatusRejected}, nil)

	// Act
	err := s.handler.Get(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"id":"e-1"`)
	s.Contains(rec.Body.String(), `"allowed_transitions":["accepted","rejected"]`)
}

func (s *EmailHandlerTestSuite) TestGet_NotFound() {
	c, rec := newContext(s.echo, http.MethodGet, "/api/emails/e-9", "", plainUser)
	c.SetParamNames("id")
	c.SetParamValues("e-9")
	s.mockMail.On("Get", mock.Anything, "u-1", "e-9").
		Return(nil, fmt.Errorf("email 'e-9': %w", apperrors.ErrEmailNotFound))

	err := s.handler.Get(c)

	s.NoError(err)
	s.Equal(http.StatusNotFound, rec.Code)
}

// ==================== Compose Tests ====================

func (s *EmailHandlerTestSuite) TestCompose_Created() {
	// Arrange
	body := `{"recipient": "partner@example.com", "subject": "Contract", "body": "Signed", "attachment_name": "contract.pdf"}`
	c, rec := newContext(s.echo, http.MethodPost, "/api/emails", body, plainUser)
	sent := testEmail("e-2", models.StatusAccepted)
	sent.Direction = models.DirectionSent
	s.mockMail.On("Compose", mock.Anything, "u-1", services.ComposeRequest{
		Recipient:      "partner@example.com",
		Subject:        "Contract",
		Body:           "Signed",
		AttachmentName: "contract.pdf",
	}).Return(sent, nil)

	// Act
	err := s.handler.Compose(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusCreated, rec.Code)
	s.Contains(rec.Body.String(), `"processing_status":"accepted"`)
}

func (s *EmailHandlerTestSuite) TestCompose_MissingRecipient() {
	c, rec := newContext(s.echo, http.MethodPost, "/api/emails", `{"subject": "hi"}`, plainUser)

	err := s.handler.Compose(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *EmailHandlerTestSuite) TestCompose_ServiceValidation() {
	c, rec := newContext(s.echo, http.MethodPost, "/api/emails", `{"recipient": "a@b.com"}`, plainUser)
	s.mockMail.On("Compose", mock.Anything, "u-1", mock.AnythingOfType("services.ComposeRequest")).
		Return(nil, fmt.Errorf("subject or body is required: %w", apperrors.ErrInvalidInput))

	err := s.handler.Compose(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal(apperrors.CodeInvalidInput, decodeError(s.T(), rec).Code)
}

// ==================== UpdateStatus Tests ====================

func (s *EmailHandlerTestSuite) TestUpdateStatus_Success() {
	// Arrange
	c, rec := newContext(s.echo, http.MethodPost, "/api/emails/e-1/status", `{"status": "accepted"}`, plainUser)
	c.SetParamNames("id")
	c.SetParamValues("e-1")
	s.mockMail.On("Transition", mock.Anything, "u-1", "e-1", models.StatusAccepted).
		Return(testEmail("e-1", models.StatusAccepted), nil)

	// Act
	err := s.handler.UpdateStatus(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"processing_status":"accepted"`)
}

func (s *EmailHandlerTestSuite) TestUpdateStatus_IllegalTransition() {
	// Arrange
	c, rec := newContext(s.echo, http.MethodPost, "/api/emails/e-1/status", `{"status": "approved_by_admin"}`, plainUser)
	c.SetParamNames("id")
	c.SetParamValues("e-1")
	s.mockMail.On("Transition", mock.Anything, "u-1", "e-1", models.StatusApprovedByAdmin).
		Return(nil, apperrors.NewTransitionError("blocked_admin_review", "approved_by_admin", "USER", "not permitted for this role"))

	// Act
	err := s.handler.UpdateStatus(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusConflict, rec.Code)
	var resp response.TransitionErrorResponse
	s.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(apperrors.CodeIllegalTransition, resp.Code)
	s.Equal("blocked_admin_review", resp.From)
}

func (s *EmailHandlerTestSuite) TestUpdateStatus_MissingStatus() {
	c, rec := newContext(s.echo, http.MethodPost, "/api/emails/e-1/status", `{}`, plainUser)

	err := s.handler.UpdateStatus(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
}

// ==================== SimulateAttack / Stats Tests ====================

func (s *EmailHandlerTestSuite) TestSimulateAttack_Created() {
	c, rec := newContext(s.echo, http.MethodPost, "/api/emails/simulate-attack", "", plainUser)
	attack := testEmail("e-atk", models.StatusBlockedAdminReview)
	attack.RiskScore = 94
	attack.ThreatLevel = models.ThreatCritical
	s.mockMail.On("SimulateAttack", mock.Anything, "u-1").Return(attack, nil)

	err := s.handler.SimulateAttack(c)

	s.NoError(err)
	s.Equal(http.StatusCreated, rec.Code)
	s.Contains(rec.Body.String(), `"threat_level":"Critical"`)
}

func (s *EmailHandlerTestSuite) TestStats() {
	c, rec := newContext(s.echo, http.MethodGet, "/api/stats", "", adminUser)
	s.mockMail.On("Stats", mock.Anything, "admin-001").Return(&models.EmailStats{
		TotalMails:  10,
		ActiveUsers: 7,
		AverageRisk: 31.5,
		SafetyIndex: 68.5,
	}, nil)

	err := s.handler.Stats(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"safety_index":68.5`)
}
