// Package mocks provides testify mocks of the service interfaces for handler tests.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/repository"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/services"
)

// MockDirectoryService implements services.DirectoryService
type MockDirectoryService struct {
	mock.Mock
}

func (m *MockDirectoryService) user(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// Provision creates a user
func (m *MockDirectoryService) Provision(ctx context.Context, actorID string, req services.ProvisionRequest) (*models.User, error) {
	return m.user(m.Called(ctx, actorID, req))
}

// SetRole assigns a role
func (m *MockDirectoryService) SetRole(ctx context.Context, actorID, userID string, role models.Role) (*models.User, error) {
	return m.user(m.Called(ctx, actorID, userID, role))
}

// ToggleRole flips a role
func (m *MockDirectoryService) ToggleRole(ctx context.Context, actorID, userID string) (*models.User, error) {
	return m.user(m.Called(ctx, actorID, userID))
}

// Authenticate checks credentials
func (m *MockDirectoryService) Authenticate(ctx context.Context, email, accessCode string) (*models.User, error) {
	return m.user(m.Called(ctx, email, accessCode))
}

// Get retrieves a user by ID
func (m *MockDirectoryService) Get(ctx context.Context, userID string) (*models.User, error) {
	return m.user(m.Called(ctx, userID))
}

// GetByEmail retrieves a user by email
func (m *MockDirectoryService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.user(m.Called(ctx, email))
}

// List returns all users
func (m *MockDirectoryService) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

// Count returns the number of users
func (m *MockDirectoryService) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockSessionService implements services.SessionService
type MockSessionService struct {
	mock.Mock
}

// Login authenticates and issues a token
func (m *MockSessionService) Login(ctx context.Context, email, accessCode string) (*services.LoginResult, error) {
	args := m.Called(ctx, email, accessCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoginResult), args.Error(1)
}

// Logout revokes a token
func (m *MockSessionService) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// Resolve maps a token to a user
func (m *MockSessionService) Resolve(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockMailService implements services.MailService
type MockMailService struct {
	mock.Mock
}

func (m *MockMailService) email(args mock.Arguments) (*models.Email, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Email), args.Error(1)
}

// Compose scores and stores an outgoing message
func (m *MockMailService) Compose(ctx context.Context, actorID string, req services.ComposeRequest) (*models.Email, error) {
	return m.email(m.Called(ctx, actorID, req))
}

// Receive scores and stores an inbound message
func (m *MockMailService) Receive(ctx context.Context, msg services.InboundMessage) (*models.Email, error) {
	return m.email(m.Called(ctx, msg))
}

// SimulateAttack delivers the canned phishing message
func (m *MockMailService) SimulateAttack(ctx context.Context, actorID string) (*models.Email, error) {
	return m.email(m.Called(ctx, actorID))
}

// Transition changes a processing status
func (m *MockMailService) Transition(ctx context.Context, actorID, emailID string, target models.ProcessingStatus) (*models.Email, error) {
	return m.email(m.Called(ctx, actorID, emailID, target))
}

// AllowedTransitions lists permitted targets
func (m *MockMailService) AllowedTransitions(ctx context.Context, actorID, emailID string) ([]models.ProcessingStatus, error) {
	args := m.Called(ctx, actorID, emailID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProcessingStatus), args.Error(1)
}

// Get returns a visible message
func (m *MockMailService) Get(ctx context.Context, actorID, emailID string) (*models.Email, error) {
	return m.email(m.Called(ctx, actorID, emailID))
}

// List returns a page of a view
func (m *MockMailService) List(ctx context.Context, actorID string, view models.MailView, limit, offset int) ([]models.Email, int64, error) {
	args := m.Called(ctx, actorID, view, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Email), args.Get(1).(int64), args.Error(2)
}

// Stats summarizes visible mail
func (m *MockMailService) Stats(ctx context.Context, actorID string) (*models.EmailStats, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailStats), args.Error(1)
}

// MockAuditTrail implements services.AuditTrail
type MockAuditTrail struct {
	mock.Mock
}

// Record appends an entry outside a transaction
func (m *MockAuditTrail) Record(ctx context.Context, actorID, action, details string) *models.ActivityLog {
	args := m.Called(ctx, actorID, action, details)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*models.ActivityLog)
}

// RecordTx appends an entry inside tx
func (m *MockAuditTrail) RecordTx(ctx context.Context, tx repository.Store, actorID, action, details string) (*models.ActivityLog, error) {
	args := m.Called(ctx, tx, actorID, action, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActivityLog), args.Error(1)
}

// List returns entries newest first
func (m *MockAuditTrail) List(ctx context.Context, limit, offset int) ([]models.ActivityLog, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.ActivityLog), args.Get(1).(int64), args.Error(2)
}

var (
	_ services.DirectoryService = (*MockDirectoryService)(nil)
	_ services.SessionService   = (*MockSessionService)(nil)
	_ services.MailService      = (*MockMailService)(nil)
	_ services.AuditTrail       = (*MockAuditTrail)(nil)
)
