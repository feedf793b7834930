package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apperrors "github.com/welldanyogia/webrana-mailguard-backend/internal/errors"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/session"
)

func TestLogin_IssuesTokenAndAudits(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	before := env.logCount(t)

	result, err := env.sessions.Login(ctx, "alice@company.com", "alice123")

	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, aliceID, result.User.ID)
	assert.Equal(t, before+1, env.logCount(t))

	entries, _, _ := env.audit.List(ctx, 1, 0)
	assert.Equal(t, ActionLoginSuccess, entries[0].Action)
	assert.Equal(t, "Authenticated as USER", entries[0].Details)
	assert.Equal(t, "alice@company.com", entries[0].ActorID)
}

func TestLogin_FailureDoesNotMutate(t *testing.T) {
	env := newTestEnv(t, nil)
	before := env.logCount(t)

	result, err := env.sessions.Login(context.Background(), "alice@company.com", "nope-nope")

	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	assert.Nil(t, result)
	assert.Equal(t, before, env.logCount(t))
}

func TestResolve_RoleChangePropagatesImmediately(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	result, err := env.sessions.Login(ctx, "alice@company.com", "alice123")
	require.NoError(t, err)

	user, err := env.sessions.Resolve(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)

	_, err = env.directory.SetRole(ctx, adminID, aliceID, models.RoleAdmin)
	require.NoError(t, err)

	user, err = env.sessions.Resolve(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestLogout_RevokesAndAudits(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	result, err := env.sessions.Login(ctx, "bob@company.com", "bobby123")
	require.NoError(t, err)

	require.NoError(t, env.sessions.Logout(ctx, result.Token))

	_, err = env.sessions.Resolve(ctx, result.Token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	entries, _, _ := env.audit.List(ctx, 1, 0)
	assert.Equal(t, ActionLogout, entries[0].Action)
	assert.Equal(t, "Session terminated", entries[0].Details)
}

func TestResolve_EmptyOrUnknownToken(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.sessions.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = env.sessions.Resolve(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

// ==================== Mocked collaborators ====================

// MockDirectoryService is a mock implementation of DirectoryService
type MockDirectoryService struct {
	mock.Mock
}

func (m *MockDirectoryService) Provision(ctx context.Context, actorID string, req ProvisionRequest) (*models.User, error) {
	args := m.Called(ctx, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDirectoryService) SetRole(ctx context.Context, actorID, userID string, role models.Role) (*models.User, error) {
	args := m.Called(ctx, actorID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDirectoryService) ToggleRole(ctx context.Context, actorID, userID string) (*models.User, error) {
	args := m.Called(ctx, actorID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDirectoryService) Authenticate(ctx context.Context, email, accessCode string) (*models.User, error) {
	args := m.Called(ctx, email, accessCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDirectoryService) Get(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDirectoryService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDirectoryService) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockDirectoryService) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestResolve_DeletedIdentityRevokesSession(t *testing.T) {
	directory := new(MockDirectoryService)
	store := session.NewMemoryStore(time.Hour)
	svc := NewSessionService(directory, store, nil)
	ctx := context.Background()

	token, err := store.Create(ctx, "gone")
	require.NoError(t, err)
	directory.On("Get", mock.Anything, "gone").Return(nil, apperrors.ErrUnknownIdentity)

	_, err = svc.Resolve(ctx, token)

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, 0, store.Len())
	directory.AssertExpectations(t)
}

func TestResolve_DirectoryFailurePropagates(t *testing.T) {
	directory := new(MockDirectoryService)
	store := session.NewMemoryStore(time.Hour)
	svc := NewSessionService(directory, store, nil)
	ctx := context.Background()

	token, _ := store.Create(ctx, "u-1")
	directory.On("Get", mock.Anything, "u-1").Return(nil, errors.New("db down"))

	_, err := svc.Resolve(ctx, token)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, 1, store.Len())
}
