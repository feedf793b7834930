package services

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/welldanyogia/webrana-mailguard-backend/internal/errors"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/session"
)

// LoginResult is returned by a successful login
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// SessionService binds authenticated identities to bearer tokens
type SessionService interface {
	Login(ctx context.Context, email, accessCode string) (*LoginResult, error)
	Logout(ctx context.Context, token string) error
	// Resolve returns the current directory record for the token's identity.
	// The role is never taken from the session.
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// sessionService implements SessionService
type sessionService struct {
	directory DirectoryService
	sessions  session.Store
	audit     AuditTrail
}

// NewSessionService creates a new SessionService instance
func NewSessionService(directory DirectoryService, sessions session.Store, audit AuditTrail) SessionService {
	return &sessionService{
		directory: directory,
		sessions:  sessions,
		audit:     audit,
	}
}

// Login authenticates and issues a token
func (s *sessionService) Login(ctx context.Context, email, accessCode string) (*LoginResult, error) {
	user, err := s.directory.Authenticate(ctx, email, accessCode)
	if err != nil {
		return nil, err
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.audit.Record(ctx, user.Email, ActionLoginSuccess, fmt.Sprintf("Authenticated as %s", user.Role))
	return &LoginResult{Token: token, User: user}, nil
}

// Logout revokes the token and records the end of the session
func (s *sessionService) Logout(ctx context.Context, token string) error {
	user, err := s.Resolve(ctx, token)
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	s.audit.Record(ctx, user.Email, ActionLogout, "Session terminated")
	return nil
}

// Resolve maps a token to the identity's current record
func (s *sessionService) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperrors.ErrUnauthorized
	}

	userID, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	user, err := s.directory.Get(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			_ = s.sessions.Revoke(ctx, token)
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}
