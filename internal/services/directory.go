package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	apperrors "github.com/welldanyogia/webrana-mailguard-backend/internal/errors"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/logger"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/repository"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/validator"
	"golang.org/x/crypto/bcrypt"
)

// Access code limits. bcrypt ignores input past 72 bytes.
const (
	MinAccessCodeLength = 6
	MaxAccessCodeLength = 72
)

// ProvisionRequest describes a new directory identity
type ProvisionRequest struct {
	// ID is optional; a UUID is assigned when empty
	ID          string
	Email       string
	DisplayName string
	AccessCode  string
	Role        models.Role
	Avatar      string
}

// DirectoryConfig holds configuration for the directory service
type DirectoryConfig struct {
	// BcryptCost defaults to bcrypt.DefaultCost
	BcryptCost int
	Security   *logger.SecurityLogger
	// Lock serializes writes with the other services; a private lock is used when nil
	Lock *sync.Mutex
	// OnRoleChange is called after a committed role change
	OnRoleChange func(userID string, role models.Role)
}

// DirectoryService defines the user and role registry
type DirectoryService interface {
	// Provision creates a user. actorID must be an admin or models.SystemActor.
	Provision(ctx context.Context, actorID string, req ProvisionRequest) (*models.User, error)

	// SetRole assigns role to the user. Setting the current role again is a no-op.
	SetRole(ctx context.Context, actorID, userID string, role models.Role) (*models.User, error)

	// ToggleRole flips the user between ADMIN and USER
	ToggleRole(ctx context.Context, actorID, userID string) (*models.User, error)

	// Authenticate checks an email and access code pair. Every failure is ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, accessCode string) (*models.User, error)

	Get(ctx context.Context, userID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

// directoryService implements DirectoryService
type directoryService struct {
	store     repository.Store
	audit     AuditTrail
	security  *logger.SecurityLogger
	mu        *sync.Mutex
	cost      int
	dummyHash []byte
	onRole    func(userID string, role models.Role)
}

// NewDirectoryService creates a new DirectoryService instance
func NewDirectoryService(store repository.Store, audit AuditTrail, cfg DirectoryConfig) (DirectoryService, error) {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}

	// Unknown emails are compared against this hash so a miss costs the same as a wrong code
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("mailguard-unknown-identity"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare credential check: %w", err)
	}

	if cfg.Security == nil {
		cfg.Security = logger.NewSecurityLoggerFrom(nil)
	}
	if cfg.Lock == nil {
		cfg.Lock = &sync.Mutex{}
	}

	return &directoryService{
		store:     store,
		audit:     audit,
		security:  cfg.Security,
		mu:        cfg.Lock,
		cost:      cost,
		dummyHash: dummyHash,
		onRole:    cfg.OnRoleChange,
	}, nil
}

// Provision validates and stores a new identity, then records "User Created"
func (s *directoryService) Provision(ctx context.Context, actorID string, req ProvisionRequest) (*models.User, error) {
	email := validator.NormalizeEmail(req.Email)
	if err := validator.ValidateEmail(email); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, fmt.Sprintf("email: %v", err), apperrors.CodeInvalidInput)
	}
	if utf8.RuneCountInString(req.AccessCode) < MinAccessCodeLength {
		return nil, fmt.Errorf("access code must be at least %d characters: %w", MinAccessCodeLength, apperrors.ErrWeakCredential)
	}
	if len(req.AccessCode) > MaxAccessCodeLength {
		return nil, fmt.Errorf("access code must be at most %d bytes: %w", MaxAccessCodeLength, apperrors.ErrInvalidInput)
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q: %w", role, apperrors.ErrInvalidInput)
	}

	displayName := validator.SanitizeString(req.DisplayName, validator.MaxDisplayNameLength)
	if displayName == "" {
		displayName = email[:strings.Index(email, "@")]
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	avatar := req.Avatar
	if avatar == "" {
		avatar = fmt.Sprintf("https://picsum.photos/seed/%s/200", id)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.AccessCode), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash access code: %w", err)
	}

	user := &models.User{
		ID:             id,
		Email:          email,
		AccessCodeHash: string(hash),
		Role:           role,
		DisplayName:    displayName,
		Avatar:         avatar,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		actor, err := requireAdmin(ctx, tx, actorID)
		if err != nil {
			return err
		}

		if _, err := tx.Users().GetByEmail(ctx, email); err == nil {
			return fmt.Errorf("user with email '%s' already exists: %w", email, apperrors.ErrDuplicateIdentity)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEntry) {
				return fmt.Errorf("user '%s' already exists: %w", email, apperrors.ErrDuplicateIdentity)
			}
			return err
		}

		_, err = s.audit.RecordTx(ctx, tx, actor, ActionUserCreated,
			fmt.Sprintf("Provisioned %s as %s", user.Email, user.Role))
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SetRole assigns role to userID
func (s *directoryService) SetRole(ctx context.Context, actorID, userID string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q: %w", role, apperrors.ErrInvalidInput)
	}
	return s.changeRole(ctx, actorID, userID, func(models.Role) models.Role { return role })
}

// ToggleRole flips userID between ADMIN and USER
func (s *directoryService) ToggleRole(ctx context.Context, actorID, userID string) (*models.User, error) {
	return s.changeRole(ctx, actorID, userID, models.Role.Toggled)
}

func (s *directoryService) changeRole(ctx context.Context, actorID, userID string, next func(models.Role) models.Role) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		target   *models.User
		previous models.Role
		actor    string
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		actor, err = requireAdmin(ctx, tx, actorID)
		if err != nil {
			return err
		}

		target, err = tx.Users().GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("user '%s': %w", userID, apperrors.ErrUnknownIdentity)
			}
			return err
		}

		previous = target.Role
		role := next(previous)
		if role == previous {
			return nil
		}

		if err := tx.Users().UpdateRole(ctx, target.ID, role); err != nil {
			return err
		}
		target.Role = role

		_, err = s.audit.RecordTx(ctx, tx, actor, ActionPrivilegeUpdate,
			fmt.Sprintf("Changed %s to %s", target.Email, role))
		return err
	})
	if err != nil {
		return nil, err
	}

	if target.Role != previous {
		s.security.PrivilegeChange(actor, target.ID, string(previous), string(target.Role))
		if s.onRole != nil {
			s.onRole(target.ID, target.Role)
		}
	}
	return target, nil
}

// Authenticate returns the user whose email (any case) and access code (exact) match
func (s *directoryService) Authenticate(ctx context.Context, email, accessCode string) (*models.User, error) {
	// Only case may differ; surrounding whitespace is not trimmed here.
	email = strings.ToLower(email)

	// bcrypt would silently truncate, so longer codes can never match exactly.
	if len(accessCode) > MaxAccessCodeLength {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(accessCode[:MaxAccessCodeLength]))
		s.security.LoginFailure(email, "access_code_too_long")
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up identity: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(accessCode))
		s.security.LoginFailure(email, "unknown_identity")
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.AccessCodeHash), []byte(accessCode)); err != nil {
		s.security.LoginFailure(email, "access_code_mismatch")
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

// Get retrieves a user by ID
func (s *directoryService) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user '%s': %w", userID, apperrors.ErrUnknownIdentity)
		}
		return nil, err
	}
	return user, nil
}

// GetByEmail retrieves a user by a normalized email address
func (s *directoryService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = validator.NormalizeEmail(email)
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user '%s': %w", email, apperrors.ErrUnknownIdentity)
		}
		return nil, err
	}
	return user, nil
}

// List returns all users
func (s *directoryService) List(ctx context.Context) ([]models.User, error) {
	return s.store.Users().List(ctx)
}

// Count returns the directory size
func (s *directoryService) Count(ctx context.Context) (int64, error) {
	return s.store.Users().Count(ctx)
}

// requireAdmin resolves actorID inside tx and returns the label used in audit
// entries. The system actor is always allowed.
func requireAdmin(ctx context.Context, tx repository.Store, actorID string) (string, error) {
	if actorID == models.SystemActor {
		return models.SystemActor, nil
	}
	actor, err := tx.Users().GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.ErrUnauthorized
		}
		return "", err
	}
	if !actor.IsAdmin() {
		return "", fmt.Errorf("%s may not manage the directory: %w", actor.Email, apperrors.ErrForbidden)
	}
	return actor.Email, nil
}
