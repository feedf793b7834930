package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"gorm.io/gorm"
)

// UserRepositoryTestSuite is the test suite for UserRepository
type UserRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo UserRepository
}

// SetupSuite runs once before all tests
func (s *UserRepositoryTestSuite) SetupSuite() {
	s.db = openTestDB(s.T())
	s.repo = NewUserRepository(s.db)
}

// TearDownSuite runs once after all tests
func (s *UserRepositoryTestSuite) TearDownSuite() {
	closeTestDB(s.db)
}

// SetupTest runs before each test - clean up data
func (s *UserRepositoryTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM users")
}

// TestUserRepositoryTestSuite runs the test suite
func TestUserRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(UserRepositoryTestSuite))
}

func (s *UserRepositoryTestSuite) createUser(id, email string, role models.Role) *models.User {
	user := &models.User{ID: id, Email: email, AccessCodeHash: "hash", Role: role, DisplayName: id}
	require.NoError(s.T(), s.repo.Create(context.Background(), user))
	return user
}

// ==================== Create Tests ====================

func (s *UserRepositoryTestSuite) TestCreate_Success() {
	// Arrange
	user := &models.User{ID: "u-1", Email: "  Alice@Example.COM ", AccessCodeHash: "hash", Role: models.RoleUser}

	// Act
	err := s.repo.Create(context.Background(), user)

	// Assert
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), "alice@example.com", user.Email)
	assert.NotZero(s.T(), user.CreatedAt)
}

func (s *UserRepositoryTestSuite) TestCreate_DuplicateEmailIgnoresCase() {
	// Arrange
	s.createUser("u-1", "dup@x.com", models.RoleUser)

	// Act
	err := s.repo.Create(context.Background(), &models.User{ID: "u-2", Email: "DUP@x.com", AccessCodeHash: "hash", Role: models.RoleUser})

	// Assert
	assert.ErrorIs(s.T(), err, ErrDuplicateEntry)
	count, _ := s.repo.Count(context.Background())
	assert.Equal(s.T(), int64(1), count)
}

// ==================== Get Tests ====================

func (s *UserRepositoryTestSuite) TestGetByID_Found() {
	s.createUser("u-1", "a@x.com", models.RoleAdmin)

	user, err := s.repo.GetByID(context.Background(), "u-1")

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), "a@x.com", user.Email)
	assert.True(s.T(), user.IsAdmin())
}

func (s *UserRepositoryTestSuite) TestGetByID_NotFound() {
	user, err := s.repo.GetByID(context.Background(), "missing")

	assert.ErrorIs(s.T(), err, ErrNotFound)
	assert.Nil(s.T(), user)
}

func (s *UserRepositoryTestSuite) TestGetByEmail_IgnoresCase() {
	s.createUser("u-1", "mixed@x.com", models.RoleUser)

	user, err := s.repo.GetByEmail(context.Background(), "MIXED@X.com")

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), "u-1", user.ID)
}

func (s *UserRepositoryTestSuite) TestGetByEmail_NotFound() {
	_, err := s.repo.GetByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

// ==================== List / UpdateRole Tests ====================

func (s *UserRepositoryTestSuite) TestList() {
	s.createUser("u-1", "a@x.com", models.RoleAdmin)
	s.createUser("u-2", "b@x.com", models.RoleUser)

	users, err := s.repo.List(context.Background())

	assert.NoError(s.T(), err)
	assert.Len(s.T(), users, 2)
}

func (s *UserRepositoryTestSuite) TestUpdateRole_Success() {
	s.createUser("u-1", "a@x.com", models.RoleUser)

	err := s.repo.UpdateRole(context.Background(), "u-1", models.RoleAdmin)
	require.NoError(s.T(), err)

	user, _ := s.repo.GetByID(context.Background(), "u-1")
	assert.Equal(s.T(), models.RoleAdmin, user.Role)
}

func (s *UserRepositoryTestSuite) TestUpdateRole_NotFound() {
	err := s.repo.UpdateRole(context.Background(), "missing", models.RoleAdmin)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}
