//go:build integration

package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresStoreTestSuite runs the store against a real PostgreSQL
type PostgresStoreTestSuite struct {
	suite.Suite
	container testcontainers.Container
	db        *gorm.DB
	store     Store
}

// SetupSuite starts PostgreSQL container and initializes database
func (s *PostgresStoreTestSuite) SetupSuite() {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "mailguard_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(ctx)
	require.NoError(s.T(), err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(s.T(), err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=mailguard_test sslmode=disable",
		host, port.Port())

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)
	s.db = db

	err = db.AutoMigrate(&models.User{}, &models.Email{}, &models.ActivityLog{})
	require.NoError(s.T(), err)

	s.store = NewStore(db)
}

// TearDownSuite stops the PostgreSQL container
func (s *PostgresStoreTestSuite) TearDownSuite() {
	if s.container != nil {
		s.container.Terminate(context.Background())
	}
}

// SetupTest cleans up data before each test
func (s *PostgresStoreTestSuite) SetupTest() {
	s.db.Exec("TRUNCATE TABLE activity_logs, emails, users RESTART IDENTITY CASCADE")
}

func TestPostgresStoreTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreTestSuite))
}

func (s *PostgresStoreTestSuite) TestUser_DuplicateEmail() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.Users().Create(ctx, &models.User{ID: "u-1", Email: "dup@x.com", AccessCodeHash: "h", Role: models.RoleUser}))

	err := s.store.Users().Create(ctx, &models.User{ID: "u-2", Email: "Dup@X.com", AccessCodeHash: "h", Role: models.RoleUser})

	assert.ErrorIs(s.T(), err, ErrDuplicateEntry)
}

func (s *PostgresStoreTestSuite) TestEmail_StatsAndViews() {
	ctx := context.Background()
	emails := []models.Email{
		*newTestEmail(1, "ext@evil.net", "alice@x.com", models.DirectionReceived, 95, models.StatusBlockedAdminReview),
		*newTestEmail(2, "ext@ok.com", "alice@x.com", models.DirectionReceived, 30, models.StatusPending),
		*newTestEmail(3, "ext@evil.net", "bob@x.com", models.DirectionReceived, 80, models.StatusRejectedByAdmin),
	}
	require.NoError(s.T(), s.store.Emails().CreateBatch(ctx, emails))

	stats, err := s.store.Emails().Stats(ctx, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3), stats.TotalMails)
	assert.Equal(s.T(), int64(2), stats.HighRiskMails)
	assert.Equal(s.T(), int64(1), stats.ThreatsBlocked)

	_, total, err := s.store.Emails().List(ctx, EmailFilter{Owner: "alice@x.com", View: models.ViewAdminPanel})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), total)
}

// Concurrent conditional updates of the same row: exactly one wins
func (s *PostgresStoreTestSuite) TestEmail_ConcurrentTransitionSingleWinner() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.Emails().Create(ctx,
		newTestEmail(1, "ext@evil.net", "alice@x.com", models.DirectionReceived, 95, models.StatusBlockedAdminReview)))

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.store.Transaction(ctx, func(tx Store) error {
				if err := tx.Emails().UpdateStatus(ctx, "mail-001", models.StatusBlockedAdminReview, models.StatusApprovedByAdmin); err != nil {
					return err
				}
				return tx.Logs().Append(ctx, &models.ActivityLog{ActorID: "admin", Action: "Status Update", Timestamp: time.Now()})
			})
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(s.T(), err, ErrStatusConflict)
			conflicts++
		}
	}
	assert.Equal(s.T(), 1, ok)
	assert.Equal(s.T(), workers-1, conflicts)

	logs, _ := s.store.Logs().Count(ctx)
	assert.Equal(s.T(), int64(1), logs)
}
