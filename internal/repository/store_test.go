package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestStore_TransactionCommits(t *testing.T) {
	db := openTestDB(t)
	defer closeTestDB(db)
	store := NewStore(db)
	ctx := context.Background()

	err := store.Transaction(ctx, func(tx Store) error {
		if err := tx.Emails().Create(ctx, newTestEmail(1, "a@x.com", "b@x.com", models.DirectionSent, 5, models.StatusAccepted)); err != nil {
			return err
		}
		return tx.Logs().Append(ctx, &models.ActivityLog{ActorID: "u-1", Action: "Email Processed", Timestamp: time.Now()})
	})
	require.NoError(t, err)

	emails, _ := store.Emails().Count(ctx)
	logs, _ := store.Logs().Count(ctx)
	assert.Equal(t, int64(1), emails)
	assert.Equal(t, int64(1), logs)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	db := openTestDB(t)
	defer closeTestDB(db)
	store := NewStore(db)
	ctx := context.Background()
	require.NoError(t, store.Emails().Create(ctx, newTestEmail(1, "x@y.com", "a@x.com", models.DirectionReceived, 90, models.StatusBlockedAdminReview)))

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx Store) error {
		if err := tx.Emails().UpdateStatus(ctx, "mail-001", models.StatusBlockedAdminReview, models.StatusApprovedByAdmin); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	got, _ := store.Emails().GetByID(ctx, "mail-001")
	assert.Equal(t, models.StatusBlockedAdminReview, got.ProcessingStatus)
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, DriverName: "postgres"}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock, func() { sqlDB.Close() }
}

func TestUserRepository_DriverFailureIsWrapped(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(errors.New("connection reset"))

	_, err := NewUserRepository(db).GetByID(context.Background(), "u-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "failed to get user by ID")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailRepository_ListDriverFailure(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "emails"`).WillReturnError(errors.New("connection reset"))

	_, _, err := NewEmailRepository(db).List(context.Background(), EmailFilter{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count emails")
}
