package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens a migrated in-memory SQLite database pinned to one connection
func openTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.User{}, &models.Email{}, &models.ActivityLog{})
	require.NoError(t, err)
	return db
}

func closeTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEmail(n int, sender, recipient string, direction models.Direction, score float64, status models.ProcessingStatus) *models.Email {
	return &models.Email{
		ID:               fmt.Sprintf("mail-%03d", n),
		Sender:           sender,
		Recipient:        recipient,
		Subject:          fmt.Sprintf("Subject %d", n),
		Body:             "body",
		Direction:        direction,
		RiskScore:        score,
		ThreatLevel:      models.ThreatLow,
		RiskFactors:      models.RiskFactors{Content: score / 2},
		Analysis:         "analysis",
		Suggestions:      []string{"Check sender"},
		ProcessingStatus: status,
		Timestamp:        baseTime.Add(time.Duration(n) * time.Minute),
	}
}
