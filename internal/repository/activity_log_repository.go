package repository

import (
	"context"
	"fmt"

	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"gorm.io/gorm"
)

// ActivityLogRepository defines the interface for the append-only audit log.
// There is deliberately no update or delete.
type ActivityLogRepository interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, limit, offset int) ([]models.ActivityLog, int64, error)
	Count(ctx context.Context) (int64, error)
}

// activityLogRepository implements ActivityLogRepository using GORM
type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository creates a new ActivityLogRepository instance
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

// Append inserts an entry; the ID is assigned by the database sequence
func (r *activityLogRepository) Append(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID != 0 {
		return fmt.Errorf("activity log entries are append-only: %w", ErrInvalidInput)
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append activity log: %w", err)
	}
	return nil
}

// List returns entries newest first with the total count
func (r *activityLogRepository) List(ctx context.Context, limit, offset int) ([]models.ActivityLog, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count activity logs: %w", err)
	}

	var entries []models.ActivityLog
	query := r.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list activity logs: %w", err)
	}
	return entries, total, nil
}

// Count returns the number of entries
func (r *activityLogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count activity logs: %w", err)
	}
	return count, nil
}
