package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/risk"
	"gorm.io/gorm"
)

// DefaultBatchSize is used by CreateBatch
const DefaultBatchSize = 100

// EmailFilter narrows an email listing.
// An empty Owner means every message is visible.
type EmailFilter struct {
	Owner  string
	View   models.MailView
	Limit  int
	Offset int
}

// EmailRepository defines the interface for scored mail data access
type EmailRepository interface {
	Create(ctx context.Context, email *models.Email) error
	CreateBatch(ctx context.Context, emails []models.Email) error
	GetByID(ctx context.Context, id string) (*models.Email, error)
	List(ctx context.Context, filter EmailFilter) ([]models.Email, int64, error)
	UpdateStatus(ctx context.Context, id string, from, to models.ProcessingStatus) error
	Stats(ctx context.Context, owner string) (*models.EmailStats, error)
	Count(ctx context.Context) (int64, error)
}

// emailRepository implements EmailRepository using GORM
type emailRepository struct {
	db *gorm.DB
}

// NewEmailRepository creates a new EmailRepository instance
func NewEmailRepository(db *gorm.DB) EmailRepository {
	return &emailRepository{db: db}
}

// Create inserts a scored email
func (r *emailRepository) Create(ctx context.Context, email *models.Email) error {
	result := r.db.WithContext(ctx).Create(email)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("email '%s' already exists: %w", email.ID, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create email: %w", result.Error)
	}
	return nil
}

// CreateBatch inserts many emails in one transaction
func (r *emailRepository) CreateBatch(ctx context.Context, emails []models.Email) error {
	if len(emails) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).CreateInBatches(emails, DefaultBatchSize)
	if result.Error != nil {
		return fmt.Errorf("failed to create emails: %w", result.Error)
	}
	return nil
}

// GetByID retrieves an email by its ID
func (r *emailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	var email models.Email
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get email by ID: %w", result.Error)
	}
	return &email, nil
}

// List retrieves emails matching the filter, newest first, with the total match count
func (r *emailRepository) List(ctx context.Context, filter EmailFilter) ([]models.Email, int64, error) {
	countQuery, err := r.filtered(ctx, filter.Owner, filter.View)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count emails: %w", err)
	}

	query, _ := r.filtered(ctx, filter.Owner, filter.View)
	query = query.Order("timestamp DESC, id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var emails []models.Email
	if err := query.Find(&emails).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list emails: %w", err)
	}
	return emails, total, nil
}

// UpdateStatus moves an email from one status to another. The update only
// applies while the row is still in the expected status.
func (r *emailRepository) UpdateStatus(ctx context.Context, id string, from, to models.ProcessingStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("id = ? AND processing_status = ?", id, from).
		Update("processing_status", to)
	if result.Error != nil {
		return fmt.Errorf("failed to update email status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Email{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrStatusConflict
	}
	return nil
}

// Stats aggregates mail visible to owner. An empty owner covers all mail.
// ActiveUsers and SafetyIndex are left for the caller.
func (r *emailRepository) Stats(ctx context.Context, owner string) (*models.EmailStats, error) {
	var row struct {
		Total          int64
		HighRisk       int64
		ThreatsBlocked int64
		AverageRisk    float64
	}

	query, err := r.filtered(ctx, owner, models.ViewAll)
	if err != nil {
		return nil, err
	}
	result := query.Select(
		"COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN risk_score > ? THEN 1 ELSE 0 END), 0) AS high_risk, "+
			"COALESCE(SUM(CASE WHEN processing_status = ? THEN 1 ELSE 0 END), 0) AS threats_blocked, "+
			"COALESCE(AVG(risk_score), 0) AS average_risk",
		risk.HighThreshold, models.StatusRejectedByAdmin,
	).Scan(&row)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to aggregate email stats: %w", result.Error)
	}

	return &models.EmailStats{
		TotalMails:     row.Total,
		HighRiskMails:  row.HighRisk,
		ThreatsBlocked: row.ThreatsBlocked,
		AverageRisk:    row.AverageRisk,
	}, nil
}

// Count returns the number of stored emails
func (r *emailRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Email{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count emails: %w", err)
	}
	return count, nil
}

// filtered applies ownership and view selection
func (r *emailRepository) filtered(ctx context.Context, owner string, view models.MailView) (*gorm.DB, error) {
	query := r.db.WithContext(ctx).Model(&models.Email{})

	if owner != "" {
		owner = strings.ToLower(strings.TrimSpace(owner))
		query = query.Where("(LOWER(sender) = ? OR LOWER(recipient) = ?)", owner, owner)
	}

	switch view {
	case models.ViewAll, "":
	case models.ViewInbox:
		query = query.Where("direction = ?", models.DirectionReceived)
	case models.ViewSent:
		query = query.Where("direction = ?", models.DirectionSent)
	case models.ViewRiskAlerts:
		query = query.Where("risk_score > ?", risk.MediumThreshold)
	case models.ViewAdminPanel:
		query = query.Where("processing_status = ?", models.StatusBlockedAdminReview)
	default:
		return nil, fmt.Errorf("unknown mail view '%s': %w", view, ErrInvalidInput)
	}
	return query, nil
}
