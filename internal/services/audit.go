package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/repository"
)

// Audit actions
const (
	ActionSystemBoot      = "System Boot"
	ActionLoginSuccess    = "Login Success"
	ActionLogout          = "Logout"
	ActionEmailProcessed  = "Email Processed"
	ActionStatusUpdate    = "Status Update"
	ActionUserCreated     = "User Created"
	ActionPrivilegeUpdate = "Privilege Update"
)

// AuditTrail defines the append-only security event log
type AuditTrail interface {
	// Record appends an entry in its own unit of work. It never fails from the
	// caller's point of view; a storage error is logged.
	Record(ctx context.Context, actorID, action, details string) *models.ActivityLog

	// RecordTx appends an entry as part of the caller's transaction
	RecordTx(ctx context.Context, tx repository.Store, actorID, action, details string) (*models.ActivityLog, error)

	// List returns entries newest first
	List(ctx context.Context, limit, offset int) ([]models.ActivityLog, int64, error)
}

// AddressFunc produces the source address stamped on audit entries
type AddressFunc func() string

// SyntheticAddress returns a simulated client address of the form a.b.1.1
func SyntheticAddress() string {
	return fmt.Sprintf("%d.%d.1.1", rand.IntN(255), rand.IntN(255))
}

// auditTrail implements AuditTrail
type auditTrail struct {
	store   repository.Store
	logger  *slog.Logger
	address AddressFunc
	now     func() time.Time
}

// NewAuditTrail creates a new AuditTrail instance
func NewAuditTrail(store repository.Store, logger *slog.Logger, address AddressFunc) AuditTrail {
	if logger == nil {
		logger = slog.Default()
	}
	if address == nil {
		address = SyntheticAddress
	}
	return &auditTrail{
		store:   store,
		logger:  logger,
		address: address,
		now:     time.Now,
	}
}

func (a *auditTrail) newEntry(actorID, action, details string) *models.ActivityLog {
	if actorID == "" {
		actorID = models.SystemActor
	}
	return &models.ActivityLog{
		ActorID:       actorID,
		Action:        action,
		Details:       details,
		Timestamp:     a.now().UTC(),
		SourceAddress: a.address(),
	}
}

// Record appends an entry outside any caller transaction
func (a *auditTrail) Record(ctx context.Context, actorID, action, details string) *models.ActivityLog {
	entry := a.newEntry(actorID, action, details)
	if err := a.store.Logs().Append(ctx, entry); err != nil {
		a.logger.Error("failed to persist audit entry",
			slog.String("action", action),
			slog.String("actor_id", entry.ActorID),
			slog.Any("error", err))
	}
	return entry
}

// RecordTx appends an entry through tx
func (a *auditTrail) RecordTx(ctx context.Context, tx repository.Store, actorID, action, details string) (*models.ActivityLog, error) {
	entry := a.newEntry(actorID, action, details)
	if err := tx.Logs().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record %q: %w", action, err)
	}
	return entry, nil
}

// List returns entries newest first
func (a *auditTrail) List(ctx context.Context, limit, offset int) ([]models.ActivityLog, int64, error) {
	entries, total, err := a.store.Logs().List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activity logs: %w", err)
	}
	return entries, total, nil
}
