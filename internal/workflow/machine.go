// Package workflow holds the processing-status state machine for scored mail.
// It is pure: callers load the current state, ask Validate, and persist.
package workflow

import (
	apperrors "github.com/welldanyogia/webrana-mailguard-backend/internal/errors"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/risk"
)

// rule is one legal edge of the machine
type rule struct {
	role  models.Role
	from  models.ProcessingStatus
	to    models.ProcessingStatus
	guard func(level models.ThreatLevel) bool
	why   string
}

var rules = []rule{
	{
		role:  models.RoleUser,
		from:  models.StatusPending,
		to:    models.StatusAccepted,
		guard: func(level models.ThreatLevel) bool { return !level.RequiresAdmin() },
		why:   "high and critical mail must be released by an admin",
	},
	{role: models.RoleUser, from: models.StatusPending, to: models.StatusRejected},
	{role: models.RoleAdmin, from: models.StatusBlockedAdminReview, to: models.StatusApprovedByAdmin},
	{role: models.RoleAdmin, from: models.StatusBlockedAdminReview, to: models.StatusRejectedByAdmin},
}

// InitialStatus returns the status a new message is created with.
// Received mail starts pending unless it is blocked; mail the user
// originates needs no recipient action and starts accepted.
func InitialStatus(direction models.Direction, score float64) models.ProcessingStatus {
	if risk.ShouldBlock(score) {
		return models.StatusBlockedAdminReview
	}
	if direction == models.DirectionSent {
		return models.StatusAccepted
	}
	return models.StatusPending
}

// Validate checks whether role may move a message at level from one status to another.
// It returns a *errors.TransitionError (wrapping ErrIllegalTransition) when not.
func Validate(role models.Role, from, to models.ProcessingStatus, level models.ThreatLevel) error {
	if !to.Valid() {
		return reject(role, from, to, "unknown target status")
	}
	if from.IsTerminal() {
		return reject(role, from, to, "status is final")
	}
	for _, r := range rules {
		if r.role != role || r.from != from || r.to != to {
			continue
		}
		if r.guard != nil && !r.guard(level) {
			return reject(role, from, to, r.why)
		}
		return nil
	}
	return reject(role, from, to, "not permitted for this role")
}

// AllowedTargets lists the statuses role may move a message to right now
func AllowedTargets(role models.Role, from models.ProcessingStatus, level models.ThreatLevel) []models.ProcessingStatus {
	targets := make([]models.ProcessingStatus, 0, 2)
	for _, r := range rules {
		if r.role == role && r.from == from && (r.guard == nil || r.guard(level)) {
			targets = append(targets, r.to)
		}
	}
	return targets
}

func reject(role models.Role, from, to models.ProcessingStatus, reason string) error {
	return apperrors.NewTransitionError(string(from), string(to), string(role), reason)
}
