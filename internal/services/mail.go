package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/welldanyogia/webrana-mailguard-backend/internal/errors"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/logger"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/repository"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/risk"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/validator"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/workflow"
)

// Live event names
const (
	EventEmailCreated = "email.created"
	EventEmailUpdated = "email.updated"
)

// Notifier receives mail changes after they are committed
type Notifier interface {
	EmailChanged(event string, email *models.Email)
}

// Scorer produces a risk assessment. *risk.Evaluator implements it.
type Scorer interface {
	Evaluate(ctx context.Context, req risk.Request) risk.Assessment
}

// ComposeRequest is an outgoing message written by a user
type ComposeRequest struct {
	Recipient      string `json:"recipient"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AttachmentName string `json:"attachment_name,omitempty"`
}

// InboundMessage is a message delivered to a directory user from outside
type InboundMessage struct {
	Sender         string
	Recipient      string
	Subject        string
	Body           string
	AttachmentName string
}

// MailConfig holds configuration for the mail service
type MailConfig struct {
	Security *logger.SecurityLogger
	Notifier Notifier
	// Lock serializes writes with the other services; a private lock is used when nil
	Lock *sync.Mutex
}

// MailService owns scored mail and its processing-status lifecycle
type MailService interface {
	// Compose scores and stores a message sent by actorID
	Compose(ctx context.Context, actorID string, req ComposeRequest) (*models.Email, error)

	// Receive scores and stores a message for a directory user
	Receive(ctx context.Context, msg InboundMessage) (*models.Email, error)

	// SimulateAttack delivers a fixed critical phishing message to actorID
	SimulateAttack(ctx context.Context, actorID string) (*models.Email, error)

	// Transition moves a message to target if actorID's current role allows it
	Transition(ctx context.Context, actorID, emailID string, target models.ProcessingStatus) (*models.Email, error)

	// AllowedTransitions lists the statuses actorID may move the message to
	AllowedTransitions(ctx context.Context, actorID, emailID string) ([]models.ProcessingStatus, error)

	Get(ctx context.Context, actorID, emailID string) (*models.Email, error)
	List(ctx context.Context, actorID string, view models.MailView, limit, offset int) ([]models.Email, int64, error)
	Stats(ctx context.Context, actorID string) (*models.EmailStats, error)
}

// mailService implements MailService
type mailService struct {
	store     repository.Store
	directory DirectoryService
	scorer    Scorer
	audit     AuditTrail
	security  *logger.SecurityLogger
	notifier  Notifier
	mu        *sync.Mutex
	now       func() time.Time
}

// NewMailService creates a new MailService instance
func NewMailService(store repository.Store, directory DirectoryService, scorer Scorer, audit AuditTrail, cfg MailConfig) MailService {
	if cfg.Security == nil {
		cfg.Security = logger.NewSecurityLoggerFrom(nil)
	}
	if cfg.Lock == nil {
		cfg.Lock = &sync.Mutex{}
	}
	return &mailService{
		store:     store,
		directory: directory,
		scorer:    scorer,
		audit:     audit,
		security:  cfg.Security,
		notifier:  cfg.Notifier,
		mu:        cfg.Lock,
		now:       time.Now,
	}
}

// Compose scores an outgoing message and stores it as sent
func (s *mailService) Compose(ctx context.Context, actorID string, req ComposeRequest) (*models.Email, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	recipient := validator.NormalizeEmail(req.Recipient)
	if err := validator.ValidateEmail(recipient); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, fmt.Sprintf("recipient: %v", err), apperrors.CodeInvalidInput)
	}

	email, err := s.score(ctx, actor.Email, recipient, req.Subject, req.Body, req.AttachmentName, models.DirectionSent)
	if err != nil {
		return nil, err
	}

	if err := s.create(ctx, actor.Email, email); err != nil {
		return nil, err
	}
	return email, nil
}

// Receive scores an inbound message and stores it as received
func (s *mailService) Receive(ctx context.Context, msg InboundMessage) (*models.Email, error) {
	recipient, err := s.directory.GetByEmail(ctx, msg.Recipient)
	if err != nil {
		return nil, err
	}

	sender := validator.NormalizeEmail(msg.Sender)
	if err := validator.ValidateEmail(sender); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, fmt.Sprintf("sender: %v", err), apperrors.CodeInvalidInput)
	}

	email, err := s.score(ctx, sender, recipient.Email, msg.Subject, msg.Body, msg.AttachmentName, models.DirectionReceived)
	if err != nil {
		return nil, err
	}

	if err := s.create(ctx, models.SystemActor, email); err != nil {
		return nil, err
	}
	return email, nil
}

// Attack simulation content
const (
	attackSender     = "it-security@malicious-node.net"
	attackSubject    = "URGENT: Global API Key Compromise - Action Required"
	attackBody       = "Multiple failed login attempts detected on your workspace. Please download the attached recovery_tool.zip and execute it to rotate your API keys and secure your account immediately."
	attackAttachment = "recovery_tool.zip"
	attackScore      = 94
	attackAnalysis   = "Phishing signature detected: Urgent tone combined with executable attachment from an external untrusted domain."
)

// SimulateAttack stores a fixed phishing message addressed to the actor
func (s *mailService) SimulateAttack(ctx context.Context, actorID string) (*models.Email, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	email := &models.Email{
		ID:          uuid.NewString(),
		Sender:      attackSender,
		Recipient:   actor.Email,
		Subject:     attackSubject,
		Body:        attackBody,
		Attachment:  models.NewAttachment(attackAttachment),
		Direction:   models.DirectionReceived,
		RiskScore:   attackScore,
		ThreatLevel: risk.Classify(attackScore),
		RiskFactors: models.RiskFactors{Content: 30, Attachment: 50, Links: 0, Context: 14},
		Analysis:    attackAnalysis,
		Suggestions: []string{"Blocked: Malware content signature", "Quarantine attachment"},
		Timestamp:   s.now().UTC(),
	}
	email.ProcessingStatus = workflow.InitialStatus(email.Direction, email.RiskScore)

	if err := s.create(ctx, actor.Email, email); err != nil {
		return nil, err
	}
	return email, nil
}

// Transition applies one status change as a single serialized unit:
// read, validate, conditional write, one audit entry.
func (s *mailService) Transition(ctx context.Context, actorID, emailID string, target models.ProcessingStatus) (*models.Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		email *models.Email
		actor *models.User
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		// Role is read here, at the point of use
		actor, err = tx.Users().GetByID(ctx, actorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.ErrUnauthorized
			}
			return err
		}

		email, err = loadVisible(ctx, tx, actor, emailID)
		if err != nil {
			return err
		}

		from := email.ProcessingStatus
		if err := checkTransition(actor, email, target); err != nil {
			return err
		}

		if err := tx.Emails().UpdateStatus(ctx, email.ID, from, target); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				return apperrors.NewTransitionError(string(from), string(target), string(actor.Role), "status changed concurrently")
			}
			return err
		}

		if _, err := s.audit.RecordTx(ctx, tx, actor.Email, ActionStatusUpdate,
			fmt.Sprintf("Mail %s -> %s", email.ID, target)); err != nil {
			return err
		}
		email.ProcessingStatus = target
		return nil
	})
	if err != nil {
		if apperrors.IsIllegalTransition(err) && actor != nil {
			if tErr := apperrors.GetTransitionError(err); tErr != nil {
				s.security.IllegalTransition(actor.ID, emailID, tErr.From, tErr.To, tErr.Reason)
			}
		}
		return nil, err
	}

	s.notify(EventEmailUpdated, email)
	return email, nil
}

// AllowedTransitions lists the statuses the actor may move the message to now
func (s *mailService) AllowedTransitions(ctx context.Context, actorID, emailID string) ([]models.ProcessingStatus, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	email, err := loadVisible(ctx, s.store, actor, emailID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !isRecipientOf(actor, email) {
		return []models.ProcessingStatus{}, nil
	}
	return workflow.AllowedTargets(actor.Role, email.ProcessingStatus, risk.Classify(email.RiskScore)), nil
}

// Get returns a message visible to the actor
func (s *mailService) Get(ctx context.Context, actorID, emailID string) (*models.Email, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return loadVisible(ctx, s.store, actor, emailID)
}

// List returns the actor's mail for a dashboard view. Admins see all mail.
func (s *mailService) List(ctx context.Context, actorID string, view models.MailView, limit, offset int) ([]models.Email, int64, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, 0, err
	}

	if view == "" {
		view = models.ViewAll
	}
	if !view.Valid() {
		return nil, 0, fmt.Errorf("unknown view %q: %w", view, apperrors.ErrInvalidInput)
	}
	if view == models.ViewAdminPanel && !actor.IsAdmin() {
		return nil, 0, fmt.Errorf("admin panel: %w", apperrors.ErrForbidden)
	}

	filter := repository.EmailFilter{View: view, Limit: limit, Offset: offset}
	if !actor.IsAdmin() {
		filter.Owner = actor.Email
	}

	emails, total, err := s.store.Emails().List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return emails, total, nil
}

// Stats summarizes the mail visible to the actor
func (s *mailService) Stats(ctx context.Context, actorID string) (*models.EmailStats, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	owner := actor.Email
	if actor.IsAdmin() {
		owner = ""
	}

	stats, err := s.store.Emails().Stats(ctx, owner)
	if err != nil {
		return nil, err
	}

	users, err := s.directory.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.ActiveUsers = users

	stats.AverageRisk = round1(stats.AverageRisk)
	stats.SafetyIndex = 100
	if stats.TotalMails > 0 {
		stats.SafetyIndex = round1(100 - stats.AverageRisk)
	}
	return stats, nil
}

// score evaluates the content and builds an unsaved Email. The classifier
// call happens here, outside the write lock.
func (s *mailService) score(ctx context.Context, sender, recipient, subject, body, attachment string, direction models.Direction) (*models.Email, error) {
	subject = validator.SanitizeString(subject, validator.MaxSubjectLength)
	body = validator.SanitizeText(body, validator.MaxBodyLength)
	attachment = validator.SanitizeFilename(attachment)
	if subject == "" && body == "" {
		return nil, fmt.Errorf("subject or body is required: %w", apperrors.ErrInvalidInput)
	}

	assessment := s.scorer.Evaluate(ctx, risk.Request{
		Subject:        subject,
		Body:           body,
		AttachmentName: attachment,
	})

	return &models.Email{
		ID:               uuid.NewString(),
		Sender:           sender,
		Recipient:        recipient,
		Subject:          subject,
		Body:             body,
		Attachment:       models.NewAttachment(attachment),
		Direction:        direction,
		RiskScore:        assessment.RiskScore,
		ThreatLevel:      assessment.ThreatLevel,
		RiskFactors:      assessment.RiskFactors,
		Analysis:         assessment.Analysis,
		Suggestions:      assessment.Suggestions,
		ProcessingStatus: workflow.InitialStatus(direction, assessment.RiskScore),
		Timestamp:        s.now().UTC(),
	}, nil
}

// create stores a new email with its "Email Processed" entry
func (s *mailService) create(ctx context.Context, auditActor string, email *models.Email) error {
	s.mu.Lock()
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Emails().Create(ctx, email); err != nil {
			return err
		}
		_, err := s.audit.RecordTx(ctx, tx, auditActor, ActionEmailProcessed,
			fmt.Sprintf("Scan: %s risk", email.ThreatLevel))
		return err
	})
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.notify(EventEmailCreated, email)
	return nil
}

func (s *mailService) actor(ctx context.Context, actorID string) (*models.User, error) {
	actor, err := s.directory.Get(ctx, actorID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	return actor, nil
}

func (s *mailService) notify(event string, email *models.Email) {
	if s.notifier != nil {
		s.notifier.EmailChanged(event, email)
	}
}

// loadVisible fetches a message the actor may see. Mail owned by someone else
// is reported as not found.
func loadVisible(ctx context.Context, store repository.Store, actor *models.User, emailID string) (*models.Email, error) {
	email, err := store.Emails().GetByID(ctx, emailID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("email '%s': %w", emailID, apperrors.ErrEmailNotFound)
		}
		return nil, err
	}
	if !actor.IsAdmin() && !email.IsOwnedBy(actor.Email) {
		return nil, fmt.Errorf("email '%s': %w", emailID, apperrors.ErrEmailNotFound)
	}
	return email, nil
}

// checkTransition applies ownership and then the state machine
func checkTransition(actor *models.User, email *models.Email, target models.ProcessingStatus) error {
	if !actor.IsAdmin() && !isRecipientOf(actor, email) {
		return apperrors.NewTransitionError(string(email.ProcessingStatus), string(target), string(actor.Role),
			"only the recipient may act on this message")
	}
	return workflow.Validate(actor.Role, email.ProcessingStatus, target, risk.Classify(email.RiskScore))
}

func isRecipientOf(user *models.User, email *models.Email) bool {
	return email.Direction == models.DirectionReceived && strings.EqualFold(email.Recipient, user.Email)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
