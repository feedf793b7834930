package seed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/welldanyogia/webrana-mailguard-backend/internal/errors"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/risk"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/services"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/validator"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/workflow"
	"gopkg.in/yaml.v3"
)

// File is the YAML seed document
type File struct {
	Users  []FileUser  `yaml:"users"`
	Emails []FileEmail `yaml:"emails"`
}

// FileUser provisions one directory identity
type FileUser struct {
	ID          string `yaml:"id"`
	Email       string `yaml:"email"`
	DisplayName string `yaml:"display_name"`
	AccessCode  string `yaml:"access_code"`
	Role        string `yaml:"role"`
	Avatar      string `yaml:"avatar"`
}

// FileEmail is a pre-scored message. Threat level and initial status are
// derived from the score.
type FileEmail struct {
	ID          string             `yaml:"id"`
	Sender      string             `yaml:"sender"`
	Recipient   string             `yaml:"recipient"`
	Subject     string             `yaml:"subject"`
	Body        string             `yaml:"body"`
	Attachment  string             `yaml:"attachment"`
	Direction   models.Direction   `yaml:"direction"`
	RiskScore   float64            `yaml:"risk_score"`
	RiskFactors models.RiskFactors `yaml:"risk_factors"`
	Analysis    string             `yaml:"analysis"`
	Suggestions []string           `yaml:"suggestions"`
	Timestamp   time.Time          `yaml:"timestamp"`
}

// LoadFile reads and decodes a YAML seed file. Unknown keys are rejected.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode seed file %s: %w", path, err)
	}
	return &file, nil
}

func (s *Seeder) apply(ctx context.Context, file *File) error {
	reqs := make([]services.ProvisionRequest, 0, len(file.Users))
	for _, u := range file.Users {
		role := models.Role(strings.ToUpper(strings.TrimSpace(u.Role)))
		if role == "" {
			role = models.RoleUser
		}
		reqs = append(reqs, services.ProvisionRequest{
			ID:          u.ID,
			Email:       u.Email,
			DisplayName: u.DisplayName,
			AccessCode:  u.AccessCode,
			Role:        role,
			Avatar:      u.Avatar,
		})
	}
	if err := s.provision(ctx, reqs); err != nil {
		return err
	}

	if len(file.Emails) == 0 {
		return nil
	}
	emails := make([]models.Email, 0, len(file.Emails))
	for i, e := range file.Emails {
		email, err := s.fileEmail(e)
		if err != nil {
			return fmt.Errorf("email %d: %w", i, err)
		}
		emails = append(emails, *email)
	}
	if err := s.store.Emails().CreateBatch(ctx, emails); err != nil {
		return fmt.Errorf("failed to store seed mail: %w", err)
	}
	return nil
}

func (s *Seeder) fileEmail(e FileEmail) (*models.Email, error) {
	direction := e.Direction
	if direction == "" {
		direction = models.DirectionReceived
	}
	if direction != models.DirectionReceived && direction != models.DirectionSent {
		return nil, fmt.Errorf("unknown direction %q: %w", direction, apperrors.ErrInvalidInput)
	}

	sender := validator.NormalizeEmail(e.Sender)
	recipient := validator.NormalizeEmail(e.Recipient)
	if validator.ValidateEmail(sender) != nil || validator.ValidateEmail(recipient) != nil {
		return nil, fmt.Errorf("sender and recipient must be valid addresses: %w", apperrors.ErrInvalidInput)
	}
	if e.RiskScore < risk.MinScore || e.RiskScore > risk.MaxScore {
		return nil, fmt.Errorf("risk_score %v out of range: %w", e.RiskScore, apperrors.ErrInvalidInput)
	}
	factors := []struct {
		name  string
		value float64
	}{
		{"content", e.RiskFactors.Content},
		{"attachment", e.RiskFactors.Attachment},
		{"links", e.RiskFactors.Links},
		{"context", e.RiskFactors.Context},
	}
	for _, f := range factors {
		if f.value < risk.MinScore || f.value > risk.MaxScore {
			return nil, fmt.Errorf("risk_factors.%s %v out of range: %w", f.name, f.value, apperrors.ErrInvalidInput)
		}
	}

	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	timestamp := e.Timestamp
	if timestamp.IsZero() {
		timestamp = s.now()
	}
	suggestions := e.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	return &models.Email{
		ID:               id,
		Sender:           sender,
		Recipient:        recipient,
		Subject:          e.Subject,
		Body:             e.Body,
		Attachment:       models.NewAttachment(e.Attachment),
		Direction:        direction,
		RiskScore:        e.RiskScore,
		ThreatLevel:      risk.Classify(e.RiskScore),
		RiskFactors:      e.RiskFactors,
		Analysis:         e.Analysis,
		Suggestions:      suggestions,
		ProcessingStatus: workflow.InitialStatus(direction, e.RiskScore),
		Timestamp:        timestamp.UTC(),
	}, nil
}
