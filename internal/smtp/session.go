package smtp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/emersion/go-smtp"
	apperrors "github.com/welldanyogia/webrana-mailguard-backend/internal/errors"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/services"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/validator"
)

var (
	errMailboxNotFound = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 1, 1},
		Message:      "Mailbox not found",
	}
	errInvalidRecipient = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 1, 3},
		Message:      "Invalid recipient address",
	}
	errTemporary = &smtp.SMTPError{
		Code:         451,
		EnhancedCode: smtp.EnhancedCode{4, 3, 0},
		Message:      "Temporary error",
	}
	errNoRecipients = &smtp.SMTPError{
		Code:         503,
		EnhancedCode: smtp.EnhancedCode{5, 5, 1},
		Message:      "No recipients specified",
	}
	errUnparseable = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 6, 0},
		Message:      "Failed to parse email",
	}
	errRejectedContent = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 6, 0},
		Message:      "Message content rejected",
	}
)

// Session implements the go-smtp Session interface
type Session struct {
	backend    *Backend
	remoteAddr string
	from       string
	recipients []string
}

// NewSession creates a new SMTP session
func NewSession(backend *Backend, remoteAddr string) *Session {
	return &Session{
		backend:    backend,
		remoteAddr: remoteAddr,
		recipients: make([]string, 0),
	}
}

// Mail handles the MAIL FROM command
func (s *Session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	if s.backend.logger != nil {
		s.backend.logger.Debug("MAIL FROM", slog.String("from", from))
	}
	return nil
}

// Rcpt handles the RCPT TO command. Only directory users receive mail.
func (s *Session) Rcpt(to string, opts *smtp.RcptOptions) error {
	address, err := parseEmailAddress(to)
	if err != nil {
		return errInvalidRecipient
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.backend.deliveryTimeout)
	defer cancel()

	user, err := s.backend.directory.GetByEmail(ctx, address)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return errMailboxNotFound
		}
		return errTemporary
	}

	if slices.Contains(s.recipients, user.Email) {
		return nil
	}
	s.recipients = append(s.recipients, user.Email)
	if s.backend.logger != nil {
		s.backend.logger.Debug("RCPT TO", slog.String("to", user.Email))
	}
	return nil
}

// Data handles the DATA command. Each recipient gets its own scored copy.
func (s *Session) Data(r io.Reader) error {
	if len(s.recipients) == 0 {
		return errNoRecipients
	}

	parsed, err := ParseEmail(r)
	if err != nil {
		if s.backend.logger != nil {
			s.backend.logger.Error("failed to parse email", slog.Any("error", err))
		}
		return errUnparseable
	}

	// Header sender wins; the envelope is the fallback
	sender := parsed.SenderEmail
	if validator.ValidateEmail(sender) != nil {
		sender = s.from
	}

	delivered := 0
	var lastErr error
	for _, recipient := range s.recipients {
		if err := s.deliver(recipient, sender, parsed); err != nil {
			if s.backend.logger != nil {
				s.backend.logger.Error("failed to deliver email",
					slog.String("recipient", recipient),
					slog.Any("error", err))
			}
			lastErr = err
			continue
		}
		delivered++
	}

	if delivered == 0 {
		// Retrying a message the policy core rejected as malformed cannot succeed
		if apperrors.IsInvalidInput(lastErr) {
			return errRejectedContent
		}
		return errTemporary
	}

	if s.backend.logger != nil {
		s.backend.logger.Info("email received",
			slog.String("from", sender),
			slog.String("remote_addr", s.remoteAddr),
			slog.Int("recipients", delivered),
			slog.String("subject", parsed.Subject))
	}
	return nil
}

// deliver scores and stores one recipient's copy
func (s *Session) deliver(recipient, sender string, parsed *ParsedEmail) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.backend.deliveryTimeout)
	defer cancel()

	email, err := s.backend.mail.Receive(ctx, services.InboundMessage{
		Sender:         sender,
		Recipient:      recipient,
		Subject:        parsed.Subject,
		Body:           parsed.Body,
		AttachmentName: parsed.FirstAttachment(),
	})
	if err != nil {
		return fmt.Errorf("receive for %s: %w", recipient, err)
	}

	if s.backend.logger != nil {
		s.backend.logger.Info("inbound email scored",
			slog.String("email_id", email.ID),
			slog.String("recipient", recipient),
			slog.Float64("risk_score", email.RiskScore),
			slog.String("processing_status", string(email.ProcessingStatus)))
	}
	return nil
}

// Reset resets the session state
func (s *Session) Reset() {
	s.from = ""
	s.recipients = make([]string, 0)
}

// Logout handles the end of the session
func (s *Session) Logout() error {
	return nil
}

// parseEmailAddress strips angle brackets and validates a bare address
func parseEmailAddress(address string) (string, error) {
	address = strings.TrimPrefix(strings.TrimSpace(address), "<")
	address = strings.TrimSuffix(address, ">")
	address = validator.NormalizeEmail(address)

	if err := validator.ValidateEmail(address); err != nil {
		return "", fmt.Errorf("invalid email address %q: %w", address, err)
	}
	return address, nil
}
