package errors

import (
	"errors"
	"fmt"
)

// Policy error kinds
var (
	// ErrDuplicateIdentity indicates the email is already provisioned (case-insensitive)
	ErrDuplicateIdentity = errors.New("identity already exists")

	// ErrWeakCredential indicates the access code is shorter than the minimum length
	ErrWeakCredential = errors.New("access code too short")

	// ErrUnknownIdentity indicates no user has the given id
	ErrUnknownIdentity = errors.New("unknown identity")

	// ErrInvalidCredentials indicates a failed login. It never says which field was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrIllegalTransition indicates the actor may not move the message to the requested status
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrClassificationUnavailable indicates the risk backend failed.
	// It is recovered by the evaluator and never reaches API callers.
	ErrClassificationUnavailable = errors.New("classification unavailable")
)

// Ambient error kinds
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrEmailNotFound indicates the message was not found
	ErrEmailNotFound = errors.New("email not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates a missing or expired session
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller's role does not allow the action
	ErrForbidden = errors.New("forbidden")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")
)

// Error codes for API responses
const (
	CodeDuplicateIdentity  = "DUPLICATE_IDENTITY"
	CodeWeakCredential     = "WEAK_CREDENTIAL"
	CodeUnknownIdentity    = "UNKNOWN_IDENTITY"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeIllegalTransition  = "ILLEGAL_TRANSITION"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// TransitionError carries the rejected move so callers can report it.
// It unwraps to ErrIllegalTransition.
type TransitionError struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Role   string `json:"role"`
	Reason string `json:"reason"`
}

// Error implements the error interface
func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s for %s: %s", e.From, e.To, e.Role, e.Reason)
}

// Unwrap returns ErrIllegalTransition
func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// NewTransitionError creates a TransitionError
func NewTransitionError(from, to, role, reason string) *TransitionError {
	return &TransitionError{From: from, To: to, Role: role, Reason: reason}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEmailNotFound) ||
		errors.Is(err, ErrUnknownIdentity)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrWeakCredential)
}

// IsIllegalTransition checks if the error is a rejected state transition
func IsIllegalTransition(err error) bool {
	return errors.Is(err, ErrIllegalTransition)
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateIdentity):
		return CodeDuplicateIdentity
	case errors.Is(err, ErrWeakCredential):
		return CodeWeakCredential
	case errors.Is(err, ErrUnknownIdentity):
		return CodeUnknownIdentity
	case errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, ErrIllegalTransition):
		return CodeIllegalTransition
	case IsNotFound(err):
		return CodeNotFound
	case IsInvalidInput(err):
		return CodeInvalidInput
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	default:
		return CodeInternalError
	}
}

// GetTransitionError extracts a TransitionError from an error if it exists
func GetTransitionError(err error) *TransitionError {
	var tErr *TransitionError
	if errors.As(err, &tErr) {
		return tErr
	}
	return nil
}
