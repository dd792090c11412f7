package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password. The two causes are deliberately indistinguishable so login
	// responses cannot be used to enumerate registered addresses.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrDuplicateEmail indicates a registration conflict on the email column.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUserNotFound indicates the operation target does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyVerified is returned when a resend or verify targets an
	// account whose email has already been confirmed.
	ErrAlreadyVerified = errors.New("account has been verified")
	// ErrInvalidToken covers malformed tokens, bad signatures and tokens that
	// no longer match stored state.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is a signature-valid token past its expiry. Kept
	// separate from ErrInvalidToken because callers may offer re-issue flows
	// for expired tokens but never for invalid ones.
	ErrTokenExpired = errors.New("token has expired")
	// ErrVerifyTokenConflict reports a lost compare-and-set race on the
	// stored verification token.
	ErrVerifyTokenConflict = errors.New("verification token changed concurrently")
)

// FieldIssue describes a single validation problem on a named request field.
type FieldIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError aggregates one or more field-level issues so the caller
// sees every problem in a single response.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = fmt.Sprintf("%s: %s", issue.Path, issue.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// NewValidationError builds a single-issue validation error.
func NewValidationError(path, message string) *ValidationError {
	return &ValidationError{Issues: []FieldIssue{{Path: path, Message: message}}}
}

// ResendCooldownError reports that the resend debounce window is still open.
// RemainingSeconds carries the exact wait so the caller can surface it.
type ResendCooldownError struct {
	RemainingSeconds int64
}

func (e *ResendCooldownError) Error() string {
	return fmt.Sprintf("please try again in %d seconds", e.RemainingSeconds)
}
