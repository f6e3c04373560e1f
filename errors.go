package authcore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/account"
)

var (
	// ErrNotFound is returned by Login for an unknown email. Forgot-password
	// never returns it.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by Register when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInactive is returned when the account has been deactivated.
	ErrInactive = errors.New("account is inactive")
	// ErrLocked is the sentinel matched by *LockedError.
	ErrLocked = errors.New("account locked")
	// ErrInvalidCredentials is the sentinel matched by *InvalidCredentialsError.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation is the sentinel matched by *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidToken covers malformed, forged and unknown tokens, including
	// reset tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for authentic tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrResetTokenExpired is returned for a reset token past its expiry. The
	// stale grant is cleared before it is returned.
	ErrResetTokenExpired = errors.New("reset token has expired")
	// ErrWrongTokenKind is returned when an access token is presented where a
	// refresh token is required, or the reverse.
	ErrWrongTokenKind = errors.New("wrong token kind")
	// ErrUnavailable wraps persistence failures.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrEngineNotReady is returned by a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// LockedError reports a rejected login on a locked account.
type LockedError struct {
	Until            time.Time
	MinutesRemaining int
	// JustLocked is true when the failing attempt itself triggered the lock.
	JustLocked bool
}

func (e *LockedError) Error() string {
	if e.JustLocked {
		return fmt.Sprintf("Your account has been temporarily locked for security reasons. Please try again in %d minutes.", e.MinutesRemaining)
	}
	return fmt.Sprintf("Your account is temporarily locked for security. Please try again in %d minutes.", e.MinutesRemaining)
}

func (e *LockedError) Is(target error) bool { return target == ErrLocked }

// InvalidCredentialsError reports a wrong password.
type InvalidCredentialsError struct {
	// RemainingAttempts is negative when lockout is disabled.
	RemainingAttempts int
}

func (e *InvalidCredentialsError) Error() string {
	if e.RemainingAttempts < 0 {
		return "Invalid password."
	}
	plural := "s"
	if e.RemainingAttempts == 1 {
		plural = ""
	}
	return fmt.Sprintf("Invalid password. You have %d attempt%s remaining before your account is locked.", e.RemainingAttempts, plural)
}

func (e *InvalidCredentialsError) Is(target error) bool { return target == ErrInvalidCredentials }

// FieldError is a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports rejected input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalidField(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// ErrorCategory is the coarse class of an Engine error.
type ErrorCategory int

const (
	CategoryNone ErrorCategory = iota
	// CategoryValidation is malformed input.
	CategoryValidation
	// CategoryAuthentication is bad credentials or a bad token.
	CategoryAuthentication
	// CategoryAuthorizationState is a locked or inactive account.
	CategoryAuthorizationState
	// CategoryIntegrity is a duplicate email or stale reset token.
	CategoryIntegrity
	// CategoryTransient is a backend failure.
	CategoryTransient
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryValidation:
		return "validation"
	case CategoryAuthentication:
		return "authentication"
	case CategoryAuthorizationState:
		return "authorization_state"
	case CategoryIntegrity:
		return "integrity"
	case CategoryTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Category classifies err. Unknown errors are treated as transient.
func Category(err error) ErrorCategory {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, ErrValidation):
		return CategoryValidation
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrWrongTokenKind),
		errors.Is(err, ErrTokenExpired):
		return CategoryAuthentication
	case errors.Is(err, ErrLocked), errors.Is(err, ErrInactive):
		return CategoryAuthorizationState
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrResetTokenExpired):
		return CategoryIntegrity
	default:
		return CategoryTransient
	}
}

func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, account.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, account.ErrEmailTaken):
		return ErrEmailTaken
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
