package httpapi

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
)

const (
	detailEmailTaken     = "This email is already registered. Please use a different email or try logging in instead."
	detailUserNotFound   = "User not found. Please check the email or register a new account."
	detailDeactivated    = "Your account has been deactivated. Please contact support for assistance."
	detailInactive       = "Account is inactive"
	detailInvalidToken   = "Invalid token"
	detailTokenExpired   = "Token has expired"
	detailWrongTokenKind = "Invalid token type"
	detailRefreshMissing = "Refresh token missing"
	detailResetInvalid   = "Invalid or expired reset token"
	detailResetExpired   = "Reset token has expired. Please request a new one."
	detailInvalidJSON    = "Invalid JSON body"
	detailInternal       = "Internal server error"
	detailUnavailable    = "Service unavailable"
)

// statusFor maps an Engine error to a status code and client-facing detail.
func statusFor(err error) (int, string) {
	var (
		locked *authcore.LockedError
		bad    *authcore.InvalidCredentialsError
	)
	switch {
	case errors.As(err, &locked):
		return http.StatusLocked, locked.Error()
	case errors.As(err, &bad):
		return http.StatusUnauthorized, bad.Error()
	case errors.Is(err, authcore.ErrEmailTaken):
		return http.StatusBadRequest, detailEmailTaken
	case errors.Is(err, authcore.ErrNotFound):
		return http.StatusNotFound, detailUserNotFound
	case errors.Is(err, authcore.ErrInactive):
		return http.StatusForbidden, detailInactive
	case errors.Is(err, authcore.ErrTokenExpired):
		return http.StatusUnauthorized, detailTokenExpired
	case errors.Is(err, authcore.ErrWrongTokenKind):
		return http.StatusUnauthorized, detailWrongTokenKind
	case errors.Is(err, authcore.ErrInvalidToken):
		return http.StatusUnauthorized, detailInvalidToken
	case errors.Is(err, authcore.ErrResetTokenExpired):
		return http.StatusBadRequest, detailResetExpired
	case errors.Is(err, authcore.ErrEngineNotReady):
		return http.StatusServiceUnavailable, detailUnavailable
	default:
		return http.StatusInternalServerError, detailInternal
	}
}
