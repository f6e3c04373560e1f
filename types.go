package authcore

import (
	"context"
	"time"
)

const (
	// ForgotPasswordMessage is returned by every ForgotPassword call.
	ForgotPasswordMessage = "If this email is registered, password reset instructions have been sent."
	// LogoutMessage is returned by every Logout call.
	LogoutMessage = "Logged out successfully"
	// ResetPasswordMessage accompanies a successful ResetPassword.
	ResetPasswordMessage = "Password has been reset successfully. You can now login with your new password."
)

// RegisterRequest is the input of Register. Email and FullName are trimmed
// before validation.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest is the input of Login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetPasswordRequest is the input of ResetPassword.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// LogoutResult is returned by Logout.
type LogoutResult struct {
	Detail string
}

// ForgotPasswordResult is returned by ForgotPassword. It never varies with
// the outcome.
type ForgotPasswordResult struct {
	Detail string
}

// Principal is the identity proven by a valid access token.
type Principal struct {
	AccountID int64
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// Mailer delivers password-reset emails. The Engine calls it from a
// background goroutine and only logs its failures.
type Mailer interface {
	SendResetEmail(ctx context.Context, address, token, displayName string) (bool, error)
}
