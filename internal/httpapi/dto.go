package httpapi

import (
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/account"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type userResponse struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	FullName  string  `json:"full_name"`
	Role      string  `json:"role"`
	IsActive  bool    `json:"is_active"`
	LastLogin *string `json:"last_login"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

type validationResponse struct {
	Detail []authcore.FieldError `json:"detail"`
}

type auditLogsResponse struct {
	Logs  []account.AuditEvent `json:"logs"`
	Count int                  `json:"count"`
}

func toUserResponse(acc *account.Account) userResponse {
	out := userResponse{
		ID:        acc.ID,
		Email:     acc.Email,
		FullName:  acc.FullName,
		Role:      acc.Role,
		IsActive:  acc.IsActive,
		CreatedAt: acc.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if acc.LastLogin != nil {
		s := acc.LastLogin.UTC().Format(time.RFC3339)
		out.LastLogin = &s
	}
	return out
}

func toTokenResponse(pair *authcore.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	}
}
