package redisstore

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/account"
)

const accountRecordVersionV1 = 1

var errRecordVersion = errors.New("invalid account record version")

type accountRecord struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	PasswordHash   string     `json:"password_hash"`
	Role           string     `json:"role"`
	IsActive       bool       `json:"is_active"`
	IsLocked       bool       `json:"is_locked"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	ResetHash      string     `json:"reset_token_hash,omitempty"`
	ResetExpires   *time.Time `json:"reset_token_expires,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func encodeAccount(acc *account.Account) ([]byte, error) {
	rec := accountRecord{
		ID:             acc.ID,
		Email:          acc.Email,
		FullName:       acc.FullName,
		PasswordHash:   acc.PasswordHash,
		Role:           acc.Role,
		IsActive:       acc.IsActive,
		IsLocked:       acc.IsLocked,
		FailedAttempts: acc.FailedAttempts,
		LockedUntil:    acc.LockedUntil,
		LastLogin:      acc.LastLogin,
		CreatedAt:      acc.CreatedAt,
		UpdatedAt:      acc.UpdatedAt,
	}
	if acc.Reset != nil {
		expires := acc.Reset.ExpiresAt
		rec.ResetHash = acc.Reset.TokenHash
		rec.ResetExpires = &expires
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append([]byte{accountRecordVersionV1}, body...), nil
}

func decodeAccount(data []byte) (*account.Account, error) {
	if len(data) == 0 || data[0] != accountRecordVersionV1 {
		return nil, errRecordVersion
	}

	var rec accountRecord
	if err := json.Unmarshal(data[1:], &rec); err != nil {
		return nil, err
	}

	acc := &account.Account{
		ID:             rec.ID,
		Email:          rec.Email,
		FullName:       rec.FullName,
		PasswordHash:   rec.PasswordHash,
		Role:           rec.Role,
		IsActive:       rec.IsActive,
		IsLocked:       rec.IsLocked,
		FailedAttempts: rec.FailedAttempts,
		LockedUntil:    rec.LockedUntil,
		LastLogin:      rec.LastLogin,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
	if rec.ResetHash != "" && rec.ResetExpires != nil {
		acc.Reset = &account.ResetGrant{TokenHash: rec.ResetHash, ExpiresAt: *rec.ResetExpires}
	}
	return acc, nil
}
