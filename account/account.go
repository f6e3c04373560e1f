package account

import (
	"strings"
	"time"
)

// Account is the identity record owned by the persistence collaborator.
type Account struct {
	ID             int64
	Email          string
	FullName       string
	PasswordHash   string
	Role           string
	IsActive       bool
	IsLocked       bool
	FailedAttempts int
	LockedUntil    *time.Time
	LastLogin      *time.Time
	Reset          *ResetGrant
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ResetGrant is a pending password reset. Only the SHA-256 digest of the
// token handed to the user is kept.
type ResetGrant struct {
	TokenHash string
	ExpiresAt time.Time
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Clone returns a deep copy so stores never share pointers with callers.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	if a.LockedUntil != nil {
		t := *a.LockedUntil
		out.LockedUntil = &t
	}
	if a.LastLogin != nil {
		t := *a.LastLogin
		out.LastLogin = &t
	}
	if a.Reset != nil {
		r := *a.Reset
		out.Reset = &r
	}
	return &out
}

// ClearReset drops any pending reset grant.
func (a *Account) ClearReset() {
	a.Reset = nil
}

// ClearLockout forgives failed attempts and removes the lock.
func (a *Account) ClearLockout() {
	a.IsLocked = false
	a.LockedUntil = nil
	a.FailedAttempts = 0
}
