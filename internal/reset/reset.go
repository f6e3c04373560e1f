// Package reset manages the single-use password-reset grant stored on an
// account.
//
// The plaintext token only ever leaves the process in the reset email. The
// account carries its SHA-256 digest and expiry as one value, so the pair is
// always set and cleared together.
package reset

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MrEthical07/authcore/account"
)

// TokenBytes is the entropy of a reset token.
const TokenBytes = 32

var (
	// ErrInvalidToken means no grant matches the presented token.
	ErrInvalidToken = errors.New("invalid reset token")
	// ErrExpired means the grant matched but its expiry has passed.
	ErrExpired = errors.New("reset token expired")
)

// NewToken returns a URL-safe token carrying TokenBytes of entropy.
func NewToken() (string, error) {
	return newToken(rand.Reader)
}

func newToken(r io.Reader) (string, error) {
	var b [TokenBytes]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return "", fmt.Errorf("reset token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

// Digest is the at-rest form of a token. Stores index grants by it.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Manager issues and consumes grants.
type Manager struct {
	ttl  time.Duration
	rand io.Reader
}

// NewManager returns a Manager whose grants live for ttl.
func NewManager(ttl time.Duration) (*Manager, error) {
	if ttl <= 0 {
		return nil, errors.New("reset: ttl must be positive")
	}
	return &Manager{ttl: ttl, rand: rand.Reader}, nil
}

// TTL reports the grant lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue replaces any pending grant on acc and returns the new plaintext token.
func (m *Manager) Issue(acc *account.Account, now time.Time) (string, error) {
	token, err := newToken(m.rand)
	if err != nil {
		return "", err
	}
	acc.Reset = &account.ResetGrant{
		TokenHash: Digest(token),
		ExpiresAt: now.Add(m.ttl),
	}
	return token, nil
}

// Check validates token against the grant held by acc. An expired grant is
// cleared from acc before ErrExpired is returned; the caller is expected to
// persist that change.
func (m *Manager) Check(acc *account.Account, token string, now time.Time) error {
	if acc.Reset == nil || token == "" {
		return ErrInvalidToken
	}
	digest := Digest(token)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(acc.Reset.TokenHash)) != 1 {
		return ErrInvalidToken
	}
	if !now.Before(acc.Reset.ExpiresAt) {
		acc.ClearReset()
		return ErrExpired
	}
	return nil
}

// Consume checks token and, on success, installs newHash as the password,
// clears the grant and forgives any lockout.
func (m *Manager) Consume(acc *account.Account, token, newHash string, now time.Time) error {
	if err := m.Check(acc, token, now); err != nil {
		return err
	}
	acc.PasswordHash = newHash
	acc.ClearReset()
	acc.ClearLockout()
	return nil
}
