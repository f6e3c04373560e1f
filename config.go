package authcore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
)

// Config holds every Engine setting. Build it with DefaultConfig and
// override the fields you need.
type Config struct {
	JWT           JWTConfig
	Password      PasswordConfig
	Lockout       LockoutConfig
	PasswordReset PasswordResetConfig
	Account       AccountConfig
	Audit         AuditConfig
	Mail          MailConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures access and refresh token signing.
type JWTConfig struct {
	Secret        []byte
	SigningMethod string // "HS256" (default), "HS384" or "HS512"
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration

	// KeyID and VerifyKeys support secret rotation; see jwt.Config.
	KeyID      string
	VerifyKeys map[string][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters and length bounds.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool

	MinLength int
	MaxLength int
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig drives the failed-login state machine. MaxAttempts <= 0 or
// Duration <= 0 disables locking.
type LockoutConfig struct {
	MaxAttempts int
	Duration    time.Duration
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig configures the reset-token lifecycle.
type PasswordResetConfig struct {
	TokenTTL time.Duration

	// ForgotPassword sleeps a random duration in [EnumerationDelayMin,
	// EnumerationDelayMax] on every request so the known and unknown email
	// paths share a timing profile. Zero disables the delay.
	EnumerationDelayMin time.Duration
	EnumerationDelayMax time.Duration
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig configures registration.
type AccountConfig struct {
	DefaultRole  string
	AllowedRoles []string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls audit delivery. Synchronous delivery is the default;
// Async routes events through a buffered dispatcher.
type AuditConfig struct {
	Async      bool
	BufferSize int
	DropIfFull bool

	// RecordRefreshFailures audits failed refresh attempts. Off by default:
	// only successful refreshes are recorded.
	RecordRefreshFailures bool

	DefaultReadLimit int
	MaxReadLimit     int
}

/*
====================================
MAIL CONFIG
====================================
*/

// MailConfig bounds reset-email delivery.
type MailConfig struct {
	Timeout time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns production defaults. JWT.Secret must still be set.
func DefaultConfig() Config {
	params := password.DefaultParams()
	return Config{
		JWT: JWTConfig{
			SigningMethod: string(jwt.MethodHS256),
			AccessTTL:     30 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:         params.Memory,
			Time:           params.Time,
			Parallelism:    params.Parallelism,
			SaltLength:     params.SaltLength,
			KeyLength:      params.KeyLength,
			UpgradeOnLogin: true,
			MinLength:      8,
			MaxLength:      200,
		},
		Lockout: LockoutConfig{
			MaxAttempts: 5,
			Duration:    15 * time.Minute,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:            30 * time.Minute,
			EnumerationDelayMin: 20 * time.Millisecond,
			EnumerationDelayMax: 40 * time.Millisecond,
		},
		Account: AccountConfig{
			DefaultRole:  "researcher",
			AllowedRoles: []string{"researcher", "admin", "viewer"},
		},
		Audit: AuditConfig{
			Async:            false,
			BufferSize:       1024,
			DropIfFull:       false,
			DefaultReadLimit: 50,
			MaxReadLimit:     500,
		},
		Mail: MailConfig{
			Timeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	out.Account.AllowedRoles = append([]string(nil), cfg.Account.AllowedRoles...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) passwordParams() password.Params {
	return password.Params{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
	}
}

func (c *Config) roleAllowed(role string) bool {
	for _, r := range c.Account.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	switch strings.ToUpper(c.JWT.SigningMethod) {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported JWT signing method %q", c.JWT.SigningMethod)
	}

	// Password
	if err := c.passwordParams().Validate(); err != nil {
		return err
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}

	// Lockout: non-positive values disable it, so only the combination matters.
	if c.Lockout.MaxAttempts < 0 || c.Lockout.Duration < 0 {
		return errors.New("Lockout values must be >= 0")
	}

	// Password reset
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.PasswordReset.EnumerationDelayMin < 0 ||
		c.PasswordReset.EnumerationDelayMax < c.PasswordReset.EnumerationDelayMin {
		return errors.New("PasswordReset enumeration delay range is invalid")
	}

	// Account
	if len(c.Account.AllowedRoles) == 0 {
		return errors.New("Account AllowedRoles must not be empty")
	}
	if !c.roleAllowed(c.Account.DefaultRole) {
		return errors.New("Account DefaultRole must be one of AllowedRoles")
	}

	// Audit
	if c.Audit.Async && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when async audit is enabled")
	}
	if c.Audit.DefaultReadLimit <= 0 || c.Audit.MaxReadLimit < c.Audit.DefaultReadLimit {
		return errors.New("Audit read limits are invalid")
	}

	// Mail
	if c.Mail.Timeout <= 0 {
		return errors.New("Mail Timeout must be > 0")
	}

	return nil
}
