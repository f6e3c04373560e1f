package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/mail"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends accepted in STORE.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Settings is the flat server configuration. Keys match the environment
// variable names in lower case.
type Settings struct {
	SecretKey string `mapstructure:"secret_key"`
	Algorithm string `mapstructure:"algorithm"`

	AccessTokenExpireMinutes        int `mapstructure:"access_token_expire_minutes"`
	RefreshTokenExpireDays          int `mapstructure:"refresh_token_expire_days"`
	PasswordResetTokenExpireMinutes int `mapstructure:"password_reset_token_expire_minutes"`

	MaxLoginAttempts      int `mapstructure:"max_login_attempts"`
	AccountLockoutMinutes int `mapstructure:"account_lockout_minutes"`
	MinPasswordLength     int `mapstructure:"min_password_length"`
	MaxPasswordLength     int `mapstructure:"max_password_length"`

	Store       string `mapstructure:"store"`
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`

	GmailEmail       string `mapstructure:"gmail_email"`
	GmailAppPassword string `mapstructure:"gmail_app_password"`
	FrontendURL      string `mapstructure:"frontend_url"`

	Port         int    `mapstructure:"port"`
	CORSOrigin   string `mapstructure:"cors_origin"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
	AuditAsync   bool   `mapstructure:"audit_async"`
	AuditStream  bool   `mapstructure:"audit_stream"`

	OTelEndpoint        string `mapstructure:"otel_exporter_otlp_endpoint"`
	OTelInsecure        bool   `mapstructure:"otel_insecure"`
	OTelIntervalSeconds int    `mapstructure:"otel_interval_seconds"`
}

var defaults = map[string]any{
	"algorithm":                           "HS256",
	"access_token_expire_minutes":         30,
	"refresh_token_expire_days":           7,
	"password_reset_token_expire_minutes": 30,
	"max_login_attempts":                  5,
	"account_lockout_minutes":             15,
	"min_password_length":                 8,
	"max_password_length":                 200,
	"store":                               StoreMemory,
	"database_url":                        "",
	"redis_url":                           "",
	"auto_migrate":                        true,
	"secret_key":                          "",
	"gmail_email":                         "",
	"gmail_app_password":                  "",
	"frontend_url":                        "http://localhost:5173",
	"port":                                8000,
	"cors_origin":                         "http://localhost:3000,http://localhost:5173",
	"cookie_secure":                       false,
	"log_level":                           "info",
	"log_format":                          "json",
	"audit_async":                         false,
	"audit_stream":                        false,
	"otel_exporter_otlp_endpoint":         "",
	"otel_insecure":                       false,
	"otel_interval_seconds":               15,
}

type loaderConfig struct {
	configFile string
	envFile    string
}

// Option customises Load.
type Option func(*loaderConfig)

// WithConfigFile reads a YAML (or any viper-supported) file before the
// environment.
func WithConfigFile(path string) Option {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile loads a dotenv file. Variables already set in the process
// environment win.
func WithEnvFile(path string) Option {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// Load resolves settings from defaults, an optional config file, an
// optional .env file and the process environment, in increasing priority.
func Load(opts ...Option) (*Settings, error) {
	lc := loaderConfig{envFile: ".env"}
	for _, opt := range opts {
		opt(&lc)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if lc.configFile != "" {
		v.SetConfigFile(lc.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", lc.configFile, err)
		}
	}

	if lc.envFile != "" {
		if _, err := os.Stat(lc.envFile); err == nil {
			if err := godotenv.Load(lc.envFile); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", lc.envFile, err)
			}
		}
	}

	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	s.Store = strings.ToLower(strings.TrimSpace(s.Store))
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks settings the engine config cannot check on its own.
func (s *Settings) Validate() error {
	if s.SecretKey == "" {
		return errors.New("config: SECRET_KEY is required")
	}
	switch s.Store {
	case StoreMemory:
	case StoreRedis:
		if s.RedisURL == "" {
			return errors.New("config: REDIS_URL is required when STORE=redis")
		}
	case StorePostgres:
		if s.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when STORE=postgres")
		}
	default:
		return fmt.Errorf("config: unknown STORE %q", s.Store)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", s.Port)
	}
	if s.OTelEnabled() && s.OTelIntervalSeconds <= 0 {
		return fmt.Errorf("config: invalid OTEL_INTERVAL_SECONDS %d", s.OTelIntervalSeconds)
	}
	return nil
}

// OTelEnabled reports whether metrics are pushed to an OTLP collector.
func (s *Settings) OTelEnabled() bool {
	return strings.TrimSpace(s.OTelEndpoint) != ""
}

// OTelInterval is the OTLP push interval.
func (s *Settings) OTelInterval() time.Duration {
	return time.Duration(s.OTelIntervalSeconds) * time.Second
}

// EngineConfig maps settings onto authcore.DefaultConfig and validates the
// result.
func (s *Settings) EngineConfig() (authcore.Config, error) {
	cfg := authcore.DefaultConfig()

	cfg.JWT.Secret = []byte(s.SecretKey)
	cfg.JWT.SigningMethod = s.Algorithm
	cfg.JWT.AccessTTL = time.Duration(s.AccessTokenExpireMinutes) * time.Minute
	cfg.JWT.RefreshTTL = time.Duration(s.RefreshTokenExpireDays) * 24 * time.Hour

	cfg.Password.MinLength = s.MinPasswordLength
	cfg.Password.MaxLength = s.MaxPasswordLength

	cfg.Lockout.MaxAttempts = s.MaxLoginAttempts
	cfg.Lockout.Duration = time.Duration(s.AccountLockoutMinutes) * time.Minute

	cfg.PasswordReset.TokenTTL = time.Duration(s.PasswordResetTokenExpireMinutes) * time.Minute
	cfg.Audit.Async = s.AuditAsync

	if err := cfg.Validate(); err != nil {
		return authcore.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// MailConfig returns the SMTP settings for the reset mailer.
func (s *Settings) MailConfig() mail.Config {
	cfg := mail.DefaultConfig()
	cfg.Username = s.GmailEmail
	cfg.Password = s.GmailAppPassword
	cfg.FrontendURL = strings.TrimRight(s.FrontendURL, "/")
	cfg.LinkTTL = time.Duration(s.PasswordResetTokenExpireMinutes) * time.Minute
	return cfg
}

// Origins splits CORS_ORIGIN on commas.
func (s *Settings) Origins() []string {
	var out []string
	for _, p := range strings.Split(s.CORSOrigin, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Addr is the listen address for PORT.
func (s *Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}
