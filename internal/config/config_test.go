package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"SECRET_KEY", "ALGORITHM", "ACCESS_TOKEN_EXPIRE_MINUTES", "REFRESH_TOKEN_EXPIRE_DAYS",
	"PASSWORD_RESET_TOKEN_EXPIRE_MINUTES", "MAX_LOGIN_ATTEMPTS", "ACCOUNT_LOCKOUT_MINUTES",
	"MIN_PASSWORD_LENGTH", "MAX_PASSWORD_LENGTH", "STORE", "DATABASE_URL", "REDIS_URL",
	"AUTO_MIGRATE", "GMAIL_EMAIL", "GMAIL_APP_PASSWORD", "FRONTEND_URL", "PORT", "CORS_ORIGIN",
	"COOKIE_SECURE", "LOG_LEVEL", "LOG_FORMAT", "AUDIT_ASYNC", "AUDIT_STREAM",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_INSECURE", "OTEL_INTERVAL_SECONDS",
}

// clearEnv blanks every known key for the test and restores it afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SECRET_KEY", "s3cret")

	s, err := Load(WithEnvFile(""))
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, s.Store)
	assert.Equal(t, 8000, s.Port)
	assert.Equal(t, ":8000", s.Addr())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, s.Origins())

	cfg, err := s.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), cfg.JWT.Secret)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 5, cfg.Lockout.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Lockout.Duration)
	assert.Equal(t, 30*time.Minute, cfg.PasswordReset.TokenTTL)
	assert.Equal(t, 8, cfg.Password.MinLength)
	assert.Equal(t, 200, cfg.Password.MaxLength)
	assert.False(t, s.OTelEnabled())
	assert.Equal(t, 15*time.Second, s.OTelInterval())
}

func TestLoadOTelSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_INSECURE", "true")
	t.Setenv("OTEL_INTERVAL_SECONDS", "5")

	s, err := Load(WithEnvFile(""))
	require.NoError(t, err)
	assert.True(t, s.OTelEnabled())
	assert.True(t, s.OTelInsecure)
	assert.Equal(t, "collector:4318", s.OTelEndpoint)
	assert.Equal(t, 5*time.Second, s.OTelInterval())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "0")
	t.Setenv("STORE", " Redis ")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGIN", "https://app.example.com/, ,https://admin.example.com")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("AUDIT_STREAM", "1")

	s, err := Load(WithEnvFile(""))
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, s.Store)
	assert.Equal(t, 9090, s.Port)
	assert.True(t, s.CookieSecure)
	assert.True(t, s.AuditStream)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, s.Origins())

	cfg, err := s.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	assert.Zero(t, cfg.Lockout.MaxAttempts)
}

func TestLoadDotenv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	env := writeFile(t, ".env", "SECRET_KEY=from-dotenv\nPORT=1234\nGMAIL_EMAIL=noreply@example.com\n")

	s, err := Load(WithEnvFile(env))
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", s.SecretKey)
	assert.Equal(t, 7000, s.Port, "process environment wins over .env")

	m := s.MailConfig()
	assert.Equal(t, "noreply@example.com", m.Username)
	assert.Equal(t, "http://localhost:5173", m.FrontendURL)
	assert.Equal(t, 30*time.Minute, m.LinkTTL)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	file := writeFile(t, "config.yml", "secret_key: from-file\nstore: postgres\ndatabase_url: postgres://localhost/authcore\n")

	s, err := Load(WithConfigFile(file), WithEnvFile(""))
	require.NoError(t, err)
	assert.Equal(t, "from-file", s.SecretKey)
	assert.Equal(t, StorePostgres, s.Store)

	_, err = Load(WithConfigFile(filepath.Join(t.TempDir(), "missing.yml")), WithEnvFile(""))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Settings {
		return Settings{SecretKey: "k", Store: StoreMemory, Port: 8000}
	}

	tests := []struct {
		name   string
		mutate func(*Settings)
		ok     bool
	}{
		{"valid", func(*Settings) {}, true},
		{"missing secret", func(s *Settings) { s.SecretKey = "" }, false},
		{"redis without url", func(s *Settings) { s.Store = StoreRedis }, false},
		{"postgres without url", func(s *Settings) { s.Store = StorePostgres }, false},
		{"postgres with url", func(s *Settings) { s.Store = StorePostgres; s.DatabaseURL = "postgres://x" }, true},
		{"unknown store", func(s *Settings) { s.Store = "mongo" }, false},
		{"bad port", func(s *Settings) { s.Port = 70000 }, false},
		{"otel without interval", func(s *Settings) { s.OTelEndpoint = "collector:4318" }, false},
		{"otel with interval", func(s *Settings) { s.OTelEndpoint = "collector:4318"; s.OTelIntervalSeconds = 10 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := s.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestEngineConfigRejectsInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("ALGORITHM", "RS256")

	s, err := Load(WithEnvFile(""))
	require.NoError(t, err)
	_, err = s.EngineConfig()
	require.Error(t, err)
}
