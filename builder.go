package authcore

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/lockout"
	"github.com/MrEthical07/authcore/internal/reset"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
)

// Builder assembles an Engine from its collaborators. A Builder can be used
// for a single Build.
type Builder struct {
	config Config

	store     account.Store
	auditLog  account.AuditLog
	auditSink audit.Sink
	mailer    Mailer
	logger    *zerolog.Logger
	clock     func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the account persistence collaborator. Required.
func (b *Builder) WithStore(s account.Store) *Builder {
	b.store = s
	return b
}

// WithAuditLog sets where audit events are appended and read back. When
// omitted, the Store is used if it also implements account.AuditLog.
func (b *Builder) WithAuditLog(l account.AuditLog) *Builder {
	b.auditLog = l
	return b
}

// WithAuditSink adds a secondary sink, such as a JSON line writer, that
// receives every event after the audit log.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithMailer sets the reset-email collaborator. Without one, reset tokens
// are still issued but never delivered.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = &l
	return b
}

// WithClock injects the time source used for every expiry decision.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, constructs the hasher, token codec,
// lockout policy and reset manager, and starts the audit dispatcher when
// async audit is configured.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("account store required")
	}
	auditLog := b.auditLog
	if auditLog == nil {
		l, ok := b.store.(account.AuditLog)
		if !ok {
			return nil, errors.New("audit log required")
		}
		auditLog = l
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}
	logger = logger.With().Str("component", "authcore").Logger()

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	hasher, err := password.New(cfg.passwordParams())
	if err != nil {
		return nil, err
	}

	codec, err := jwt.NewCodec(jwt.Config{
		Secret:     cloneBytes(cfg.JWT.Secret),
		Method:     jwt.SigningMethod(cfg.JWT.SigningMethod),
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
		Leeway:     cfg.JWT.Leeway,
		KeyID:      cfg.JWT.KeyID,
		VerifyKeys: cfg.JWT.VerifyKeys,
		Now:        clock,
	})
	if err != nil {
		return nil, err
	}

	resets, err := reset.NewManager(cfg.PasswordReset.TokenTTL)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		auditLog: auditLog,
		mailer:   b.mailer,
		logger:   logger,
		clock:    clock,
		hasher:   hasher,
		codec:    codec,
		lockout: lockout.Policy{
			Threshold: cfg.Lockout.MaxAttempts,
			Duration:  cfg.Lockout.Duration,
		},
		resets:   resets,
		validate: newValidator(),
		metrics:  NewMetrics(cfg.Metrics),
		sleep:    sleepContext,
	}

	sinks := audit.MultiSink{audit.NewStoreSink(auditLog, engine.auditFailed)}
	if b.auditSink != nil {
		sinks = append(sinks, b.auditSink)
	}
	engine.sink = sinks
	if cfg.Audit.Async {
		engine.dispatcher = audit.NewDispatcher(audit.Config{
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			OnDrop:     engine.auditDropped,
		}, sinks)
		engine.sink = engine.dispatcher
	}
	if b.mailer == nil {
		logger.Warn().Msg("no mailer configured; password reset emails will not be delivered")
	}

	b.built = true

	return engine, nil
}
