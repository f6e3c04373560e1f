package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/config"
	"github.com/MrEthical07/authcore/internal/httpapi"
	"github.com/MrEthical07/authcore/mail"
	"github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/MrEthical07/authcore/store/memory"
	"github.com/MrEthical07/authcore/store/postgres"
	"github.com/MrEthical07/authcore/store/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configFile = flag.String("config", "", "optional YAML config file")
		envFile    = flag.String("env-file", ".env", "dotenv file loaded when present")
	)
	flag.Parse()

	settings, err := config.Load(config.WithConfigFile(*configFile), config.WithEnvFile(*envFile))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(settings)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, settings *config.Settings, logger zerolog.Logger) error {
	engineCfg, err := settings.EngineConfig()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	builder := authcore.New().
		WithConfig(engineCfg).
		WithStore(store).
		WithMailer(newMailer(settings, logger)).
		WithLogger(logger)
	if settings.AuditStream {
		builder = builder.WithAuditSink(audit.NewJSONWriterSink(os.Stdout))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	if settings.OTelEnabled() {
		stopOTel, err := startOTel(ctx, settings, engine, logger)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			stopOTel(flushCtx)
		}()
	}

	srv := &http.Server{
		Addr: settings.Addr(),
		Handler: httpapi.NewRouter(engine, httpapi.Options{
			CORSOrigins:  settings.Origins(),
			CookieSecure: settings.CookieSecure,
			Logger:       logger,
			Metrics:      prometheus.NewPrometheusExporter(engine).Handler(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("store", settings.Store).
			Strs("cors_origins", settings.Origins()).
			Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, settings *config.Settings, logger zerolog.Logger) (account.Store, func(), error) {
	switch settings.Store {
	case config.StoreRedis:
		opts, err := redis.ParseURL(settings.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.Info().Str("addr", opts.Addr).Msg("redis store ready")
		return redisstore.New(client, redisstore.Options{}), func() { _ = client.Close() }, nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, settings.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.New(db)
		if settings.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
			logger.Info().Msg("database migrations applied")
		}
		return store, func() { _ = db.Close() }, nil

	default:
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	}
}

func newMailer(settings *config.Settings, logger zerolog.Logger) authcore.Mailer {
	m := mail.NewSMTPMailer(settings.MailConfig(), logger)
	if m.Configured() {
		return m
	}
	logger.Warn().Msg("GMAIL_EMAIL or GMAIL_APP_PASSWORD not set; reset links are logged instead of sent")
	return mail.LogMailer{FrontendURL: settings.MailConfig().FrontendURL, Logger: logger}
}

func newLogger(settings *config.Settings) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(settings.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	switch strings.ToLower(settings.LogFormat) {
	case "console", "pretty":
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	default:
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("service", "authcore").Logger()
}
