// Package app assembles the service's dependencies from configuration.
// Both the API server and the operator CLI build on it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-auth-verify/internal/auth"
	"github.com/redmonkez12/go-auth-verify/internal/config"
	"github.com/redmonkez12/go-auth-verify/internal/database"
	"github.com/redmonkez12/go-auth-verify/internal/email"
	"github.com/redmonkez12/go-auth-verify/internal/logging"
	"github.com/redmonkez12/go-auth-verify/internal/ratelimit"
	"github.com/redmonkez12/go-auth-verify/internal/session"
	"github.com/redmonkez12/go-auth-verify/internal/verification"
)

type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	SQL      *sql.DB
	DB       *bun.DB
	Redis    *redis.Client
	Store    *auth.BunStore
	Sessions *session.Manager
	Sender   email.Sender
	Limiter  *ratelimit.Limiter
	Service  *auth.Service

	// Worker is set when queued delivery is enabled. The caller starts it.
	Worker *email.Worker

	queue *asynq.Client
}

// New connects to Postgres and Redis and wires the auth service.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	sqlDB, err := database.Open(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.SQL = sqlDB
	a.DB = database.NewBunDB(sqlDB)

	a.Redis, err = initRedis(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	tokens, err := newTokenService(cfg.Session)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize session tokens: %w", err)
	}

	a.Sessions = session.NewManager(session.NewRedisStore(a.Redis), tokens, session.Config{
		CookieName: cfg.Session.CookieName,
		Duration:   cfg.Session.Duration,
		Secure:     !cfg.Server.IsDevelopment(),
	})

	a.Store = auth.NewBunStore(a.DB, verification.Config{
		Length: cfg.Verification.CodeLength,
		TTL:    cfg.Verification.CodeTTL,
	})

	transport, err := email.NewTransport(cfg.Email, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize email transport: %w", err)
	}
	templateSender := email.NewSender(transport, cfg.Email.From)
	a.Sender = templateSender

	if cfg.Email.QueueEnabled {
		opt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Address(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		a.queue = asynq.NewClient(opt)
		a.Sender = email.NewQueueSender(a.queue, cfg.Email.QueueMaxRetry)
		a.Worker = email.NewWorker(opt, templateSender, logger)
	}

	a.Limiter = ratelimit.NewLimiter(a.Redis, map[string]ratelimit.Rule{
		ratelimit.PurposeSignup: {Max: cfg.RateLimit.SignupMax, Window: cfg.RateLimit.Window},
		ratelimit.PurposeLogin:  {Max: cfg.RateLimit.LoginMax, Window: cfg.RateLimit.Window},
		ratelimit.PurposeVerify: {Max: cfg.RateLimit.VerifyMax, Window: cfg.RateLimit.Window},
	})

	a.Service = auth.NewService(
		a.Store,
		a.Sessions,
		auth.NewArgon2Hasher(),
		a.Sender,
		cfg.Email.DeliveryPolicy == config.DeliveryRequired,
	)

	return a, nil
}

// Close releases every connection the app opened.
func (a *App) Close() error {
	var errs []error
	if a.queue != nil {
		errs = append(errs, a.queue.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func newTokenService(cfg config.SessionConfig) (session.TokenService, error) {
	switch cfg.TokenFormat {
	case config.TokenFormatJWT:
		return session.NewJWTService([]byte(cfg.Secret))
	default:
		return session.NewPasetoService([]byte(cfg.Secret))
	}
}

func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
