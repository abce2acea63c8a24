package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Session      SessionConfig
	Verification VerificationConfig
	Email        EmailConfig
	RateLimit    RateLimitConfig
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	Env             string        `env:"APP_ENV" envDefault:"dev"` // dev or prod
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	TrustedOrigins  []string      `env:"TRUSTED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

type DatabaseConfig struct {
	Host           string `env:"DB_HOST" envDefault:"localhost"`
	Port           string `env:"DB_PORT" envDefault:"5432"`
	User           string `env:"DB_USER" envDefault:"postgres"`
	Password       string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName         string `env:"DB_NAME" envDefault:"goauth"`
	SSLMode        string `env:"DB_SSLMODE" envDefault:"disable"`
	ChannelBinding string `env:"DB_CHANNEL_BINDING"` // "require" for Neon DB, empty for local
	AutoMigrate    bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// SessionConfig controls session cookies. Secret must be 32 bytes: it is the
// PASETO v4.local key or the HS256 secret depending on TokenFormat.
type SessionConfig struct {
	TokenFormat string        `env:"SESSION_TOKEN_FORMAT" envDefault:"paseto"`
	Secret      string        `env:"SESSION_SECRET,required"`
	CookieName  string        `env:"SESSION_COOKIE_NAME" envDefault:"auth_session"`
	Duration    time.Duration `env:"SESSION_DURATION" envDefault:"720h"`
}

type VerificationConfig struct {
	CodeLength     int           `env:"VERIFICATION_CODE_LENGTH" envDefault:"8"`
	CodeTTL        time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"15m"`
	ResendCooldown time.Duration `env:"VERIFICATION_RESEND_COOLDOWN" envDefault:"2m"`
}

type EmailConfig struct {
	Provider       string `env:"EMAIL_PROVIDER" envDefault:"log"` // resend, smtp or log
	APIKey         string `env:"EMAIL_API_KEY"`
	From           string `env:"EMAIL_FROM" envDefault:"verification@example.com"`
	SMTPHost       string `env:"SMTP_HOST"`
	SMTPPort       string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser       string `env:"SMTP_USER"`
	SMTPPassword   string `env:"SMTP_PASS"`
	DeliveryPolicy string `env:"EMAIL_DELIVERY_POLICY" envDefault:"best_effort"`
	QueueEnabled   bool   `env:"EMAIL_QUEUE_ENABLED" envDefault:"false"`
	QueueMaxRetry  int    `env:"EMAIL_QUEUE_MAX_RETRY" envDefault:"5"`
}

type RateLimitConfig struct {
	Window    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	SignupMax int           `env:"RATE_LIMIT_SIGNUP" envDefault:"10"`
	LoginMax  int           `env:"RATE_LIMIT_LOGIN" envDefault:"20"`
	VerifyMax int           `env:"RATE_LIMIT_VERIFY" envDefault:"5"`
}

const (
	TokenFormatPaseto = "paseto"
	TokenFormatJWT    = "jwt"

	EmailProviderResend = "resend"
	EmailProviderSMTP   = "smtp"
	EmailProviderLog    = "log"

	DeliveryBestEffort = "best_effort"
	DeliveryRequired   = "required"
)

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads configuration from the current environment without touching .env
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Session.Secret) != 32 {
		return fmt.Errorf("SESSION_SECRET must be exactly 32 bytes, got %d", len(c.Session.Secret))
	}

	switch c.Session.TokenFormat {
	case TokenFormatPaseto, TokenFormatJWT:
	default:
		return fmt.Errorf("unsupported SESSION_TOKEN_FORMAT %q", c.Session.TokenFormat)
	}

	if c.Session.Duration <= 0 {
		return fmt.Errorf("SESSION_DURATION must be positive")
	}

	if c.Verification.CodeLength < 6 || c.Verification.CodeLength > 12 {
		return fmt.Errorf("VERIFICATION_CODE_LENGTH must be between 6 and 12, got %d", c.Verification.CodeLength)
	}
	if c.Verification.CodeTTL <= 0 {
		return fmt.Errorf("VERIFICATION_CODE_TTL must be positive")
	}

	switch c.Email.Provider {
	case EmailProviderResend:
		if c.Email.APIKey == "" {
			return fmt.Errorf("EMAIL_API_KEY is required for the resend provider")
		}
	case EmailProviderSMTP:
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required for the smtp provider")
		}
	case EmailProviderLog:
	default:
		return fmt.Errorf("unsupported EMAIL_PROVIDER %q", c.Email.Provider)
	}

	switch c.Email.DeliveryPolicy {
	case DeliveryBestEffort, DeliveryRequired:
	default:
		return fmt.Errorf("unsupported EMAIL_DELIVERY_POLICY %q", c.Email.DeliveryPolicy)
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}
