package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const devJWTSecret = "default_super_secret_key"

// Config holds runtime configuration for the API server and the mail worker.
type Config struct {
	AppEnv    string `envconfig:"APP_ENV" default:"development"`
	Port      string `envconfig:"PORT" default:"8080"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"postgres"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	OTPTTL    time.Duration `envconfig:"OTP_TTL" default:"5m"`
	OTPLength int           `envconfig:"OTP_LENGTH" default:"6"`

	SMTPHost     string        `envconfig:"SMTP_HOST" default:"127.0.0.1"`
	SMTPPort     int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string        `envconfig:"SMTP_USER"`
	SMTPPassword string        `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string        `envconfig:"SMTP_FROM" default:"no-reply@rfqportal.local"`
	MailDelivery string        `envconfig:"MAIL_DELIVERY" default:"queue"`
	MailTimeout  time.Duration `envconfig:"MAIL_TIMEOUT" default:"10s"`

	RedisAddr    string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	AuthzChannel string `envconfig:"AUTHZ_CHANNEL" default:"authz:grants:changed"`

	GateExemptRoles []string `envconfig:"GATE_EXEMPT_ROLES" default:"admin,super-admin"`

	ClientURL      []string      `envconfig:"CLIENT_URL" default:"http://localhost:5173"`
	AuthRateLimit  int           `envconfig:"AUTH_RATE_LIMIT" default:"100"`
	AuthRateWindow time.Duration `envconfig:"AUTH_RATE_WINDOW" default:"10m"`

	SeedAdminEmail    string `envconfig:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `envconfig:"SEED_ADMIN_PASSWORD"`
}

// Load reads an optional .env file and then the process environment.
// A missing env file is not an error.
func Load(envFile string, logger *slog.Logger) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && logger != nil {
			logger.Info("no env file loaded", slog.String("path", envFile))
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", c.OTPLength)
	}
	if c.OTPTTL <= 0 {
		return errors.New("OTP_TTL must be positive")
	}
	switch c.MailDelivery {
	case "queue", "direct":
	default:
		return fmt.Errorf("MAIL_DELIVERY must be queue or direct, got %q", c.MailDelivery)
	}
	for i, r := range c.GateExemptRoles {
		c.GateExemptRoles[i] = strings.ToLower(strings.TrimSpace(r))
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// DSN assembles the Postgres connection string.
func (c *Config) DSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}
