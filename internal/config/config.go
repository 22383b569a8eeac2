// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full set of runtime settings.
type Config struct {
	Port        string   `env:"PORT"         envDefault:"3000"`
	Environment string   `env:"APP_ENV"      envDefault:"development"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173,http://127.0.0.1:5173" envSeparator:","`
	UploadDir   string   `env:"UPLOAD_DIR"   envDefault:"./uploads"`

	Database Database
	Session  Session
	Ticket   Ticket
	OTP      OTP
	SMTP     SMTP
	Admin    Admin
}

// Database holds PostgreSQL connection settings. URL wins over the parts.
type Database struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST"     envDefault:"localhost"`
	Port     string `env:"DB_PORT"     envDefault:"5432"`
	User     string `env:"DB_USER"     envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME"     envDefault:"gala"`
	SSLMode  string `env:"DB_SSLMODE"  envDefault:"disable"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"20"`
}

// DSN builds a libpq-compatible connection string.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Session controls login tokens.
type Session struct {
	SigningKey   string        `env:"SESSION_SIGNING_KEY"`
	TTL          time.Duration `env:"SESSION_TTL"   envDefault:"168h"`
	CookieName   string        `env:"SESSION_COOKIE" envDefault:"gala_session"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

// Ticket controls QR ticket tokens.
type Ticket struct {
	SigningKey string `env:"TICKET_SIGNING_KEY"`
	Issuer     string `env:"TICKET_ISSUER"   envDefault:"gala"`
	BaseURL    string `env:"TICKET_BASE_URL" envDefault:"http://localhost:5173"`
}

// OTP controls one-time codes.
type OTP struct {
	TTL         time.Duration `env:"OTP_TTL"          envDefault:"10m"`
	MaxAttempts int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
}

// SMTP configures outgoing mail. An empty Host logs mail instead of sending it.
type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"Gala <no-reply@gala.local>"`
}

// Admin bootstraps the first administrator account.
type Admin struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
	Name     string `env:"ADMIN_NAME" envDefault:"Administrator"`
}

// Production reports whether the service runs in production mode.
func (c Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load parses the environment and checks required secrets.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if len(c.Session.SigningKey) < 32 {
		errs = append(errs, errors.New("SESSION_SIGNING_KEY must be at least 32 bytes"))
	}
	if len(c.Ticket.SigningKey) < 32 {
		errs = append(errs, errors.New("TICKET_SIGNING_KEY must be at least 32 bytes"))
	}
	if c.Session.SigningKey != "" && c.Session.SigningKey == c.Ticket.SigningKey {
		errs = append(errs, errors.New("SESSION_SIGNING_KEY and TICKET_SIGNING_KEY must differ"))
	}
	if c.OTP.TTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	if c.OTP.MaxAttempts < 1 {
		errs = append(errs, errors.New("OTP_MAX_ATTEMPTS must be at least 1"))
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}
