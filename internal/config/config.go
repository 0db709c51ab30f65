package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const minSecretBytes = 32

// OAuthProvider holds the credentials for one external login provider.
// A provider is considered configured when both ClientID and ClientSecret
// are present.
type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (p OAuthProvider) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type Config struct {
	// Server
	Port        string `env:"PORT" envDefault:"8080"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Database
	DBDriver   string `env:"DB_DRIVER" envDefault:"memory"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"stackstart"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// JWT
	JWTSecret        string        `env:"JWT_SECRET"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"168h"`

	// Frontend
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// Error tracking
	SentryDSN string `env:"SENTRY_DSN"`

	// OAuth providers
	GoogleClientID       string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL    string `env:"GOOGLE_REDIRECT_URI"`
	FacebookClientID     string `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"FACEBOOK_CLIENT_SECRET"`
	FacebookRedirectURL  string `env:"FACEBOOK_REDIRECT_URI"`
	TwitterClientID      string `env:"TWITTER_CLIENT_ID"`
	TwitterClientSecret  string `env:"TWITTER_CLIENT_SECRET"`
	TwitterRedirectURL   string `env:"TWITTER_REDIRECT_URI"`
}

// Load parses configuration from the environment and validates the parts
// the server refuses to run without.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.JWTSecret) < minSecretBytes {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes, got %d", minSecretBytes, len(c.JWTSecret))
	}
	if c.DBDriver != "memory" && c.DBDriver != "postgres" {
		return errors.New("DB_DRIVER must be one of: memory, postgres")
	}
	if c.DBDriver == "postgres" && c.DBPassword == "" {
		return errors.New("DB_PASSWORD is required when DB_DRIVER=postgres")
	}
	return nil
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) Google() OAuthProvider {
	return OAuthProvider{c.GoogleClientID, c.GoogleClientSecret, c.GoogleRedirectURL}
}

func (c *Config) Facebook() OAuthProvider {
	return OAuthProvider{c.FacebookClientID, c.FacebookClientSecret, c.FacebookRedirectURL}
}

func (c *Config) Twitter() OAuthProvider {
	return OAuthProvider{c.TwitterClientID, c.TwitterClientSecret, c.TwitterRedirectURL}
}
