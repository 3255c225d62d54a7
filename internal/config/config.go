package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Environment string `koanf:"environment"`

	ServerPort      string        `koanf:"server_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	DatabaseType string `koanf:"database_type"`
	DatabasePath string `koanf:"database_path"`
	DatabaseURL  string `koanf:"database_url"`

	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	CORSAllowedOrigins []string      `koanf:"cors_allowed_origins"`
	RateLimitRequests  int           `koanf:"rate_limit_requests"`
	RateLimitWindow    time.Duration `koanf:"rate_limit_window"`

	OpenLibraryURL           string        `koanf:"openlibrary_url"`
	CatalogTimeout           time.Duration `koanf:"catalog_timeout"`
	CatalogRequestsPerSecond float64       `koanf:"catalog_requests_per_second"`

	AWSRegion    string `koanf:"aws_region"`
	SESFromEmail string `koanf:"ses_from_email"`
	SESFromName  string `koanf:"ses_from_name"`
	AppBaseURL   string `koanf:"app_base_url"`

	GoogleClientID       string `koanf:"google_client_id"`
	GoogleClientSecret   string `koanf:"google_client_secret"`
	OAuthRedirectBaseURL string `koanf:"oauth_redirect_base_url"`
}

// defaultConfig returns the built-in defaults. A config file and the
// environment are layered on top in Load.
func defaultConfig() *Config {
	return &Config{
		Environment:     "development",
		ServerPort:      "3001",
		ShutdownTimeout: 30 * time.Second,

		DatabaseType: "sqlite",
		DatabasePath: "./bibliobalance.db",

		JWTSecret: "",
		TokenTTL:  7 * 24 * time.Hour,

		LogLevel:  "info",
		LogFormat: "json",

		CORSAllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:5173",
		},
		RateLimitRequests: 20,
		RateLimitWindow:   time.Minute,

		OpenLibraryURL:           "https://openlibrary.org",
		CatalogTimeout:           10 * time.Second,
		CatalogRequestsPerSecond: 5,

		AWSRegion:   "us-east-1",
		SESFromName: "Biblio Balance",
		AppBaseURL:  "http://localhost:5173",

		OAuthRedirectBaseURL: "http://localhost:3001",
	}
}

// devJWTSecret is only accepted when running in development.
const devJWTSecret = "bibliobalance-development-secret-change-me"

// IsProduction reports whether the server runs with production checks enabled.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// GoogleOAuthEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Validate checks the loaded configuration and fills development-only fallbacks.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "":
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for %s", c.DatabaseType))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database type: %s", c.DatabaseType))
	}

	if c.JWTSecret == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		} else {
			c.JWTSecret = devJWTSecret
		}
	} else if len(c.JWTSecret) < 32 && c.IsProduction() {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters in production"))
	}

	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.RateLimitRequests < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS must not be negative"))
	}
	if c.CatalogRequestsPerSecond <= 0 {
		errs = append(errs, errors.New("CATALOG_REQUESTS_PER_SECOND must be positive"))
	}

	return errors.Join(errs...)
}
