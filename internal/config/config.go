package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/welldanyogia/webrana-mailguard-backend/internal/validator"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all configuration for the application
type Config struct {
	AppEnv string

	// Server ports
	APIPort  int
	SMTPPort int

	// Inbound SMTP
	SMTPEnabled bool
	SMTPDomain  string

	// Database
	DatabaseDriver string
	DatabaseURL    string

	// Redis is optional; sessions and the classifier cache use it when set
	RedisURL   string
	SessionTTL time.Duration

	// Risk classification backend; empty URL means every message gets the fallback verdict
	ClassifierURL      string
	ClassifierAPIKey   string
	ClassifierTimeout  time.Duration
	ClassifierCacheTTL time.Duration

	// Seeding
	SeedDemoData bool
	SeedFile     string

	// Logging
	LogLevel string

	// Security
	AllowedOrigins string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnvOrDefault("APP_ENV", EnvDevelopment),
		SMTPDomain:       getEnvOrDefault("SMTP_DOMAIN", "localhost"),
		DatabaseDriver:   strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", "postgres")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		ClassifierURL:    os.Getenv("CLASSIFIER_URL"),
		ClassifierAPIKey: os.Getenv("CLASSIFIER_API_KEY"),
		SeedFile:         os.Getenv("SEED_FILE"),
		LogLevel:         strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		AllowedOrigins:   os.Getenv("ALLOWED_ORIGINS"),
	}

	if cfg.DatabaseURL == "" {
		if cfg.DatabaseDriver != "sqlite" {
			return nil, fmt.Errorf("DATABASE_URL is required but not set")
		}
		cfg.DatabaseURL = "mailguard.db"
	}

	var err error
	if cfg.APIPort, err = getEnvInt("API_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getEnvInt("SMTP_PORT", 2525); err != nil {
		return nil, err
	}
	if cfg.SMTPEnabled, err = getEnvBool("SMTP_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ClassifierTimeout, err = getEnvDuration("CLASSIFIER_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ClassifierCacheTTL, err = getEnvDuration("CLASSIFIER_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	// Demo accounts have published credentials, so seeding is opt-in outside development
	if cfg.SeedDemoData, err = getEnvBool("SEED_DEMO_DATA", cfg.AppEnv == EnvDevelopment); err != nil {
		return nil, err
	}

	// Rate limiting configuration
	cfg.RateLimitRequests = 10.0
	if rps := os.Getenv("RATE_LIMIT_REQUESTS"); rps != "" {
		v, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_REQUESTS must be a valid number: %w", err)
		}
		cfg.RateLimitRequests = v
	}
	if cfg.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.IsProduction() {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// Origins returns ALLOWED_ORIGINS split on commas
func (c *Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		return fmt.Errorf("DatabaseDriver must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("SMTPPort must be between 1 and 65535")
	}
	if c.SMTPEnabled && c.SMTPPort == c.APIPort {
		return fmt.Errorf("SMTPPort and APIPort must differ")
	}
	if err := validator.ValidateDomain(c.SMTPDomain); err != nil {
		return fmt.Errorf("SMTPDomain %q: %w", c.SMTPDomain, err)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SessionTTL must be positive")
	}
	if c.ClassifierTimeout <= 0 {
		return fmt.Errorf("ClassifierTimeout must be positive")
	}
	if c.ClassifierURL != "" {
		u, err := url.Parse(c.ClassifierURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("ClassifierURL must be an absolute http(s) URL")
		}
	}
	if c.RateLimitRequests <= 0 {
		return fmt.Errorf("RateLimitRequests must be positive")
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("RateLimitBurst must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LogLevel must be one of debug, info, warn, error")
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	// Check for wildcard in production
	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	if c.DatabaseDriver == "sqlite" {
		return fmt.Errorf("sqlite is not supported in production")
	}

	// Check for sslmode=disable in database URL
	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	if c.SeedDemoData {
		return fmt.Errorf("SEED_DEMO_DATA must be disabled in production")
	}

	if c.ClassifierURL != "" && !strings.HasPrefix(c.ClassifierURL, "https://") {
		return fmt.Errorf("CLASSIFIER_URL must use https in production")
	}

	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.String("app_env", c.AppEnv),
		slog.Int("api_port", c.APIPort),
		slog.Int("smtp_port", c.SMTPPort),
		slog.Bool("smtp_enabled", c.SMTPEnabled),
		slog.String("smtp_domain", c.SMTPDomain),
		slog.String("database_driver", c.DatabaseDriver),
		slog.Bool("redis_set", c.RedisURL != ""),
		slog.Duration("session_ttl", c.SessionTTL),
		slog.Bool("classifier_set", c.ClassifierURL != ""),
		slog.Bool("classifier_api_key_set", c.ClassifierAPIKey != ""),
		slog.Duration("classifier_timeout", c.ClassifierTimeout),
		slog.Bool("seed_demo_data", c.SeedDemoData),
		slog.Bool("seed_file_set", c.SeedFile != ""),
		slog.String("log_level", c.LogLevel),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return v, nil
}
