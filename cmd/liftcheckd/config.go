package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Host        string
	Port        int
	Environment string
	LogLevel    string

	// Database settings
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	DBMaxConns int
	DBMinConns int

	// Template settings
	TemplateProvider string
	TemplateDir      string
	TemplateCacheTTL time.Duration

	// Email settings
	EmailProvider      string
	EmailPostmarkToken string
	EmailFromAddress   string
	EmailFromName      string
	EmailReviewBaseURL string
	AdminEmails        []string

	// Storage settings
	StorageProvider  string
	StorageLocalPath string
	StorageLocalURL  string
	StorageS3Bucket  string
	StorageS3Region  string
	StorageS3BaseURL string

	// Upload rate limiting, per technician
	UploadRate  float64
	UploadBurst int

	// Metrics settings
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		// Server settings
		Host:        envString(getenv, "SERVER_HOST", "localhost"),
		Port:        envInt(getenv, "SERVER_PORT", 8080),
		Environment: envString(getenv, "ENVIRONMENT", "dev"),
		LogLevel:    envString(getenv, "LOG_LEVEL", "info"),

		// Database settings
		DBUser:     envString(getenv, "DB_USER", "postgres"),
		DBPassword: envString(getenv, "DB_PASSWORD", ""),
		DBHost:     envString(getenv, "DB_HOSTNAME", "localhost"),
		DBPort:     envString(getenv, "DB_PORT", "5432"),
		DBName:     envString(getenv, "DB_NAME", "postgres"),
		DBMaxConns: envInt(getenv, "DB_MAX_CONNS", 25),
		DBMinConns: envInt(getenv, "DB_MIN_CONNS", 5),

		// Template settings
		TemplateProvider: envString(getenv, "TEMPLATE_PROVIDER", "file"),
		TemplateDir:      envString(getenv, "TEMPLATE_DIR", ""),
		TemplateCacheTTL: envDuration(getenv, "TEMPLATE_CACHE_TTL", 5*time.Minute),

		// Email settings
		EmailProvider:      envString(getenv, "EMAIL_PROVIDER", "mock"),
		EmailPostmarkToken: envString(getenv, "POSTMARK_SERVER_TOKEN", ""),
		EmailFromAddress:   envString(getenv, "EMAIL_FROM_ADDRESS", "noreply@example.com"),
		EmailFromName:      envString(getenv, "EMAIL_FROM_NAME", "Liftcheck"),
		EmailReviewBaseURL: envString(getenv, "EMAIL_REVIEW_BASE_URL", "http://localhost:8080"),
		AdminEmails:        envList(getenv, "ADMIN_EMAILS"),

		// Storage settings
		StorageProvider:  envString(getenv, "STORAGE_PROVIDER", "local"),
		StorageLocalPath: envString(getenv, "STORAGE_LOCAL_PATH", "./uploads"),
		StorageLocalURL:  envString(getenv, "STORAGE_LOCAL_URL", "http://localhost:8080/uploads"),
		StorageS3Bucket:  envString(getenv, "STORAGE_S3_BUCKET", ""),
		StorageS3Region:  envString(getenv, "STORAGE_S3_REGION", "us-east-1"),
		StorageS3BaseURL: envString(getenv, "STORAGE_S3_BASE_URL", ""),

		// Upload rate limiting
		UploadRate:  envFloat(getenv, "UPLOAD_RATE_LIMIT", 2),
		UploadBurst: envInt(getenv, "UPLOAD_RATE_BURST", 10),

		// Metrics settings
		MetricsEnabled: envBool(getenv, "METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// IsProduction reports whether the environment is prod or production.
func (c *Config) IsProduction() bool {
	return c.Environment == "prod" || c.Environment == "production"
}

// validate checks provider names and production requirements.
func (c *Config) validate() error {
	switch c.TemplateProvider {
	case "file", "postgres":
	default:
		return fmt.Errorf("unknown TEMPLATE_PROVIDER %q", c.TemplateProvider)
	}
	switch c.StorageProvider {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown STORAGE_PROVIDER %q", c.StorageProvider)
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}
	if c.StorageProvider == "s3" && c.StorageS3Bucket == "" {
		return fmt.Errorf("STORAGE_S3_BUCKET must be set when STORAGE_PROVIDER is s3")
	}

	if c.IsProduction() {
		if c.EmailProvider == "postmark" && c.EmailPostmarkToken == "" {
			return fmt.Errorf("POSTMARK_SERVER_TOKEN must be set in production environment")
		}
	}
	return nil
}

// withDotEnv returns a getenv that falls back to values from the .env file
// at path. Real environment variables always win. A missing file is ignored.
func withDotEnv(getenv func(string) string, path string) (func(string) string, error) {
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return getenv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return values[key]
	}, nil
}

// Helper functions for loading environment variables with defaults.

func envString(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(getenv func(string) string, key string, defaultValue int) int {
	if value := getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func envFloat(getenv func(string) string, key string, defaultValue float64) float64 {
	if value := getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func envBool(getenv func(string) string, key string, defaultValue bool) bool {
	if value := getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func envDuration(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	if value := getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// envList splits a comma-separated value, dropping blanks.
func envList(getenv func(string) string, key string) []string {
	var out []string
	for _, part := range strings.Split(getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
