// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"-"`

	// Database Configuration
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"`
	DBSource          string        `mapstructure:"DB_SOURCE"`
	StoreTimeout      time.Duration `mapstructure:"-"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Clerk (identity provider) Configuration
	ClerkSecretKey         string        `mapstructure:"CLERK_SECRET_KEY"`
	ClerkJWTKey            string        `mapstructure:"CLERK_JWT_KEY"`
	ClerkAPIURL            string        `mapstructure:"CLERK_API_URL"`
	ClerkAuthorizedParties []string      `mapstructure:"-"`
	ClerkJWKSCacheTTL      time.Duration `mapstructure:"-"`

	// Webhook Configuration
	ClerkWebhookSecret        string `mapstructure:"CLERK_WEBHOOK_SECRET"`
	WebhookStrictVerification bool   `mapstructure:"WEBHOOK_STRICT_VERIFICATION"`
	WebhookMaxBodyBytes       int64  `mapstructure:"WEBHOOK_MAX_BODY_BYTES"`

	// HTTP surface
	RateLimitPerMinute int      `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	CORSAllowedOrigins []string `mapstructure:"-"`
	MetricsEnabled     bool     `mapstructure:"METRICS_ENABLED"`

	// Cron Jobs
	TestUserCleanupSchedule string        `mapstructure:"TEST_USER_CLEANUP_SCHEDULE"`
	TestUserRetention       time.Duration `mapstructure:"-"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Durations are configured as plain numbers in their unit, so they bypass Unmarshal.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.StoreTimeout = time.Duration(v.GetInt("STORE_TIMEOUT_SECONDS")) * time.Second
	cfg.ClerkJWKSCacheTTL = time.Duration(v.GetInt("CLERK_JWKS_CACHE_TTL_MINUTES")) * time.Minute
	cfg.TestUserRetention = time.Duration(v.GetInt("TEST_USER_RETENTION_HOURS")) * time.Hour

	cfg.ClerkAuthorizedParties = splitList(v.GetString("CLERK_AUTHORIZED_PARTIES"))
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))

	// DB_SOURCE is shared by gorm and golang-migrate, so it must be a URL.
	if strings.TrimSpace(cfg.DBSource) == "" {
		cfg.DBSource = cfg.BuildDBSource()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "3001")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "prompthub")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_SOURCE", "")
	v.SetDefault("STORE_TIMEOUT_SECONDS", 10)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("CLERK_SECRET_KEY", "")
	v.SetDefault("CLERK_JWT_KEY", "")
	v.SetDefault("CLERK_API_URL", "https://api.clerk.com/v1")
	v.SetDefault("CLERK_AUTHORIZED_PARTIES", "")
	v.SetDefault("CLERK_JWKS_CACHE_TTL_MINUTES", 60)

	v.SetDefault("CLERK_WEBHOOK_SECRET", "")
	v.SetDefault("WEBHOOK_STRICT_VERIFICATION", false)
	v.SetDefault("WEBHOOK_MAX_BODY_BYTES", 1<<20)

	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("METRICS_ENABLED", true)

	v.SetDefault("TEST_USER_CLEANUP_SCHEDULE", "")
	v.SetDefault("TEST_USER_RETENTION_HOURS", 168)
}

// BuildDBSource assembles a postgres:// URL from the individual DB_* settings.
func (c *Config) BuildDBSource() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   c.DBHost + ":" + c.DBPort,
		Path:   "/" + c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", c.DBSSLMode)
	if c.DBTimezone != "" {
		q.Set("timezone", c.DBTimezone)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.ClerkSecretKey) == "" && strings.TrimSpace(c.ClerkJWTKey) == "" {
		return fmt.Errorf("FATAL: neither CLERK_SECRET_KEY nor CLERK_JWT_KEY is set. One is required to verify session tokens")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT_SECONDS must be positive")
	}
	if c.WebhookMaxBodyBytes <= 0 {
		return fmt.Errorf("WEBHOOK_MAX_BODY_BYTES must be positive")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
