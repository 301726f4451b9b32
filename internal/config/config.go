// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL    string `env:"DATABASE_URL,required,notEmpty"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	// Cache (Redis)
	RedisURL        string        `env:"REDIS_URL,required,notEmpty"`
	ListingCacheTTL time.Duration `env:"LISTING_CACHE_TTL" envDefault:"5m"`

	// Identity tokens (HS256)
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:""`

	// Comma-separated institutional email domains (e.g., "campus.edu,students.campus.edu")
	AllowedEmailDomains string `env:"ALLOWED_EMAIL_DOMAINS" envDefault:""`

	// Simulated unlock price recorded on the payment receipt
	UnlockPrice float64 `env:"UNLOCK_PRICE" envDefault:"20"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitEnabled   bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitUserRPS   int  `env:"RATE_LIMIT_USER_RPS" envDefault:"5"`
	RateLimitUserBurst int  `env:"RATE_LIMIT_USER_BURST" envDefault:"10"`
	RateLimitIPRPS     int  `env:"RATE_LIMIT_IP_RPS" envDefault:"50"`
	RateLimitIPBurst   int  `env:"RATE_LIMIT_IP_BURST" envDefault:"20"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 8MB, images arrive base64-encoded)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"8388608"`

	Storage    StorageConfig
	Moderation ModerationConfig
	Assistant  AssistantConfig
}

// StorageConfig configures the S3-compatible image store.
type StorageConfig struct {
	Endpoint      string `env:"S3_ENDPOINT" envDefault:"localhost:9000"`
	AccessKey     string `env:"S3_ACCESS_KEY" envDefault:""`
	SecretKey     string `env:"S3_SECRET_KEY" envDefault:""`
	Bucket        string `env:"S3_BUCKET" envDefault:"listing-images"`
	Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	UseSSL        bool   `env:"S3_USE_SSL" envDefault:"false"`
	PublicBaseURL string `env:"S3_PUBLIC_BASE_URL" envDefault:""`
	MaxImageBytes int64  `env:"MAX_IMAGE_BYTES" envDefault:"5242880"`
}

// ModerationConfig configures both image classifiers.
type ModerationConfig struct {
	SightengineURL    string        `env:"SIGHTENGINE_URL" envDefault:"https://api.sightengine.com/1.0/check.json"`
	SightengineUser   string        `env:"SIGHTENGINE_API_USER" envDefault:""`
	SightengineSecret string        `env:"SIGHTENGINE_API_SECRET" envDefault:""`
	HiveURL           string        `env:"HIVE_URL" envDefault:"https://api.thehive.ai/api/v3/hive/visual-moderation"`
	HiveAPIKey        string        `env:"HIVE_API_KEY" envDefault:""`
	Timeout           time.Duration `env:"MODERATION_TIMEOUT" envDefault:"15s"`
	RPS               float64       `env:"MODERATION_RPS" envDefault:"5"`
	RulesFile         string        `env:"MODERATION_RULES_FILE" envDefault:""`
	ModerateEdits     bool          `env:"MODERATE_EDITED_IMAGES" envDefault:"true"`
}

// AssistantConfig configures the OpenAI-compatible chat endpoint.
type AssistantConfig struct {
	BaseURL string        `env:"ASSISTANT_BASE_URL" envDefault:"https://api.openai.com/v1"`
	APIKey  string        `env:"ASSISTANT_API_KEY" envDefault:""`
	Model   string        `env:"ASSISTANT_MODEL" envDefault:"gpt-4o-mini"`
	Timeout time.Duration `env:"ASSISTANT_TIMEOUT" envDefault:"20s"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// GetAllowedEmailDomains returns the lower-cased institutional domains.
// An empty result means every domain is accepted.
func (c *Config) GetAllowedEmailDomains() []string {
	domains := splitList(c.AllowedEmailDomains)
	for i, d := range domains {
		domains[i] = strings.ToLower(strings.TrimPrefix(d, "@"))
	}
	return domains
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))

	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.IsProduction() && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 bytes in production")
	}
	return cfg, nil
}
