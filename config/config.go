package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultBaseURL      = "https://openrouter.ai/api/v1"
	defaultModel        = "mistralai/mistral-7b-instruct:free"
	defaultFallbacks    = "google/gemini-2.0-flash-exp:free,mistralai/mistral-7b-instruct:free"
	defaultAppTitle     = "AI Chat Assistant"
	defaultCORSOrigins  = "http://localhost:*"
	defaultTemperature  = 0.7
	defaultMaxTokens    = 4000
	defaultAttemptDelay = 500 * time.Millisecond
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Upstream      UpstreamConfig
	Routing       RoutingConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Conversations ConversationsConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// UpstreamConfig holds the OpenRouter connection settings.
// APIKey and SiteURL have no defaults and must be provided.
type UpstreamConfig struct {
	APIKey   string
	BaseURL  string
	SiteURL  string // sent as HTTP-Referer
	AppTitle string // sent as X-Title
	Timeout  time.Duration
}

// RoutingConfig holds the model fallback settings
type RoutingConfig struct {
	DefaultModel    string
	FallbackModels  []string
	AttemptDelay    time.Duration
	RequestDeadline time.Duration
	Temperature     float64
	MaxTokens       int
}

// RateLimitConfig holds inbound per-client rate limiting settings
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// CORSConfig holds cross-origin settings for the browser UI
type CORSConfig struct {
	AllowedOrigins []string
}

// ConversationsConfig toggles the in-memory conversation store
type ConversationsConfig struct {
	Enabled bool

	// MaxEntries caps stored conversations; the least recently used go first
	MaxEntries int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Upstream: UpstreamConfig{
			APIKey:   getEnv("OPENROUTER_API_KEY", ""),
			BaseURL:  strings.TrimRight(getEnv("OPENROUTER_BASE_URL", defaultBaseURL), "/"),
			SiteURL:  getEnv("SITE_URL", ""),
			AppTitle: getEnv("APP_TITLE", defaultAppTitle),
			Timeout:  getEnvAsDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		},
		Routing: RoutingConfig{
			DefaultModel:    getEnv("DEFAULT_MODEL", defaultModel),
			FallbackModels:  getEnvAsList("FALLBACK_MODELS", defaultFallbacks),
			AttemptDelay:    getEnvAsDuration("ATTEMPT_DELAY", defaultAttemptDelay),
			RequestDeadline: getEnvAsDuration("REQUEST_DEADLINE", 90*time.Second),
			Temperature:     getEnvAsFloat("TEMPERATURE", defaultTemperature),
			MaxTokens:       getEnvAsInt("MAX_TOKENS", defaultMaxTokens),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 1),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		},
		Conversations: ConversationsConfig{
			Enabled:    getEnvAsBool("CONVERSATIONS_ENABLED", true),
			MaxEntries: getEnvAsInt("CONVERSATIONS_MAX", 1000),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Upstream credentials have no built-in fallback
	if c.Upstream.APIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if c.Upstream.SiteURL == "" {
		return fmt.Errorf("SITE_URL is required")
	}
	if err := validateAbsoluteURL("SITE_URL", c.Upstream.SiteURL); err != nil {
		return err
	}
	if err := validateAbsoluteURL("OPENROUTER_BASE_URL", c.Upstream.BaseURL); err != nil {
		return err
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}

	// Routing validation
	if c.Routing.DefaultModel == "" {
		return fmt.Errorf("default model is required")
	}
	if c.Routing.AttemptDelay < 0 {
		return fmt.Errorf("attempt delay cannot be negative")
	}
	if c.Routing.RequestDeadline <= 0 {
		return fmt.Errorf("request deadline must be positive")
	}
	if c.Routing.Temperature < 0 || c.Routing.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Routing.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive")
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.Routing.RequestDeadline {
		return fmt.Errorf("server write timeout (%s) must exceed the request deadline (%s)",
			c.Server.WriteTimeout, c.Routing.RequestDeadline)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate limit requests per second must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive")
		}
	}

	if c.Conversations.Enabled && c.Conversations.MaxEntries <= 0 {
		return fmt.Errorf("conversation store capacity must be positive")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func validateAbsoluteURL(name, value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, value)
	}
	return nil
}

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blank entries
func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
