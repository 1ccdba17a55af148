package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requiredEnv is the minimum environment New accepts
func requiredEnv() map[string]string {
	return map[string]string{
		"OPENROUTER_API_KEY": "sk-or-test",
		"SITE_URL":           "http://localhost:3000",
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		errMsg  string
		check   func(*testing.T, *Config)
	}{
		{
			name:    "default configuration",
			envVars: requiredEnv(),
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "https://openrouter.ai/api/v1", cfg.Upstream.BaseURL)
				assert.Equal(t, "AI Chat Assistant", cfg.Upstream.AppTitle)
				assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
				assert.Equal(t, "mistralai/mistral-7b-instruct:free", cfg.Routing.DefaultModel)
				assert.Equal(t, []string{
					"google/gemini-2.0-flash-exp:free",
					"mistralai/mistral-7b-instruct:free",
				}, cfg.Routing.FallbackModels)
				assert.Equal(t, 500*time.Millisecond, cfg.Routing.AttemptDelay)
				assert.Equal(t, 0.7, cfg.Routing.Temperature)
				assert.Equal(t, 4000, cfg.Routing.MaxTokens)
				assert.True(t, cfg.RateLimit.Enabled)
				assert.True(t, cfg.Conversations.Enabled)
				assert.Equal(t, 1000, cfg.Conversations.MaxEntries)
				assert.Equal(t, []string{"http://localhost:*"}, cfg.CORS.AllowedOrigins)
			},
		},
		{
			name: "missing api key fails fast",
			envVars: map[string]string{
				"SITE_URL": "http://localhost:3000",
			},
			wantErr: true,
			errMsg:  "OPENROUTER_API_KEY is required",
		},
		{
			name: "missing site url fails fast",
			envVars: map[string]string{
				"OPENROUTER_API_KEY": "sk-or-test",
			},
			wantErr: true,
			errMsg:  "SITE_URL is required",
		},
		{
			name: "relative site url rejected",
			envVars: map[string]string{
				"OPENROUTER_API_KEY": "sk-or-test",
				"SITE_URL":           "localhost",
			},
			wantErr: true,
			errMsg:  "SITE_URL must be an absolute URL",
		},
		{
			name: "routing overrides",
			envVars: map[string]string{
				"OPENROUTER_API_KEY":  "sk-or-test",
				"SITE_URL":            "https://chat.example.com",
				"OPENROUTER_BASE_URL": "http://127.0.0.1:9999/api/v1/",
				"DEFAULT_MODEL":       "meta-llama/llama-3-8b-instruct:free",
				"FALLBACK_MODELS":     " a/b , ,c/d ",
				"ATTEMPT_DELAY":       "250ms",
				"REQUEST_DEADLINE":    "45s",
				"MAX_TOKENS":          "1024",
				"TEMPERATURE":         "1.2",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "http://127.0.0.1:9999/api/v1", cfg.Upstream.BaseURL)
				assert.Equal(t, "meta-llama/llama-3-8b-instruct:free", cfg.Routing.DefaultModel)
				assert.Equal(t, []string{"a/b", "c/d"}, cfg.Routing.FallbackModels)
				assert.Equal(t, 250*time.Millisecond, cfg.Routing.AttemptDelay)
				assert.Equal(t, 45*time.Second, cfg.Routing.RequestDeadline)
				assert.Equal(t, 1024, cfg.Routing.MaxTokens)
				assert.Equal(t, 1.2, cfg.Routing.Temperature)
			},
		},
		{
			name: "write timeout shorter than deadline",
			envVars: map[string]string{
				"OPENROUTER_API_KEY":   "sk-or-test",
				"SITE_URL":             "http://localhost:3000",
				"SERVER_WRITE_TIMEOUT": "10s",
			},
			wantErr: true,
			errMsg:  "must exceed the request deadline",
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"OPENROUTER_API_KEY": "sk-or-test",
				"SITE_URL":           "http://localhost:3000",
				"PORT":               "9443",
				"SERVER_PORT":        "9000",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "observability and rate limit configuration",
			envVars: map[string]string{
				"OPENROUTER_API_KEY": "sk-or-test",
				"SITE_URL":           "http://localhost:3000",
				"LOG_LEVEL":          "debug",
				"LOG_FORMAT":         "console",
				"RATE_LIMIT_ENABLED": "false",
				"RATE_LIMIT_RPS":     "0",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Observability.LogLevel)
				assert.Equal(t, "console", cfg.Observability.LogFormat)
				assert.False(t, cfg.RateLimit.Enabled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Server:      ServerConfig{WriteTimeout: 2 * time.Minute},
		Upstream: UpstreamConfig{
			APIKey:  "sk-or-test",
			BaseURL: "https://openrouter.ai/api/v1",
			SiteURL: "http://localhost:3000",
			Timeout: 30 * time.Second,
		},
		Routing: RoutingConfig{
			DefaultModel:    "mistralai/mistral-7b-instruct:free",
			AttemptDelay:    500 * time.Millisecond,
			RequestDeadline: 90 * time.Second,
			Temperature:     0.7,
			MaxTokens:       4000,
		},
		Observability: ObservabilityConfig{LogLevel: "info"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "negative attempt delay",
			mutate:  func(c *Config) { c.Routing.AttemptDelay = -time.Second },
			wantErr: true,
			errMsg:  "attempt delay cannot be negative",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.Routing.Temperature = 2.5 },
			wantErr: true,
			errMsg:  "temperature must be between 0 and 2",
		},
		{
			name:    "zero max tokens",
			mutate:  func(c *Config) { c.Routing.MaxTokens = 0 },
			wantErr: true,
			errMsg:  "max tokens must be positive",
		},
		{
			name:    "empty default model",
			mutate:  func(c *Config) { c.Routing.DefaultModel = "" },
			wantErr: true,
			errMsg:  "default model is required",
		},
		{
			name: "enabled rate limit needs a burst",
			mutate: func(c *Config) {
				c.RateLimit = RateLimitConfig{Enabled: true, RequestsPerSecond: 1}
			},
			wantErr: true,
			errMsg:  "rate limit burst must be positive",
		},
		{
			name:    "conversation store without capacity",
			mutate:  func(c *Config) { c.Conversations = ConversationsConfig{Enabled: true} },
			wantErr: true,
			errMsg:  "conversation store capacity must be positive",
		},
		{
			name:    "missing log level",
			mutate:  func(c *Config) { c.Observability.LogLevel = "" },
			wantErr: true,
			errMsg:  "log level is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{
		Host: "0.0.0.0",
		Port: 8080,
	}

	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestGetEnvAsList(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, []string{"a", "b"}, getEnvAsList("TEST_LIST", "a,b"))

	os.Setenv("TEST_LIST", "x/y, z ,,")
	assert.Equal(t, []string{"x/y", "z"}, getEnvAsList("TEST_LIST", "a,b"))
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "30s", 10 * time.Second, 30 * time.Second},
		{"empty value", "", 10 * time.Second, 10 * time.Second},
		{"invalid duration", "not-a-duration", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_DURATION", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", tt.defaultValue))
		})
	}
}
