package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/chat-fallback-router/config"
	"github.com/upb/chat-fallback-router/middleware"
	"github.com/upb/chat-fallback-router/services/conversation"
	"github.com/upb/chat-fallback-router/services/providers"
	"github.com/upb/chat-fallback-router/services/providers/openrouter"
	"github.com/upb/chat-fallback-router/services/routing"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Upstream LLM API
	Upstream *openrouter.Adapter

	// Model fallback router
	Router *routing.Service

	// Conversations is nil when the store is disabled
	Conversations *conversation.Store

	// RateLimiter is nil when inbound rate limiting is disabled
	RateLimiter *middleware.RateLimiter
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initUpstream(cfg)
	deps.initRouter(cfg)
	deps.initConversations(cfg)
	deps.initRateLimiter(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("environment", cfg.Environment),
		zap.String("default_model", cfg.Routing.DefaultModel),
		zap.Strings("fallback_models", cfg.Routing.FallbackModels))
	return deps, nil
}

// initUpstream builds the OpenRouter adapter
func (d *Dependencies) initUpstream(cfg *config.Config) {
	d.Upstream = openrouter.NewAdapter(providers.ProviderConfig{
		APIKey:  cfg.Upstream.APIKey,
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
		Headers: map[string]string{
			"HTTP-Referer": cfg.Upstream.SiteURL,
			"X-Title":      cfg.Upstream.AppTitle,
		},
	})
	d.Logger.Info("upstream adapter initialized",
		zap.String("provider", d.Upstream.Name()),
		zap.String("base_url", cfg.Upstream.BaseURL))
}

// initRouter builds the model fallback router over the upstream adapter
func (d *Dependencies) initRouter(cfg *config.Config) {
	d.Router = routing.NewService(RoutingConfig(cfg), d.Upstream, d.Logger.Named("router"))
}

// RoutingConfig maps application configuration onto the router's settings
func RoutingConfig(cfg *config.Config) routing.Config {
	return routing.Config{
		DefaultModel:    cfg.Routing.DefaultModel,
		FallbackModels:  cfg.Routing.FallbackModels,
		AttemptDelay:    cfg.Routing.AttemptDelay,
		AttemptTimeout:  cfg.Upstream.Timeout,
		RequestDeadline: cfg.Routing.RequestDeadline,
		Temperature:     cfg.Routing.Temperature,
		MaxTokens:       cfg.Routing.MaxTokens,
	}
}

func (d *Dependencies) initConversations(cfg *config.Config) {
	if !cfg.Conversations.Enabled {
		d.Logger.Info("conversation store disabled")
		return
	}
	d.Conversations = conversation.NewStore(cfg.Conversations.MaxEntries, d.Logger.Named("conversations"))
}

func (d *Dependencies) initRateLimiter(cfg *config.Config) {
	if !cfg.RateLimit.Enabled {
		d.Logger.Info("inbound rate limiting disabled")
		return
	}
	d.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, d.Logger.Named("ratelimit"))
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	// Sync logger; stderr/stdout sinks may refuse fsync, which is harmless
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return ctx.Err()
}
