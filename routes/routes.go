package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/upb/chat-fallback-router/app"
	"github.com/upb/chat-fallback-router/handlers"
	"github.com/upb/chat-fallback-router/middleware"
)

// handlerTimeoutSlack lets the router's own deadline fire before chi's
const handlerTimeoutSlack = 10 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	cfg := deps.Config

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.Routing.RequestDeadline + handlerTimeoutSlack))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	health := handlers.NewHealthHandler(deps.Upstream, deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	chat := handlers.NewChatHandler(deps.Router, deps.Logger)
	modelsHandler := handlers.NewModelsHandler(cfg.Routing.DefaultModel, cfg.Routing.FallbackModels)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.Handler)
			}
			r.Post("/chat", chat.HandleChat)
		})

		r.Get("/models", modelsHandler.HandleListModels)

		if deps.Conversations != nil {
			conversations := handlers.NewConversationHandler(deps.Conversations, deps.Logger)
			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", conversations.HandleList)
				r.Post("/", conversations.HandleCreate)
				r.Get("/{id}", conversations.HandleGet)
				r.Put("/{id}", conversations.HandleUpdate)
				r.Delete("/{id}", conversations.HandleDelete)
			})
		}
	})

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	return r
}
