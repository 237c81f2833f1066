package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures the HTTP router
func NewRouter(handlers *Handlers, authMiddleware *AuthMiddleware, loggingMiddleware *LoggingMiddleware, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - ORDER MATTERS!
	r.Use(middleware.RequestID)      // Generate request ID first
	r.Use(middleware.RealIP)         // Extract real IP
	r.Use(loggingMiddleware.Handler) // Add logger to context with request ID
	r.Use(middleware.Recoverer)      // Panic recovery
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health and metrics endpoints (no auth required)
	r.Get("/health", handlers.Health)
	r.Handle("/metrics", metricsHandler)

	// API v1 routes (with authentication)
	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/status", handlers.Status)
	})

	return r
}
