package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/lei/suite-starter/internal/config"
	"github.com/lei/suite-starter/pkg/logger"
)

// AuthMiddleware handles API key authentication for the status surface
type AuthMiddleware struct {
	apiKeys map[string]string // key -> name
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(keys []config.APIKey) *AuthMiddleware {
	keyMap := make(map[string]string)
	for _, k := range keys {
		keyMap[k.Key] = k.Name
	}
	return &AuthMiddleware{apiKeys: keyMap}
}

// Authenticate validates the API key from the Authorization header
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := GetLogger(r.Context())

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if log != nil {
				log.Warn("authentication failed: missing authorization header")
			}
			respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		// Expect: "Bearer <api_key>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			if log != nil {
				log.Warn("authentication failed: invalid authorization format")
			}
			respondError(w, http.StatusUnauthorized, "invalid authorization format, expected 'Bearer <token>'")
			return
		}

		apiKey := parts[1]
		name, valid := m.apiKeys[apiKey]
		if !valid {
			if log != nil {
				keyPrefix := apiKey
				if len(apiKey) > 8 {
					keyPrefix = apiKey[:8]
				}
				log.Warn("authentication failed: invalid api key", "key_prefix", keyPrefix)
			}
			respondError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		// Add key name to context for logging/audit
		ctx := context.WithValue(r.Context(), contextKeyAPIKeyName, name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware adds structured logging to all requests
type LoggingMiddleware struct {
	logger *logger.Logger
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(log *logger.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: log}
}

// Handler wraps HTTP handlers with logging
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		if requestID == "" {
			requestID = "unknown"
		}

		reqLogger := m.logger.With(
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
		)

		ctx := context.WithValue(r.Context(), contextKeyLogger, reqLogger)
		ctx = context.WithValue(ctx, contextKeyRequestID, requestID)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

		start := time.Now()
		defer func() {
			duration := time.Since(start)

			if wrapped.statusCode >= 500 {
				reqLogger.Error("request completed",
					"status", wrapped.statusCode,
					"duration_ms", duration.Milliseconds())
			} else if wrapped.statusCode >= 400 {
				reqLogger.Warn("request completed",
					"status", wrapped.statusCode,
					"duration_ms", duration.Milliseconds())
			} else {
				reqLogger.Debug("request completed",
					"status", wrapped.statusCode,
					"duration_ms", duration.Milliseconds())
			}
		}()

		next.ServeHTTP(wrapped, r.WithContext(ctx))
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
