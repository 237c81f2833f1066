package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lei/suite-starter/internal/dispatcher"
)

// HealthChecker reports whether the cluster API answers with the current
// credentials
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handlers contains HTTP handler functions
type Handlers struct {
	dispatcher *dispatcher.Dispatcher
	health     HealthChecker // optional, nil = skipped
}

// NewHandlers creates a new handlers instance
func NewHandlers(d *dispatcher.Dispatcher, health HealthChecker) *Handlers {
	return &Handlers{dispatcher: d, health: health}
}

// Health handles health check requests
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":  "healthy",
		"service": "suite-starter",
		"checks":  map[string]interface{}{},
	}
	checks := health["checks"].(map[string]interface{})

	if h.health != nil {
		healthCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := h.health.HealthCheck(healthCtx); err != nil {
			if log := GetLogger(r.Context()); log != nil {
				log.Warn("cluster health check failed", "error", err)
			}
			checks["cluster"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			health["status"] = "degraded"
		} else {
			checks["cluster"] = map[string]interface{}{
				"status": "healthy",
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// Status handles GET /v1/status
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	stats, recent := h.dispatcher.Status()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"stats":              stats,
		"recent_submissions": recent,
	})
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
