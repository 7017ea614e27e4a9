package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bridgetext/coach/internal/store"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo      store.Repository
	retriever HealthChecker
	aiEnabled bool
	timeout   time.Duration
}

// NewHealthHandler creates a new health handler. retriever may be nil when
// AI features are disabled.
func NewHealthHandler(repo store.Repository, retriever HealthChecker, aiEnabled bool, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{
		repo:      repo,
		retriever: retriever,
		aiEnabled: aiEnabled,
		timeout:   timeout,
	}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := "healthy"
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		checks["database"] = "unreachable"
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if !h.aiEnabled {
		checks["ai"] = "disabled"
	} else if h.retriever == nil {
		checks["ai"] = "ok"
	} else if err := h.retriever.HealthCheck(ctx); err != nil {
		slog.Warn("Retrieval health check failed", "error", err)
		checks["ai"] = "degraded"
		if status == "healthy" {
			status = "degraded"
		}
	} else {
		checks["ai"] = "ok"
	}

	JSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
