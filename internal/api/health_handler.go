package api

import (
	"context"
	"net/http"

	"github.com/phrazzld/paperpilot/internal/api/shared"
)

// HealthChecker reports whether the task store is reachable and how many
// records it holds.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (int, error)
}

// HealthHandler serves the liveness and database health endpoints.
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}

// Database handles GET /health/db.
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	count, err := h.checker.HealthCheck(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", TaskRecords: &count})
}
