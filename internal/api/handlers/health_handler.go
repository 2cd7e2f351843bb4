package handlers

import (
	"context"
	"net/http"
	"time"

	appErr "github.com/buildbuddy/engine/pkg/errors"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Check
}

func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness runs every dependency check with a short deadline.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			writeError(w, r, appErr.Wrap(err, appErr.CodeUnavailable, name+" unavailable").WithMeta("dependency", name))
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}
