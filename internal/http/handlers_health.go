package httpx

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

// HealthChecker reports the health of an external dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	DB    *sql.DB
	Cache HealthChecker
}

// Check handles GET /healthz. Reports degraded dependencies individually; the
// overall status is 503 if any required dependency is down. The cache is
// optional and only degrades the report, never the status.
func (h *HealthHandlers) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.DB.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if h.Cache != nil {
		if err := h.Cache.Health(ctx); err != nil {
			checks["cache"] = err.Error()
		} else {
			checks["cache"] = "ok"
		}
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	WriteJSON(w, status, map[string]any{"status": overall, "checks": checks})
}
