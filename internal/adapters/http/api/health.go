// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/promptmatch/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler handles liveness, readiness and metrics requests.
type HealthHandler struct {
	deps    Dependencies
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps Dependencies) *HealthHandler {
	return &HealthHandler{
		deps:    deps,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleMetrics serves the Prometheus registry on /healthz and /metrics.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HandleHealth handles GET /health requests. Returns 503 until the
// service has started.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	health := h.deps.Health(r.Context())
	status := http.StatusOK
	if !health.Started {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
