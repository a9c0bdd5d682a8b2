package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/openheads/headcatalog/internal/service"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"` // "healthy" or "unhealthy"
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

// Sizer is implemented by components that report a live entry count.
type Sizer interface {
	Size() int
}

// Pinger is implemented by storage backends that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker verifies component health.
type HealthChecker struct {
	catalog     *service.CatalogService
	sessions    Sizer
	rateLimiter Sizer
	storage     Pinger
	version     string
}

// NewHealthChecker creates a HealthChecker. Pass nil for components that
// aren't configured.
func NewHealthChecker(catalog *service.CatalogService, sessions, rateLimiter Sizer, storage Pinger, version string) *HealthChecker {
	return &HealthChecker{
		catalog:     catalog,
		sessions:    sessions,
		rateLimiter: rateLimiter,
		storage:     storage,
		version:     version,
	}
}

// Check performs health checks on all components. An empty catalog or an
// unreachable favorites store is unhealthy.
func (h *HealthChecker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]string)
	healthy := true

	if h.catalog != nil {
		idx := h.catalog.Index()
		if idx.Len() == 0 {
			checks["catalog"] = "empty"
			healthy = false
		} else {
			checks["catalog"] = fmt.Sprintf("ok: %d categories, %d items", idx.Len(), idx.ItemCount())
		}
	} else {
		checks["catalog"] = "not configured"
	}

	if h.sessions != nil {
		checks["sessions"] = fmt.Sprintf("ok: %d", h.sessions.Size())
	} else {
		checks["sessions"] = "not configured"
	}

	if h.rateLimiter != nil {
		checks["rate_limiter"] = fmt.Sprintf("ok: %d keys", h.rateLimiter.Size())
	} else {
		checks["rate_limiter"] = "not configured"
	}

	if h.storage != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := h.storage.Ping(pingCtx)
		cancel()
		if err != nil {
			checks["storage"] = "unreachable: " + err.Error()
			healthy = false
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "in-memory"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	return HealthResponse{Status: status, Checks: checks, Version: h.version}
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(health)
	})
}
