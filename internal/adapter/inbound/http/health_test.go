package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openheads/headcatalog/internal/adapter/outbound/memory"
	"github.com/openheads/headcatalog/internal/domain/acquisition"
	"github.com/openheads/headcatalog/internal/domain/browse"
	"github.com/openheads/headcatalog/internal/domain/catalog"
	"github.com/openheads/headcatalog/internal/domain/ratelimit"
	"github.com/openheads/headcatalog/internal/service"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newHealthService(t *testing.T, defs []catalog.Definition) *service.CatalogService {
	t.Helper()
	idx, _ := catalog.Load(defs)
	return service.NewCatalogService(
		idx,
		memory.NewSessionRegistry(browse.DefaultGrid(), time.Hour),
		memory.NewFavoriteStore(),
		acquisition.NewTransaction(memory.NewLedger(0), memory.NewInventory()),
		service.WithLogger(discardLogger()),
	)
}

func TestHealthChecker_Healthy(t *testing.T) {
	t.Parallel()
	sessions := memory.NewSessionRegistry(browse.DefaultGrid(), time.Hour)
	limiter := memory.NewRateLimiter(ratelimit.Config{EventsPerSecond: 1, Burst: 1})
	ok := pingFunc(func(context.Context) error { return nil })

	hc := NewHealthChecker(newHealthService(t, testDefs()), sessions, limiter, ok, "test-version")
	health := hc.Check(context.Background())

	if health.Status != "healthy" {
		t.Errorf("Status = %q, want healthy: %v", health.Status, health.Checks)
	}
	if health.Version != "test-version" {
		t.Errorf("Version = %q, want test-version", health.Version)
	}
	if health.Checks["catalog"] != "ok: 2 categories, 3 items" {
		t.Errorf("catalog check = %q", health.Checks["catalog"])
	}
	if health.Checks["storage"] != "ok" {
		t.Errorf("storage check = %q", health.Checks["storage"])
	}
}

func TestHealthChecker_NilComponents(t *testing.T) {
	t.Parallel()
	health := NewHealthChecker(nil, nil, nil, nil, "").Check(context.Background())

	if health.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", health.Status)
	}
	if health.Checks["rate_limiter"] != "not configured" {
		t.Errorf("rate_limiter = %q, want 'not configured'", health.Checks["rate_limiter"])
	}
	if health.Checks["storage"] != "in-memory" {
		t.Errorf("storage = %q", health.Checks["storage"])
	}
}

func TestHealthChecker_Unhealthy(t *testing.T) {
	t.Parallel()
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name    string
		defs    []catalog.Definition
		storage Pinger
	}{
		{"empty catalog", nil, nil},
		{"storage down", testDefs(), down},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker(newHealthService(t, tt.defs), nil, nil, tt.storage, "")
			rec := httptest.NewRecorder()
			hc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", rec.Code)
			}
			var health HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
				t.Fatal(err)
			}
			if health.Status != "unhealthy" {
				t.Errorf("Status = %q", health.Status)
			}
		})
	}
}
