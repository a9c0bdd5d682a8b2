package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the catalog's domain metrics. A nil *Metrics records nothing.
type Metrics struct {
	Transitions          *prometheus.CounterVec
	ResolveErrors        prometheus.Counter
	FavoriteToggles      *prometheus.CounterVec
	Acquisitions         *prometheus.CounterVec
	Refunds              *prometheus.CounterVec
	ReconciliationNeeded prometheus.Counter
	ActiveSessions       prometheus.Gauge
	CatalogCategories    prometheus.Gauge
	CatalogItems         prometheus.Gauge
	Reloads              *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Transitions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "headcatalog",
				Name:      "mode_transitions_total",
				Help:      "Browsing mode transitions that resolved a new view",
			},
			[]string{"mode"},
		),
		ResolveErrors: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "headcatalog",
				Name:      "resolve_errors_total",
				Help:      "View resolutions that degraded to an empty view",
			},
		),
		FavoriteToggles: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "headcatalog",
				Name:      "favorite_toggles_total",
				Help:      "Favorite toggles by result",
			},
			[]string{"result"}, // added/removed/error
		),
		Acquisitions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "headcatalog",
				Name:      "acquisitions_total",
				Help:      "Acquisitions by result",
			},
			[]string{"result"}, // granted/insufficient_funds/store_unavailable/grant_failed/reconciliation_required/error
		),
		Refunds: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "headcatalog",
				Name:      "refunds_total",
				Help:      "Compensating refunds after a failed grant",
			},
			[]string{"result"}, // ok/failed
		),
		ReconciliationNeeded: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "headcatalog",
				Name:      "reconciliation_required_total",
				Help:      "Acquisitions that debited, failed to grant and failed to refund",
			},
		),
		ActiveSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "headcatalog",
				Name:      "active_sessions",
				Help:      "Number of live browsing sessions",
			},
		),
		CatalogCategories: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "headcatalog",
				Name:      "catalog_categories",
				Help:      "Categories in the loaded catalog",
			},
		),
		CatalogItems: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "headcatalog",
				Name:      "catalog_items",
				Help:      "Items in the loaded catalog",
			},
		),
		Reloads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "headcatalog",
				Name:      "catalog_reloads_total",
				Help:      "Catalog reloads by result",
			},
			[]string{"result"}, // ok/error
		),
	}
}

func (m *Metrics) transition(mode string) {
	if m != nil {
		m.Transitions.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) resolveError() {
	if m != nil {
		m.ResolveErrors.Inc()
	}
}

func (m *Metrics) toggle(result string) {
	if m != nil {
		m.FavoriteToggles.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) acquisition(result string) {
	if m == nil {
		return
	}
	m.Acquisitions.WithLabelValues(result).Inc()
	switch result {
	case "grant_failed":
		m.Refunds.WithLabelValues("ok").Inc()
	case "reconciliation_required":
		m.Refunds.WithLabelValues("failed").Inc()
		m.ReconciliationNeeded.Inc()
	}
}

func (m *Metrics) sessions(n int) {
	if m != nil {
		m.ActiveSessions.Set(float64(n))
	}
}

func (m *Metrics) catalog(categories, items int) {
	if m != nil {
		m.CatalogCategories.Set(float64(categories))
		m.CatalogItems.Set(float64(items))
	}
}

func (m *Metrics) reload(result string) {
	if m != nil {
		m.Reloads.WithLabelValues(result).Inc()
	}
}
