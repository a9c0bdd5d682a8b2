package http

import (
	"net/http"
	"time"
)

// instrument records duration and status of one route. The route pattern is
// the label so user IDs never reach label values.
func instrument(metrics *Metrics, route string, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(route, statusToLabel(wrapped.status)).Inc()
	})
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func statusToLabel(code int) string {
	switch {
	case code >= 500:
		return "server_error"
	case code >= 400:
		return "client_error"
	default:
		return "ok"
	}
}
