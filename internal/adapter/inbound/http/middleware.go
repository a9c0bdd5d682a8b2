package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/openheads/headcatalog/internal/ctxkey"
	"github.com/openheads/headcatalog/internal/domain/auth"
)

type requestIDContextKey struct{}

type clientContextKey struct{}

// RequestIDKey is the context key for the request ID.
var RequestIDKey = requestIDContextKey{}

// RequestIDMiddleware extracts or generates a request ID and enriches the logger.
func RequestIDMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			ctx = ctxkey.WithLogger(ctx, logger.With("request_id", requestID))

			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFromContext retrieves the enriched logger from context.
// Returns slog.Default() if no logger is in context.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return ctxkey.Logger(ctx, slog.Default())
}

// ClientFromContext returns the name of the API key that authenticated the
// request, or "" when authentication is disabled.
func ClientFromContext(ctx context.Context) string {
	name, _ := ctx.Value(clientContextKey{}).(string)
	return name
}

// AuthMiddleware requires a valid bearer key when verifier has keys.
func AuthMiddleware(verifier *auth.Verifier, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !verifier.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			name, err := verifier.Authenticate(strings.TrimSpace(raw))
			if !ok || err != nil {
				if metrics != nil {
					metrics.AuthFailures.Inc()
				}
				if err != nil && !errors.Is(err, auth.ErrInvalidKey) {
					LoggerFromContext(r.Context()).Error("api key verification failed", "error", err)
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="headcatalog"`)
				respondError(r.Context(), w, http.StatusUnauthorized, "missing or invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), clientContextKey{}, name)
			ctx = ctxkey.WithLogger(ctx, LoggerFromContext(ctx).With("client", name))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isLocalhost checks if the request originates from a loopback address.
// X-Forwarded-For is not trusted.
func isLocalhost(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
