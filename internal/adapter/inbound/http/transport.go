package http

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openheads/headcatalog/internal/domain/auth"
)

// HTTPTransport serves the catalog API, /health and /metrics.
type HTTPTransport struct {
	handler       *Handler
	server        *http.Server
	addr          string
	certFile      string
	keyFile       string
	logger        *slog.Logger
	gatherer      prometheus.Gatherer
	verifier      *auth.Verifier
	metrics       *Metrics
	healthChecker *HealthChecker
	listener      net.Listener
}

// Option is a functional option for configuring HTTPTransport.
type Option func(*HTTPTransport)

// WithAddr sets the listen address.
// Default is "127.0.0.1:8080" (localhost only).
func WithAddr(addr string) Option {
	return func(t *HTTPTransport) {
		t.addr = addr
	}
}

// WithTLS enables TLS with the provided certificate and key files.
func WithTLS(certFile, keyFile string) Option {
	return func(t *HTTPTransport) {
		t.certFile = certFile
		t.keyFile = keyFile
	}
}

// WithLogger sets the logger for the HTTP transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(t *HTTPTransport) {
		t.gatherer = g
	}
}

// WithVerifier requires API keys on /v1 routes.
func WithVerifier(v *auth.Verifier) Option {
	return func(t *HTTPTransport) {
		t.verifier = v
	}
}

// WithMetrics records authentication failures. Route metrics are recorded
// by the Handler.
func WithMetrics(m *Metrics) Option {
	return func(t *HTTPTransport) {
		t.metrics = m
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(t *HTTPTransport) {
		t.healthChecker = hc
	}
}

// WithListener serves on an existing listener instead of addr.
func WithListener(l net.Listener) Option {
	return func(t *HTTPTransport) {
		t.listener = l
	}
}

// NewHTTPTransport creates an HTTP transport serving handler.
func NewHTTPTransport(handler *Handler, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		handler:  handler,
		addr:     "127.0.0.1:8080",
		logger:   slog.Default(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handler builds the root handler.
//
// Middleware order (outermost first):
//  1. RequestID - Extract/generate request ID and enrich logger
//  2. Auth - Bearer key check on /v1 routes
//  3. Handler - per-route metrics, rate limit, operation
func (t *HTTPTransport) Handler() http.Handler {
	api := t.handler.Routes()
	api = AuthMiddleware(t.verifier, t.metrics)(api)

	mux := http.NewServeMux()
	if t.healthChecker != nil {
		mux.Handle("GET /health", t.healthChecker.Handler())
	} else {
		mux.Handle("GET /health", NewHealthChecker(nil, nil, nil, nil, "").Handler())
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(t.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/v1/", api)

	return RequestIDMiddleware(t.logger)(mux)
}

// Start serves until ctx is cancelled or the server fails.
func (t *HTTPTransport) Start(ctx context.Context) error {
	t.server = &http.Server{
		Addr:              t.addr,
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if t.certFile != "" && t.keyFile != "" {
		t.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		switch {
		case t.listener != nil:
			t.logger.Info("starting HTTP server", "addr", t.listener.Addr().String())
			err = t.server.Serve(t.listener)
		case t.certFile != "" && t.keyFile != "":
			t.logger.Info("starting HTTPS server", "addr", t.addr)
			err = t.server.ListenAndServeTLS(t.certFile, t.keyFile)
		default:
			t.logger.Info("starting HTTP server", "addr", t.addr)
			err = t.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}

func (t *HTTPTransport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}
	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *HTTPTransport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}
