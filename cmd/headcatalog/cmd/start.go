package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/openheads/headcatalog/internal/adapter/inbound/http"
	"github.com/openheads/headcatalog/internal/adapter/outbound/catalogfile"
	"github.com/openheads/headcatalog/internal/adapter/outbound/memory"
	"github.com/openheads/headcatalog/internal/adapter/outbound/redisstore"
	"github.com/openheads/headcatalog/internal/adapter/outbound/sqlstore"
	"github.com/openheads/headcatalog/internal/adapter/outbound/state"
	"github.com/openheads/headcatalog/internal/config"
	"github.com/openheads/headcatalog/internal/domain/acquisition"
	"github.com/openheads/headcatalog/internal/domain/auth"
	"github.com/openheads/headcatalog/internal/domain/browse"
	"github.com/openheads/headcatalog/internal/domain/favorite"
	"github.com/openheads/headcatalog/internal/domain/ratelimit"
	"github.com/openheads/headcatalog/internal/service"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the catalog server",
	Long: `Start the head catalog HTTP server.

The catalog is loaded from catalog.categories_file and catalog.items_dir at
startup and can be reloaded with POST /v1/admin/reload.

Examples:
  # Start with config file settings
  headcatalog start

  # Start with a specific config file and debug logging
  headcatalog --config /etc/headcatalog/prod.yaml start --dev`,
	RunE: runStart,
}

var devMode bool

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	// Load without validation so CLI flags can override first.
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// stop() restores default signal handling so a second Ctrl+C kills hard.
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	logger.Debug("log level configured", "level", cfg.Server.LogLevel, "effective", logLevel.String())

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	pidPath := cfg.Server.PIDFile
	if pidPath == "" {
		pidPath = defaultPIDFile()
	}
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	if err := serve(ctx, cfg, logger); err != nil {
		return err
	}
	logger.Info("headcatalog stopped")
	return nil
}

// serve wires every component from cfg and blocks until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tp, err := newTracerProvider(cfg.Tracing)
	if err != nil {
		return err
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}

	favorites, storage, closeStore, err := openFavoriteStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("favorite store close failed", "error", err)
		}
	}()
	logger.Info("favorite storage ready", "type", cfg.Storage.Type)

	ledger := newLedger(cfg.Ledger, logger)
	inventory := memory.NewInventory()
	acquirer := acquisition.NewTransaction(ledger, inventory, acquisition.WithLogger(logger))

	grid := browse.Grid{
		CategoryPageSize: cfg.Grid.CategoryPageSize,
		ItemPageSize:     cfg.Grid.ItemPageSize,
	}
	sessions := memory.NewSessionRegistry(grid, cfg.SessionIdleTimeout())

	svcOpts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(service.NewMetrics(reg)),
		service.WithDefinitionSource(catalogfile.New(cfg.Catalog.CategoriesFile, cfg.Catalog.ItemsDir)),
		service.WithGrid(grid),
	}
	if tp != nil {
		svcOpts = append(svcOpts, service.WithTracerProvider(tp))
	}
	svc := service.NewCatalogService(nil, sessions, favorites, acquirer, svcOpts...)
	if _, err := svc.Reload(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	sessions.OnEvict(svc.SessionEvicted)
	sessions.StartCleanup(ctx)
	defer sessions.Stop()

	verifier, err := newVerifier(cfg.Auth)
	if err != nil {
		return err
	}
	if !verifier.Enabled() {
		logger.Warn("no API keys configured, /v1 is unauthenticated and admin routes are localhost-only")
	}

	httpMetrics := http.NewMetrics(reg)
	handlerOpts := []http.HandlerOption{
		http.WithBalances(ledger),
		http.WithGrants(inventory),
		http.WithHandlerMetrics(httpMetrics),
		http.WithRemoteAdmin(verifier.Enabled()),
	}

	// Interface-typed so an absent limiter reaches the health check as nil.
	var limiterSize http.Sizer
	if cfg.RateLimit.Enabled {
		limiter := memory.NewRateLimiterWithConfig(ratelimit.Config{
			EventsPerSecond: cfg.RateLimit.EventsPerSecond,
			Burst:           cfg.RateLimit.Burst,
		}, cfg.RateLimitCleanupInterval(), cfg.RateLimitMaxTTL())
		limiter.StartCleanup(ctx)
		defer limiter.Stop()
		handlerOpts = append(handlerOpts, http.WithRateLimiter(limiter))
		limiterSize = limiter
	}

	handler := http.NewHandler(svc, handlerOpts...)
	transport := http.NewHTTPTransport(handler,
		http.WithAddr(cfg.Server.HTTPAddr),
		http.WithTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile),
		http.WithLogger(logger),
		http.WithGatherer(reg),
		http.WithVerifier(verifier),
		http.WithMetrics(httpMetrics),
		http.WithHealthChecker(http.NewHealthChecker(svc, sessions, limiterSize, storage, Version)),
	)
	return transport.Start(ctx)
}

// balanceLedger is a ledger the balance endpoint can read.
type balanceLedger interface {
	acquisition.Ledger
	http.BalanceReader
}

func newLedger(cfg config.LedgerConfig, logger *slog.Logger) balanceLedger {
	if cfg.Type == "file" {
		logger.Info("using file ledger", "path", cfg.Path)
		return state.NewFileLedger(cfg.Path, cfg.StartingBalance, logger)
	}
	return memory.NewLedger(cfg.StartingBalance)
}

// openFavoriteStore returns the configured store, its health probe (nil for
// memory) and a close function.
func openFavoriteStore(ctx context.Context, cfg config.StorageConfig) (favorite.Store, http.Pinger, func() error, error) {
	switch cfg.Type {
	case "sqlite":
		s, err := sqlstore.OpenSQLite(ctx, cfg.Filename, cfg.TablePrefix)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open favorites: %w", err)
		}
		return s, s, s.Close, nil
	case "postgres":
		s, err := sqlstore.OpenPostgres(ctx, cfg.DSN, cfg.TablePrefix)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open favorites: %w", err)
		}
		return s, s, s.Close, nil
	case "redis":
		s, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.TablePrefix)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open favorites: %w", err)
		}
		return s, s, s.Close, nil
	default:
		return memory.NewFavoriteStore(), nil, func() error { return nil }, nil
	}
}

func newVerifier(cfg config.AuthConfig) (*auth.Verifier, error) {
	keys := make([]auth.APIKey, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		keys = append(keys, auth.APIKey{Name: k.Name, Hash: k.KeyHash})
	}
	v, err := auth.NewVerifier(keys)
	if err != nil {
		return nil, fmt.Errorf("api keys: %w", err)
	}
	return v, nil
}

// newTracerProvider returns nil when tracing is disabled.
func newTracerProvider(cfg config.TracingConfig) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	opts := []stdouttrace.Option{stdouttrace.WithWriter(os.Stderr)}
	if cfg.Pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exp, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp)), nil
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
