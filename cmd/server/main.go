package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hihodl/sendcore/service/balances"
	"github.com/hihodl/sendcore/service/chainstatus"
	"github.com/hihodl/sendcore/service/config"
	"github.com/hihodl/sendcore/service/funding"
	"github.com/hihodl/sendcore/service/ledger"
	"github.com/hihodl/sendcore/service/metrics"
	"github.com/hihodl/sendcore/service/notify"
	"github.com/hihodl/sendcore/service/recipient"
	"github.com/hihodl/sendcore/service/reconcile"
	"github.com/hihodl/sendcore/service/server"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics registry shared by every component
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	// Initialize database connection pool
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Canonical record store
	canonical := ledger.NewPostgresStore(dbPool)
	if err := canonical.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	// Legacy record store and balance cache share one redis client
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("failed to ping redis", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to redis", "addr", cfg.RedisAddr)

	legacy := ledger.NewLegacyStore(rdb, logger)
	view := &ledger.View{Canonical: canonical, Legacy: legacy}

	// Completion notification sink
	sink, err := notify.NewJetStreamSink(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	// Chain status providers, rate limited per chain
	providers := chainstatus.NewRegistry()
	limit := rate.Limit(cfg.ProviderRPS)

	solanaProvider := chainstatus.NewSolanaProvider(chainstatus.NewSolanaRPC(cfg.SolanaRPCURL), m, logger)
	providers.Register("solana", chainstatus.RateLimited(solanaProvider, rate.NewLimiter(limit, 1)))

	for chain, rpcURL := range cfg.EVMRPCURLs() {
		rpc, err := chainstatus.DialEVMRPC(ctx, rpcURL)
		if err != nil {
			logger.Error("failed to dial EVM RPC", "chain", chain, "error", err)
			os.Exit(1)
		}
		evmProvider := chainstatus.NewEVMProvider(rpc, m, logger)
		providers.Register(chain, chainstatus.RateLimited(evmProvider, rate.NewLimiter(limit, 1)))
	}
	logger.Info("chain status providers registered", "chains", providers.Chains())

	// Status stream for SSE clients, fed by the reconciler
	ssePublisher := server.NewSSEPublisher(logger)

	reconciler := reconcile.New(reconcile.Options{
		Source:       reconcile.ViewSource{View: view},
		Canonical:    canonical,
		Legacy:       legacy,
		Provider:     providers,
		Sink:         sink,
		Metrics:      m,
		Logger:       logger,
		TickInterval: cfg.ReconcileTick,
		OnChange:     ssePublisher.Publish,
	})
	stopReconciler := reconciler.Start(ctx)
	defer stopReconciler()
	logger.Info("reconciler started", "tick", cfg.ReconcileTick)

	// Balance reader: static until an exchange integration lands, but
	// served through the redis cache so clients exercise the real path.
	balanceReader := balances.NewCachedReader(
		balances.NewStaticReader(nil),
		rdb,
		cfg.BalanceCacheTTL,
		logger,
	)

	httpServer := server.New(
		cfg.ServerAddr,
		view,
		canonical,
		recipient.NewResolver(cfg.DefaultEVMChain),
		funding.NewDiagnostician(funding.DefaultFeeTable(), logger),
		reconciler,
		ssePublisher,
		m,
		registry,
		logger,
	).WithBalances(balanceReader)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
