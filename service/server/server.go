package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hihodl/sendcore/service/balances"
	"github.com/hihodl/sendcore/service/funding"
	"github.com/hihodl/sendcore/service/ledger"
	"github.com/hihodl/sendcore/service/metrics"
	"github.com/hihodl/sendcore/service/recipient"
	"github.com/hihodl/sendcore/service/reconcile"
)

// Server is the HTTP surface of the send pipeline: recipient resolution,
// funding diagnosis, transfer records and their live status stream.
type Server struct {
	addr          string
	view          *ledger.View
	canonical     ledger.Store
	resolver      *recipient.Resolver
	diagnostician *funding.Diagnostician
	reconciler    *reconcile.Reconciler
	ssePublisher  *SSEPublisher
	metrics       *metrics.Metrics
	registry      *prometheus.Registry
	balanceReader balances.Reader
	logger        *slog.Logger
	server        *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The reconciler is optional - if nil, the pause/resume endpoints return 503.
// The ssePublisher is optional - if nil, streaming endpoints won't be available.
// The metrics and registry are optional - if nil, the /metrics endpoint won't be available.
func New(addr string, view *ledger.View, canonical ledger.Store, resolver *recipient.Resolver, diag *funding.Diagnostician, rec *reconcile.Reconciler, ssePublisher *SSEPublisher, m *metrics.Metrics, registry *prometheus.Registry, logger *slog.Logger) *Server {
	return &Server{
		addr:          addr,
		view:          view,
		canonical:     canonical,
		resolver:      resolver,
		diagnostician: diag,
		reconciler:    rec,
		ssePublisher:  ssePublisher,
		metrics:       m,
		registry:      registry,
		logger:        logger,
	}
}

// WithBalances adds the account balance endpoint backed by the given
// reader (typically the redis-cached one).
func (s *Server) WithBalances(reader balances.Reader) *Server {
	s.balanceReader = reader
	return s
}

// Handler builds the route table. Exposed separately from Start so tests
// can drive it with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Send pipeline routes
	mux.Handle("POST /api/v1/recipient/resolve", handleResolveRecipient(s.resolver, s.logger))
	mux.Handle("POST /api/v1/diagnose", handleDiagnose(s.diagnostician, s.metrics, s.logger))

	// Transfer record routes
	mux.Handle("GET /api/v1/threads/{thread_id}/transfers", handleListTransfers(s.view, s.logger))
	mux.Handle("GET /api/v1/transfers", handleListTransfers(s.view, s.logger))
	mux.Handle("POST /api/v1/transfers", handleSubmitTransfer(s.canonical, s.logger))

	// Balance routes (if a balance reader is configured)
	if s.balanceReader != nil {
		mux.Handle("GET /api/v1/accounts/{account_id}/balances", handleGetBalances(s.balanceReader, s.logger))
	}

	// Reconciler control routes
	mux.Handle("GET /api/v1/reconcile/status", handleReconcileStatus(s.reconciler, s.logger))
	mux.Handle("POST /api/v1/reconcile/pause", handleReconcilePause(s.reconciler, s.logger))
	mux.Handle("POST /api/v1/reconcile/resume", handleReconcileResume(s.reconciler, s.logger))

	// SSE streaming endpoints (if SSE publisher is configured)
	if s.ssePublisher != nil {
		mux.Handle("GET /api/v1/stream/transfers/{thread_id}", handleStreamTransfers(s.ssePublisher, s.metrics, s.logger))
		mux.Handle("GET /api/v1/stream/transfers", handleStreamTransfers(s.ssePublisher, s.metrics, s.logger))
		s.logger.Info("SSE streaming endpoints enabled")
	} else {
		s.logger.Warn("SSE publisher not configured, streaming endpoints disabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return corsMiddleware(metrics.HTTPMetricsMiddleware(s.metrics, mux))
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections stay open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	// Close SSE publisher first (disconnects all clients)
	if s.ssePublisher != nil {
		s.ssePublisher.Close()
	}

	// Then shutdown HTTP server
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
