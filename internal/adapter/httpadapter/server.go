package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// RiskService is the scoring pipeline as seen by the HTTP layer.
type RiskService interface {
	sharedobs.ReadinessChecker
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
	Refresh(ctx context.Context) (*domain.Snapshot, error)
	Grid(ctx context.Context, code int, size float64) (domain.Ward, []domain.GridCell, error)
	Simulate(ctx context.Context, multiplier float64) ([]domain.SimulatedWard, error)
}

// Server exposes the ward risk API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        RiskService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API routes and /healthz, /readyz, and /metrics.
func NewServer(addr string, svc RiskService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      AccessMiddleware(logger)(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/wards", s.handleWards)
	mux.HandleFunc("GET /api/v1/wards/{ward}", s.handleWard)
	mux.HandleFunc("GET /api/v1/wards/{ward}/grid", s.handleGrid)
	mux.HandleFunc("GET /api/v1/simulation", s.handleSimulation)
	mux.HandleFunc("GET /api/v1/incidents", s.handleIncidents)
	mux.HandleFunc("GET /api/v1/drains", s.handleDrains)
	mux.HandleFunc("GET /api/v1/rainfall", s.handleRainfall)
	mux.HandleFunc("GET /api/v1/analytics/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/analytics/compare", s.handleCompare)
	mux.HandleFunc("POST /api/v1/refresh", s.handleRefresh)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
