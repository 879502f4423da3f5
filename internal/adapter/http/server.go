package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aquaaware/water-quality-service/internal/domain"
	"github.com/aquaaware/water-quality-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SummaryReader is the read side of the summary store.
type SummaryReader interface {
	sharedobs.ReadinessChecker
	ListCitySummaries(ctx context.Context) ([]domain.CitySummary, error)
	GetCityDetail(ctx context.Context, city string) (domain.CityDetail, error)
}

// Server exposes the water-quality query API plus health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer   *http.Server
	reader       SummaryReader
	queryTimeout time.Duration
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewServer creates the HTTP server. Every query runs under queryTimeout.
func NewServer(addr string, reader SummaryReader, queryTimeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		reader:       reader,
		queryTimeout: queryTimeout,
		logger:       logger,
		metrics:      metrics,
	}

	mux.HandleFunc("GET /water-quality", s.handleList)
	mux.HandleFunc("GET /water-quality/{city}", s.handleDetail)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(reader))
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer.Handler = s.instrument(withCORS(mux))
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
