// Package api exposes scanning and source management over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/app"
	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/domain"
	pricingApp "github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	pricingDomain "github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
)

// Scanner is the part of the scan service the API serves.
type Scanner interface {
	Scan(ctx context.Context, base, quote *asset.Asset, investment, minProfitPercent decimal.Decimal, opts ...app.ScanOption) (*app.ScanResult, error)
	Sources() []app.SourceStatus
	SetSourceEnabled(ctx context.Context, slug string, enabled bool) error
}

// QuoteSource returns the raw per-source quotes for a pair.
type QuoteSource interface {
	Aggregate(ctx context.Context, base, quote *asset.Asset, opts ...pricingApp.AggregateOption) (map[string]pricingDomain.Quote, error)
}

// Journal lists recorded opportunities.
type Journal interface {
	Recent(ctx context.Context, limit int) ([]domain.Opportunity, error)
}

// Config holds the request defaults and server timeouts.
type Config struct {
	Port              int
	Investment        decimal.Decimal
	MinProfitPercent  decimal.Decimal
	RequestTimeout    time.Duration
	ReadHeaderTimeout time.Duration
}

// Server is the HTTP API.
type Server struct {
	cfg     Config
	scanner Scanner
	quotes  QuoteSource
	journal Journal
	assets  *asset.Registry
	log     logger.LoggerInterface

	router *mux.Router
	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithQuotes enables GET /v1/quotes.
func WithQuotes(q QuoteSource) Option {
	return func(s *Server) { s.quotes = q }
}

// WithJournal enables GET /v1/opportunities.
func WithJournal(j Journal) Option {
	return func(s *Server) { s.journal = j }
}

// NewServer builds the router. Call Start to listen.
func NewServer(cfg Config, scanner Scanner, assets *asset.Registry, log logger.LoggerInterface, opts ...Option) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}

	s := &Server{
		cfg:     cfg,
		scanner: scanner,
		assets:  assets,
		log:     log,
		router:  mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestID)
	s.router.Use(s.requestLogging)
	s.router.Use(s.timeout)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Use(jsonContentType)

	v1.HandleFunc("/scan", s.handleScan).Methods(http.MethodGet)
	v1.HandleFunc("/sources", s.handleListSources).Methods(http.MethodGet)
	v1.HandleFunc("/sources/{slug}", s.handleSetSource).Methods(http.MethodPut)
	v1.HandleFunc("/quotes", s.handleQuotes).Methods(http.MethodGet)
	v1.HandleFunc("/opportunities", s.handleOpportunities).Methods(http.MethodGet)

	// Subrouters answer unmatched requests themselves, so both need the handlers.
	for _, r := range []*mux.Router{s.router, v1} {
		r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
		r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
	}
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "dexarb.api")
}

// Start listens in the background. It fails fast when the port is taken.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api port %d unavailable: %w", s.cfg.Port, err)
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(context.Background(), "api server stopped", "error", err)
		}
	}()

	s.log.Info(context.Background(), "api listening", "addr", addr)
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type requestIDKey struct{}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()[:8]
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.Debug(r.Context(), "request",
			"request_id", r.Context().Value(requestIDKey{}),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func (s *Server) timeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
