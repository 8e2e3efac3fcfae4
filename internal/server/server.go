package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// DefaultListenAddress is used when Config.ListenAddress is empty.
	DefaultListenAddress = ":3000"

	// DefaultShutdownTimeout is used when Config.ShutdownTimeout is zero.
	DefaultShutdownTimeout = 10 * time.Second

	readHeaderTimeout = 10 * time.Second
	maxHeaderBytes    = 1 << 20
)

// Config holds the HTTP-level settings.
type Config struct {
	// ListenAddress is the host:port to bind.
	ListenAddress string

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// RateLimit is the per-key request rate on worker routes; 0 disables it.
	RateLimit float64

	// RateBurst is the token bucket size for RateLimit.
	RateBurst int

	// GraphSynchronous makes GET /graph export inline and return the document.
	GraphSynchronous bool
}

// Dependencies are the collaborators behind the routes.
type Dependencies struct {
	Work     WorkService
	Auth     Authenticator
	Graph    GraphJob
	Frontier FrontierSizer

	// Metrics, when set, observes every request.
	Metrics RequestObserver

	// Gatherer, when set, is exposed on GET /metrics.
	Gatherer prometheus.Gatherer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the coordinator HTTP server.
type Server struct {
	cfg      Config
	router   *gin.Engine
	work     WorkService
	auth     Authenticator
	graph    GraphJob
	frontier FrontierSizer
	limiter  *keyLimiter
	logger   *slog.Logger

	mu      sync.RWMutex
	baseCtx context.Context //nolint:containedctx // outlives requests for background exports
}

// New builds the router. Gin's mode is a process-wide setting and is left
// to the caller.
func New(cfg Config, deps Dependencies) (*Server, error) {
	if deps.Work == nil || deps.Auth == nil || deps.Graph == nil {
		return nil, ErrMissingDependency
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		work:     deps.Work,
		auth:     deps.Auth,
		graph:    deps.Graph,
		frontier: deps.Frontier,
		logger:   deps.Logger,
		baseCtx:  context.Background(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = newKeyLimiter(cfg.RateLimit, burst)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(s.logger))
	router.Use(LoggerMiddleware(s.logger))
	if deps.Metrics != nil {
		router.Use(MetricsMiddleware(deps.Metrics))
	}
	s.router = router
	s.setupRoutes(deps.Gatherer)

	return s, nil
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.GET("/health", s.handleHealth)
	if gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	admin := s.router.Group("/", RequireAdmin(s.auth))
	admin.POST("/create_account", s.handleCreateAccount)
	admin.GET("/graph", s.handleGraph)

	workerMiddleware := []gin.HandlerFunc{RequireWorker(s.auth)}
	if s.limiter != nil {
		workerMiddleware = append(workerMiddleware, RateLimitMiddleware(s.limiter))
	}
	worker := s.router.Group("/", workerMiddleware...)
	worker.GET("/work", s.handleGetWork)
	worker.POST("/work", s.handlePostWork)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) baseContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseCtx
}

// Run serves until ctx is cancelled, then shuts down gracefully.
// Background graph exports started by GET /graph inherit ctx.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server", "timeout", s.cfg.ShutdownTimeout)

	// ctx is already cancelled; shutdown needs its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return <-errCh
}
