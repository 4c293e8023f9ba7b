package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/dukerupert/liftcheck"
	"github.com/dukerupert/liftcheck/engine"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Server represents the HTTP server with all its dependencies.
type Server struct {
	echo   *echo.Echo
	ln     net.Listener
	logger *slog.Logger

	// Configuration
	Addr string

	// Domain services
	engine    *engine.Engine
	templates liftcheck.TemplateCatalog

	// ready reports whether backing services are reachable.
	ready func(ctx context.Context) error

	metrics  *Metrics
	gatherer prometheus.Gatherer

	uploadsDir    string
	uploadLimiter *RateLimiter
}

// Config holds the configuration for creating a new Server.
type Config struct {
	Addr   string
	Logger *slog.Logger

	// Domain services
	Engine    *engine.Engine
	Templates liftcheck.TemplateCatalog

	// Ready is called by the readiness check. Nil means always ready.
	Ready func(ctx context.Context) error

	// MetricsRegisterer receives the HTTP metrics. MetricsGatherer is
	// served at /metrics. Either may be nil to disable that part.
	MetricsRegisterer prometheus.Registerer
	MetricsGatherer   prometheus.Gatherer

	// UploadsDir, if set, is served at /uploads for local photo storage.
	UploadsDir string

	// UploadRateLimit throttles photo uploads per technician. A zero Rate
	// disables it.
	UploadRateLimit RateLimitConfig
}

// NewServer creates a new HTTP server with the given configuration.
func NewServer(cfg Config) *Server {
	s := &Server{
		Addr:      cfg.Addr,
		logger:    cfg.Logger,
		engine:    cfg.Engine,
		templates: cfg.Templates,
		ready:     cfg.Ready,
		gatherer:  cfg.MetricsGatherer,

		uploadsDir: cfg.UploadsDir,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if cfg.MetricsRegisterer != nil {
		s.metrics = NewMetrics(cfg.MetricsRegisterer)
	}
	if cfg.UploadRateLimit.Rate > 0 {
		s.uploadLimiter = NewRateLimiter(s.logger, cfg.UploadRateLimit)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Validator = NewValidator()

	// Register middleware and routes
	s.registerMiddleware()
	s.registerRoutes()

	return s
}

// Echo returns the underlying Echo instance.
// Use sparingly - prefer registering routes through Server methods.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Open starts the HTTP server.
func (s *Server) Open() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ln = ln

	go func() {
		if err := s.echo.Server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	s.logger.Info("server started", slog.String("addr", s.Addr))
	return nil
}

// Close gracefully shuts down the HTTP server.
func (s *Server) Close(ctx context.Context) error {
	if s.uploadLimiter != nil {
		s.uploadLimiter.Shutdown()
	}
	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// URL returns the URL of the server.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}
