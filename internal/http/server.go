// Package http serves the assessd JSON API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/assessd/internal/logging"
)

// Server provides HTTP endpoints for assessd.
type Server struct {
	echo     *echo.Echo
	services Services
	logger   *logging.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// BodyLimit is an echo size string such as "10M". Empty disables it.
	BodyLimit string
	// ImportRatePerMinute bounds CSV uploads per client IP. Zero disables it.
	ImportRatePerMinute int
	// Meter receives HTTP metrics. Defaults to the global meter provider.
	Meter metric.Meter
}

// NewServer creates a new HTTP server.
func NewServer(services Services, logger *logging.Logger, cfg *Config) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	switch {
	case services.Importer == nil:
		return nil, errors.New("importer cannot be nil")
	case services.Assessments == nil:
		return nil, errors.New("assessment service cannot be nil")
	case services.Answers == nil:
		return nil, errors.New("answer service cannot be nil")
	case services.Exports == nil:
		return nil, errors.New("exporter cannot be nil")
	}
	if cfg == nil {
		cfg = &Config{
			Host:                "localhost",
			Port:                9090,
			BodyLimit:           "10M",
			ImportRatePerMinute: 10,
		}
	}
	if cfg.Meter == nil {
		cfg.Meter = otel.Meter(httpInstrumentationName)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		services: services,
		logger:   logger,
		config:   cfg,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			c.SetRequest(c.Request().WithContext(logging.WithRequestID(c.Request().Context(), requestID)))

			err := next(c)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)

			return err
		}
	})
	e.Use(NewHTTPMetrics(cfg.Meter, logger).MetricsMiddleware())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiGroup := s.echo.Group("/api")
	apiGroup.GET("/health", s.handleAPIHealth)

	admin := apiGroup.Group("/admin")
	admin.POST("/import-questions", s.handleImport, s.importLimiter()...)
	admin.GET("/import-questions/coverage", s.handleCoverage)

	apiGroup.POST("/assessments", s.handleCreateAssessment)
	apiGroup.GET("/assessments/:id/questions", s.handleQuestions)
	apiGroup.POST("/answers/:assessmentId/batch", s.handleBatch)
	apiGroup.GET("/exports/:assessmentId/pdf", s.handleExport)
	apiGroup.GET("/exports/:assessmentId/excel", s.handleExport)
}

// importLimiter throttles CSV uploads per client IP.
func (s *Server) importLimiter() []echo.MiddlewareFunc {
	perMinute := s.config.ImportRatePerMinute
	if perMinute <= 0 {
		return nil
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Every(time.Minute / time.Duration(perMinute)),
		Burst:     perMinute,
		ExpiresIn: 10 * time.Minute,
	})
	return []echo.MiddlewareFunc{middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			s.logger.Warn(c.Request().Context(), "import rate limit exceeded", zap.String("client", identifier))
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many imports, try again later")
		},
	})}
}

// Echo exposes the underlying router for extra routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := s.Addr()
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
