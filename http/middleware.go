package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/liftcheck"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	// TechnicianHeader carries the acting technician's ID. Authentication
	// happens upstream; the engine only records who did what.
	TechnicianHeader = "X-Technician-ID"

	// Default timeout for store operations.
	DefaultTimeout = 5 * time.Second

	// UploadTimeout bounds photo uploads, which stream to file storage.
	UploadTimeout = 60 * time.Second
)

// registerMiddleware sets up all middleware for the server.
func (s *Server) registerMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Request ID and technician on the request context
	s.echo.Use(requestContextMiddleware())

	// Metrics wrap the logger, which renders errors, so they see final statuses.
	if s.metrics != nil {
		s.echo.Use(s.metrics.Middleware())
	}

	// Logger middleware with request ID
	s.echo.Use(s.requestLoggerMiddleware())

	// CORS middleware (configure as needed)
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID, TechnicianHeader},
	}))

	// Custom error handler
	s.echo.HTTPErrorHandler = s.httpErrorHandler
}

// requestContextMiddleware copies the request ID and the technician header
// onto the request context so the engine can log and attribute changes.
func requestContextMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				ctx = liftcheck.NewContextWithRequestID(ctx, id)
			}
			if tech := strings.TrimSpace(c.Request().Header.Get(TechnicianHeader)); tech != "" {
				ctx = liftcheck.NewContextWithTechnicianID(ctx, tech)
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// requestLoggerMiddleware creates a middleware that logs requests with context.
func (s *Server) requestLoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)

			// Create request-scoped logger
			logger := s.logger.With(
				slog.String("request_id", requestID),
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
			)
			c.Set("logger", logger)

			err := next(c)
			if err != nil {
				// Render the error now so the logged status is the real one.
				c.Error(err)
			}

			// Log request completion
			duration := time.Since(start)
			status := c.Response().Status

			logAttrs := []any{
				slog.Int("status", status),
				slog.Duration("duration", duration),
			}

			if err != nil {
				logAttrs = append(logAttrs, slog.String("error", err.Error()))
			}

			if status >= 500 {
				logger.Error("request completed with server error", logAttrs...)
			} else if status >= 400 {
				logger.Warn("request completed with client error", logAttrs...)
			} else {
				logger.Info("request completed", logAttrs...)
			}

			return nil
		}
	}
}

// getRequestLogger retrieves the request-scoped logger from context.
func (s *Server) getRequestLogger(c echo.Context) *slog.Logger {
	if logger, ok := c.Get("logger").(*slog.Logger); ok {
		return logger
	}
	return s.logger
}
