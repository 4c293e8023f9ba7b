package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/liftcheck"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// withTimeout creates a context with a timeout for handler operations.
func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), DefaultTimeout)
}

// parseUUID parses a UUID from a string, returning a domain error if invalid.
func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, liftcheck.Invalid("Invalid ID format")
	}
	return id, nil
}

// requireParam extracts a required route parameter, returning error if empty.
func requireParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", liftcheck.Invalid("%s is required", name)
	}
	return value, nil
}

// requireUUIDParam extracts and parses a required UUID route parameter.
func requireUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	value, err := requireParam(c, name)
	if err != nil {
		return uuid.UUID{}, err
	}
	return parseUUID(value)
}

// requireItemParams extracts the inspection ID and item key of an item route.
func requireItemParams(c echo.Context) (uuid.UUID, liftcheck.ItemKey, error) {
	id, err := requireUUIDParam(c, "id")
	if err != nil {
		return uuid.UUID{}, liftcheck.ItemKey{}, err
	}
	section, err := requireParam(c, "section")
	if err != nil {
		return uuid.UUID{}, liftcheck.ItemKey{}, err
	}
	item, err := requireParam(c, "item")
	if err != nil {
		return uuid.UUID{}, liftcheck.ItemKey{}, err
	}
	return id, liftcheck.ItemKey{SectionID: section, ItemID: item}, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(c echo.Context, name string, def int) (int, error) {
	value := c.QueryParam(name)
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, liftcheck.Invalid("%s must be a non-negative integer", name)
	}
	return n, nil
}

// bind binds the request body to a struct and validates it.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return liftcheck.Invalid("Invalid request body")
	}
	if err := c.Validate(v); err != nil {
		return err
	}
	return nil
}

// log returns the request-scoped logger.
func (s *Server) log(c echo.Context) *slog.Logger {
	return s.getRequestLogger(c)
}

// Health handlers
func (s *Server) handleHealthCheck(c echo.Context) error {
	return RespondOK(c, map[string]string{"status": "ok"})
}

func (s *Server) handleLivenessCheck(c echo.Context) error {
	return RespondOK(c, map[string]string{"status": "alive"})
}

func (s *Server) handleReadinessCheck(c echo.Context) error {
	if s.ready != nil {
		ctx, cancel := withTimeout(c)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.log(c).Warn("readiness check failed", slog.String("error", err.Error()))
			return Respond(c, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return RespondOK(c, map[string]string{"status": "ready"})
}
