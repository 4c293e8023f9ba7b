package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/liftcheck"
	"github.com/labstack/echo/v4"
)

// errorStatusCode maps domain error codes to HTTP status codes.
func errorStatusCode(code string) int {
	switch code {
	case liftcheck.ENOTFOUND:
		return http.StatusNotFound
	case liftcheck.EINVALID:
		return http.StatusBadRequest
	case liftcheck.ECONFLICT:
		return http.StatusConflict
	case liftcheck.EMISSINGPHOTO, liftcheck.EPHOTOLIMIT, liftcheck.EINCOMPLETE:
		return http.StatusUnprocessableEntity
	case liftcheck.EPHOTOTOOLARGE:
		return http.StatusRequestEntityTooLarge
	case liftcheck.EPHOTOTYPE:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse represents the JSON error response format.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// HandleError converts domain errors to appropriate HTTP responses.
// It logs internal errors and returns user-safe messages.
func HandleError(c echo.Context, logger *slog.Logger, err error) error {
	code := liftcheck.ErrorCode(err)
	message := liftcheck.ErrorMessage(err)
	fields := liftcheck.ErrorFields(err)
	status := errorStatusCode(code)

	// Log internal errors with full details
	if code == liftcheck.EINTERNAL {
		logger.Error("internal error",
			slog.String("error", err.Error()),
			slog.String("path", c.Path()),
			slog.String("method", c.Request().Method),
		)
		// Don't expose internal error details to clients
		message = "An internal error occurred."
	}

	return c.JSON(status, ErrorResponse{
		Error:   code,
		Message: message,
		Fields:  fields,
	})
}

// httpErrorHandler handles errors and returns appropriate responses.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	// Echo errors (unknown route, method not allowed, body too large) keep
	// their status code.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		if he.Code >= http.StatusInternalServerError {
			s.getRequestLogger(c).Error("http error",
				slog.Int("status", he.Code),
				slog.String("message", message),
			)
		}
		_ = c.JSON(he.Code, ErrorResponse{
			Error:   httpErrorCode(he.Code),
			Message: message,
		})
		return
	}

	// Handle domain errors
	_ = HandleError(c, s.getRequestLogger(c), err)
}

// httpErrorCode names echo's own errors with the closest domain code.
func httpErrorCode(status int) string {
	switch status {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return liftcheck.ENOTFOUND
	case http.StatusRequestEntityTooLarge:
		return liftcheck.EPHOTOTOOLARGE
	case http.StatusUnsupportedMediaType:
		return liftcheck.EPHOTOTYPE
	case http.StatusTooManyRequests:
		return ERATELIMITED
	}
	if status < http.StatusInternalServerError {
		return liftcheck.EINVALID
	}
	return liftcheck.EINTERNAL
}
