package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusConflict, "empty_cart"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrStorage):
		return http.StatusServiceUnavailable, "storage"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError renders a service error. Storage and internal failures are
// logged with their cause but the client only sees a generic message.
func writeError(c echo.Context, l *slog.Logger, event string, err error) error {
	status, code := classify(err)
	resp := transport.ErrorResponse{Error: err.Error(), Code: code}

	switch {
	case status == http.StatusServiceUnavailable:
		resp.Error = "storage temporarily unavailable"
		resp.Retryable = true
		l.Error(event, "status", status, "error", err)
	case status >= 500:
		resp.Error = "internal error"
		l.Error(event, "status", status, "error", err)
	default:
		l.Warn(event, "status", status, "error", err)
	}
	return c.JSON(status, resp)
}

func badRequest(c echo.Context, l *slog.Logger, event, msg string, err error) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", msg, "error", err)
	return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: msg, Code: "validation"})
}
