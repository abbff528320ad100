package apperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

const genericMessage = "Something went very wrong!"

// Handler returns the echo.HTTPErrorHandler that renders every failure of the
// API. In development the full error and stack are returned; in production
// only operational errors keep their message.
func Handler(env string, logger *slog.Logger) echo.HTTPErrorHandler {
	dev := env != "production" && env != "prod"
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		req := c.Request()
		if errors.Is(err, echo.ErrNotFound) {
			err = routeNotFound(req.URL.String())
		}
		e := Translate(err)

		if !e.Operational || e.StatusCode >= http.StatusInternalServerError {
			logger.ErrorContext(req.Context(), "request failed",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", e.StatusCode),
				slog.String("error", err.Error()),
			)
		}

		var body any
		switch {
		case dev:
			body = echo.Map{
				"status":  e.Status,
				"error":   e,
				"message": e.Message,
				"stack":   e.Stack,
			}
		case e.Operational:
			body = echo.Map{"status": e.Status, "message": e.Message}
		default:
			e = &AppError{StatusCode: http.StatusInternalServerError, Status: "error"}
			body = echo.Map{"status": "error", "message": genericMessage}
		}

		if req.Method == http.MethodHead {
			err = c.NoContent(e.StatusCode)
		} else {
			err = c.JSON(e.StatusCode, body)
		}
		if err != nil {
			logger.Error("write error response", slog.String("error", err.Error()))
		}
	}
}

// RouteNotFound is registered for unmatched paths so they share the error
// envelope.
func RouteNotFound(c echo.Context) error {
	return routeNotFound(c.Request().URL.String())
}

func routeNotFound(url string) *AppError {
	return NotFound("Can't find " + url + " on this server!")
}
