package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/apperr"
)

// requestTimeout bounds every storage call made on behalf of a request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// ok writes {"status":"success","data":{...}}.
func ok(c echo.Context, code int, data echo.Map) error {
	return c.JSON(code, echo.Map{"status": "success", "data": data})
}

// many writes a list envelope with its result count.
func many(c echo.Context, name string, docs any, n int) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"results": n,
		"data":    echo.Map{name: docs},
	})
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name, path string) (uint64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, &apperr.CastError{Path: path, Value: raw, Err: err}
	}
	return id, nil
}

// decodePayload reads a JSON object body into a map.  An empty body is an
// empty payload.
func decodePayload(c echo.Context) (map[string]any, error) {
	payload := map[string]any{}
	if c.Request().ContentLength == 0 {
		return payload, nil
	}
	if err := c.Echo().JSONSerializer.Deserialize(c, &payload); err != nil {
		if errors.Is(err, io.EOF) {
			return payload, nil
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, err
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return payload, nil
}
