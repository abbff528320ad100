package observability

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", ExtractRequestID(ctx))
	assert.Equal(t, "", ExtractRequestID(context.Background()))
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "production").Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	newLogger(&buf, "development").Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestLogAsyncOperationError(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithRequestID(context.Background(), "req-1")
	LogAsyncOperationError(ctx, newLogger(&buf, "production"), "calc_ratings", errors.New("boom"))
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestHTTPMetrics(t *testing.T) {
	e := echo.New()
	e.Use(HTTPMetrics())
	e.GET("/ping/:id", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/ping/:id", "200"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping/7", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	after := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/ping/:id", "200"))
	assert.Equal(t, before+1, after)
}
