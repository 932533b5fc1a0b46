package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/api/login", "POST", 200, 10*time.Millisecond)
	m.RecordRequest("/api/login", "POST", 200, 5*time.Millisecond)
	m.RecordError("/api/get-user", "GET", "SESSION_EXPIRED")
	m.RecordSessionOperation("refresh", nil)
	m.RecordSessionOperation("refresh", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/login", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("/api/get-user", "GET", "SESSION_EXPIRED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionOps.WithLabelValues("refresh", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionOps.WithLabelValues("refresh", "error")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordSessionOperation("login", nil)
	})
}

func TestMetrics_HandlerExposesFamilies(t *testing.T) {
	m := NewMetrics()
	m.RecordSessionOperation("login", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "session_operations_total")
}

func TestRequestLogger_SetsRequestIDAndRecords(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewMetrics()

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), m))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	assert.Equal(t, 1, logs.FilterMessage("request completed").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/ping", "GET", "200")))
}

func TestRequestLogger_KeepsIncomingRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), nil))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}
