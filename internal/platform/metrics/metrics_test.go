package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(m *Metrics) chi.Router {
	router := chi.NewRouter()
	router.Use(m.Middleware())
	router.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "Hello World")
	})
	router.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return router
}

func TestMiddlewareCountsByRoutePattern(t *testing.T) {
	m := New()
	router := newRouter(m)

	for range 3 {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/1", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/2", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/items/{id}", "204")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}

func TestMiddlewareLabelsUnmatchedRoutes(t *testing.T) {
	m := New()
	router := newRouter(m)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", unmatchedRoute, "404")))
}

func TestMiddlewareWithoutChiContext(t *testing.T) {
	m := New()
	h := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", unmatchedRoute, "200")))
}

func TestRecordObservesDuration(t *testing.T) {
	m := New()
	m.Record(http.MethodGet, "/", http.StatusOK, 20*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration, "http_request_duration_seconds"))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Record(http.MethodGet, "/", http.StatusOK, time.Millisecond)

	resp := httptest.NewRecorder()
	m.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.True(t, strings.Contains(body, `http_requests_total{method="GET",route="/",status="200"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestInstancesAreIsolated(t *testing.T) {
	a, b := New(), New()
	a.Record(http.MethodGet, "/", http.StatusOK, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.requestsTotal.WithLabelValues("GET", "/", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.requestsTotal.WithLabelValues("GET", "/", "200")))
	assert.NotSame(t, a.Registry(), b.Registry())
}
