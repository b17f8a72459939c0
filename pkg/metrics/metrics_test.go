package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics(reg, "orders-service")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/orders/{orderId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/abc", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	got := testutil.ToFloat64(m.Requests.WithLabelValues("/orders/{orderId}", "GET", "404"))
	assert.Equal(t, float64(2), got)
}

func TestHandler_ExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics(reg, "cart-service")
	m.Requests.WithLabelValues("/health", "GET", "200").Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `http_requests_total{method="GET",route="/health",service="cart-service",status="200"} 1`))
}

func TestBreakerState(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := NewBreakerState(reg, "cart-service")

	b.Set("kafka-publisher", 2)
	b.Set("discount", 0)

	assert.Equal(t, float64(2), testutil.ToFloat64(b.gauge.WithLabelValues("kafka-publisher")))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.gauge.WithLabelValues("discount")))
}
