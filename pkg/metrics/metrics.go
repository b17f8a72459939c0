package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	m := &ServerMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "HTTP requests by route, method and status",
			ConstLabels: prometheus.Labels{"service": service},
		}, []string{"route", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_ms",
			Help:        "HTTP request latency in milliseconds",
			ConstLabels: prometheus.Labels{"service": service},
			Buckets:     []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route", "method"}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS)
	return m
}

// Middleware records every request under its chi route pattern so path
// parameters do not explode label cardinality.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(route, r.Method).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// BreakerState exports circuit breaker state per breaker name:
// 0 closed, 1 half-open, 2 open.
type BreakerState struct {
	gauge *prometheus.GaugeVec
}

func NewBreakerState(reg prometheus.Registerer, service string) *BreakerState {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "circuit_breaker_state",
		Help:        "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		ConstLabels: prometheus.Labels{"service": service},
	}, []string{"name"})
	reg.MustRegister(g)
	return &BreakerState{gauge: g}
}

func (b *BreakerState) Set(name string, state int) {
	b.gauge.WithLabelValues(name).Set(float64(state))
}
