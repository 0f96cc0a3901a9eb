package api

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes server instrumentation to Prometheus.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	trades    prometheus.Counter
	imported  prometheus.Counter
	wsClients prometheus.Gauge
}

// NewMetrics creates the server metric set on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "journal_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		trades: factory.NewCounter(prometheus.CounterOpts{
			Name: "journal_trades_created_total",
			Help: "Trade legs journaled via the API.",
		}),
		imported: factory.NewCounter(prometheus.CounterOpts{
			Name: "journal_sync_imported_total",
			Help: "Trade legs imported from brokers.",
		}),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "journal_websocket_clients",
			Help: "Currently connected WebSocket clients.",
		}),
	}
}

// Handler serves the metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TradeCreated counts a leg journaled through the HTTP API.
func (m *Metrics) TradeCreated() { m.trades.Inc() }

// SyncImported counts legs imported by a broker sync.
func (m *Metrics) SyncImported(n int) { m.imported.Add(float64(n)) }

// ClientConnected tracks a new WebSocket client.
func (m *Metrics) ClientConnected() { m.wsClients.Inc() }

// ClientDisconnected tracks a WebSocket client going away.
func (m *Metrics) ClientDisconnected() { m.wsClients.Dec() }

// Middleware instruments every routed request. The route template keeps
// cardinality bounded; raw paths with IDs never become label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(recorder.status)).Inc()
		m.durations.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps WebSocket upgrades working behind the instrumentation.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hijacker.Hijack()
}
