package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics holds the gateway's collectors on a private registry so several engines
// (as in tests) never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	timeouts *prometheus.CounterVec
	handler  fasthttp.RequestHandler
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cgibox",
			Name:      "requests_total",
			Help:      "CGI requests handled, by route, script, mode and response status.",
		}, []string{"route", "script", "mode", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cgibox",
			Name:      "request_duration_seconds",
			Help:      "Wall time spent running CGI scripts.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"route", "script", "mode"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cgibox",
			Name:      "timeouts_total",
			Help:      "CGI scripts stopped for exceeding their execution timeout.",
		}, []string{"route", "script"}),
	}

	registry.MustRegister(
		m.requests,
		m.duration,
		m.timeouts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.handler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return m
}

func (m *Metrics) ObserveRequest(route, script, mode string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, script, mode, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route, script, mode).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTimeout(route, script string) {
	m.timeouts.WithLabelValues(route, script).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fasthttp.RequestHandler {
	return m.handler
}
