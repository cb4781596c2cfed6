// Package metrics: счётчики Prometheus сервиса на собственном реестре.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"phoneverify/internal/verification"
)

const namespace = "phoneverify"

type Metrics struct {
	registry *prometheus.Registry

	runs            *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	deliveryErrors  prometheus.Counter
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	botUpdates      *prometheus.CounterVec
	alertsDropped   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_runs_total",
			Help:      "Verification runs by source, state and error kind.",
		}, []string{"source", "state", "kind"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verification_run_duration_seconds",
			Help:      "Verification run duration including delivery.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
		deliveryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_errors_total",
			Help:      "Failed chat deliveries.",
		}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream API calls by operation and result.",
		}, []string{"op", "result"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		botUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_updates_total",
			Help:      "Telegram updates by type.",
		}, []string{"type"}),
		alertsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_dropped_total",
			Help:      "Support alerts dropped because the queue was full.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runs, m.runDuration, m.deliveryErrors,
		m.upstreamCalls, m.upstreamLatency,
		m.httpRequests, m.httpDuration,
		m.botUpdates, m.alertsDropped,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRun реализует verification.Observer.
func (m *Metrics) ObserveRun(_ context.Context, run verification.Run) {
	m.runs.WithLabelValues(string(run.Source), string(run.Outcome.State), string(run.Outcome.Kind())).Inc()
	m.runDuration.WithLabelValues(string(run.Source)).Observe(run.Took.Seconds())
	if run.Outcome.DeliveryErr != nil {
		m.deliveryErrors.Inc()
	}
}

// ObserveUpstream реализует upstream.Observer.
func (m *Metrics) ObserveUpstream(op, result string, took time.Duration) {
	m.upstreamCalls.WithLabelValues(op, result).Inc()
	m.upstreamLatency.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) ObserveHTTP(route, method string, status int, took time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(took.Seconds())
}

func (m *Metrics) BotUpdate(kind string) {
	m.botUpdates.WithLabelValues(kind).Inc()
}

func (m *Metrics) AlertDropped() {
	m.alertsDropped.Inc()
}
