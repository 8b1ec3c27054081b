// Package metrics exposes Prometheus counters for the HTTP API, the record
// stores and the reminder pipeline.
package metrics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg             prometheus.Registerer
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	recordMutations *prometheus.CounterVec
	reminders       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		recordMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "record",
			Name:      "mutations_total",
			Help:      "Collection rewrites by collection and operation",
		}, []string{"collection", "op"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "reminder",
			Name:      "runs_total",
			Help:      "Reminder runs by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m.reg = reg
	reg.MustRegister(m.httpRequests, m.httpLatency, m.recordMutations, m.reminders)
	return m
}

// TrackSuspicious exports count as the number of suspicious requests seen.
// A second registration on the same registry is ignored.
func (m *Metrics) TrackSuspicious(count func() int64) {
	if m == nil {
		return
	}
	err := m.reg.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "studio",
		Subsystem: "security",
		Name:      "suspicious_requests_total",
		Help:      "Requests flagged by the suspicious pattern detector",
	}, func() float64 { return float64(count()) }))
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		panic(err)
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(seconds)
}

// ObserveMutation has the record.Observer signature
func (m *Metrics) ObserveMutation(collection, op string) {
	if m == nil {
		return
	}
	m.recordMutations.WithLabelValues(collection, op).Inc()
}

func (m *Metrics) ObserveReminderRun(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.reminders.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
