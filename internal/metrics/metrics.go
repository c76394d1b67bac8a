package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they need.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	RelationshipTransitions *prometheus.CounterVec
	MessagesAppended        *prometheus.CounterVec

	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec
}

func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RelationshipTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relationship_transitions_total",
				Help:      "Connection request transitions by operation and outcome code",
			},
			[]string{"operation", "outcome"},
		),
		MessagesAppended: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_appended_total",
				Help:      "Message appends by outcome (ok, duplicate or an error code)",
			},
			[]string{"outcome"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Persistence operations by store, operation and result",
			},
			[]string{"store", "operation", "result"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Persistence operation latency",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"store", "operation"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_breaker_state",
				Help:      "Circuit breaker state per store (0 closed, 1 half-open, 2 open)",
			},
			[]string{"store"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.RelationshipTransitions,
		c.MessagesAppended,
		c.StoreOperations,
		c.StoreDuration,
		c.BreakerState,
	)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// The helpers below are nil-safe so components can run without metrics.

func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveTransition(operation, outcome string) {
	if c == nil {
		return
	}
	c.RelationshipTransitions.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) ObserveAppend(outcome string) {
	if c == nil {
		return
	}
	c.MessagesAppended.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveStore(store, operation, result string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.StoreOperations.WithLabelValues(store, operation, result).Inc()
	c.StoreDuration.WithLabelValues(store, operation).Observe(elapsed.Seconds())
}

func (c *Collector) SetBreakerState(store string, state float64) {
	if c == nil {
		return
	}
	c.BreakerState.WithLabelValues(store).Set(state)
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
