// Package metrics holds the Prometheus collectors shared by the routing
// client, the user operation builder and the API server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "squidroute"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	gatherer prometheus.Gatherer

	addressesDerived *prometheus.CounterVec
	routeRequests    *prometheus.CounterVec
	routeDuration    *prometheus.HistogramVec
	userOpsBuilt     *prometheus.CounterVec
	apiRequests      *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: g,
		addressesDerived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "addresses_derived_total",
				Help:      "Public keys converted to addresses, by result",
			},
			[]string{"result"},
		),
		routeRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "squid",
				Name:      "route_requests_total",
				Help:      "Routing API requests, by outcome",
			},
			[]string{"outcome"},
		),
		routeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "squid",
				Name:      "route_request_duration_seconds",
				Help:      "Routing API request latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		userOpsBuilt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "userop",
				Name:      "built_total",
				Help:      "User operations built, by result",
			},
			[]string{"result"},
		),
		apiRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"route", "status"},
		),
	}
}

func (m *Metrics) AddressDerived(err error) {
	if m == nil {
		return
	}
	m.addressesDerived.WithLabelValues(result(err)).Inc()
}

// RouteRequest records one routing API call.
// outcome is "ok", "http_error" or "transport_error".
func (m *Metrics) RouteRequest(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.routeRequests.WithLabelValues(outcome).Inc()
	m.routeDuration.WithLabelValues(outcome).Observe(took.Seconds())
}

func (m *Metrics) UserOpBuilt(err error) {
	if m == nil {
		return
	}
	m.userOpsBuilt.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) APIRequest(route string, status int) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(route, http.StatusText(status)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
