// Package metrics registers the Prometheus collectors the service exports on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector. Construct it once per process with New.
type Metrics struct {
	registry *prometheus.Registry

	// Operations counts coordinator operations by name and outcome kind
	// ("ok" or an error kind such as "conflict").
	Operations *prometheus.CounterVec

	// OperationDuration observes coordinator operation latency.
	OperationDuration *prometheus.HistogramVec

	// Transitions counts participant transitions by target status.
	Transitions *prometheus.CounterVec

	// PaymentsRecorded counts payments by outcome: recorded, duplicate, rejected.
	PaymentsRecorded *prometheus.CounterVec

	// SnapshotLookups counts public-snapshot reads by result: hit, miss, error.
	SnapshotLookups *prometheus.CounterVec

	// RPCRequests counts Connect calls by procedure and code.
	RPCRequests *prometheus.CounterVec
}

// New creates collectors on a fresh registry, including Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groupcart",
			Name:      "operations_total",
			Help:      "Coordinator operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "groupcart",
			Name:      "operation_duration_seconds",
			Help:      "Coordinator operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groupcart",
			Name:      "participant_transitions_total",
			Help:      "Participant state transitions by target status.",
		}, []string{"to"}),
		PaymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groupcart",
			Name:      "payments_total",
			Help:      "Payment notifications by outcome.",
		}, []string{"outcome"}),
		SnapshotLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groupcart",
			Name:      "snapshot_lookups_total",
			Help:      "Public group snapshot cache lookups.",
		}, []string{"result"}),
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groupcart",
			Name:      "rpc_requests_total",
			Help:      "Connect RPCs by procedure and code.",
		}, []string{"procedure", "code"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Operations,
		m.OperationDuration,
		m.Transitions,
		m.PaymentsRecorded,
		m.SnapshotLookups,
		m.RPCRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
