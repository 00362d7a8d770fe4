package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the operation engine with prometheus collectors. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	operationsStarted   *prometheus.CounterVec
	operationsCompleted *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec
	gatewayCalls        *prometheus.CounterVec
	gatewayRetries      *prometheus.CounterVec
	eventsObserved      prometheus.Counter
}

// NewMetrics creates the engine's collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operationsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unitops",
			Name:      "operations_started_total",
			Help:      "Operations started, by kind.",
		}, []string{"kind"}),
		operationsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unitops",
			Name:      "operations_completed_total",
			Help:      "Operations settled, by kind and terminal phase.",
		}, []string{"kind", "phase"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "unitops",
			Name:      "operation_duration_seconds",
			Help:      "Wall time from start to settlement, by kind.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"kind"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unitops",
			Name:      "gateway_calls_total",
			Help:      "Gateway calls issued, by method.",
		}, []string{"method"}),
		gatewayRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unitops",
			Name:      "gateway_retries_total",
			Help:      "Gateway call retries, by error class.",
		}, []string{"class"}),
		eventsObserved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "unitops",
			Name:      "events_observed_total",
			Help:      "New operation events ingested from the remote log.",
		}),
	}
	reg.MustRegister(
		m.operationsStarted,
		m.operationsCompleted,
		m.operationDuration,
		m.gatewayCalls,
		m.gatewayRetries,
		m.eventsObserved,
	)
	return m
}

// OperationStarted counts one started operation.
func (m *Metrics) OperationStarted(kind string) {
	if m == nil {
		return
	}
	m.operationsStarted.WithLabelValues(kind).Inc()
}

// OperationCompleted counts one settled operation and observes its duration.
func (m *Metrics) OperationCompleted(kind, phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.operationsCompleted.WithLabelValues(kind, phase).Inc()
	m.operationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// GatewayCall counts one gateway call.
func (m *Metrics) GatewayCall(method string) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(method).Inc()
}

// GatewayRetry counts one retried gateway call.
func (m *Metrics) GatewayRetry(class string) {
	if m == nil {
		return
	}
	m.gatewayRetries.WithLabelValues(class).Inc()
}

// EventsObserved counts newly ingested events.
func (m *Metrics) EventsObserved(n int) {
	if m == nil || n == 0 {
		return
	}
	m.eventsObserved.Add(float64(n))
}
