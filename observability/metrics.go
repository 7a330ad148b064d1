package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	protoerrors "ideacapital/core/errors"
)

type protocolMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

var (
	protocolMetricsOnce sync.Once
	protocolRegistry    *protocolMetrics
)

// Protocol returns the lazily-initialised registry recording protocol
// operation outcomes.
func Protocol() *protocolMetrics {
	protocolMetricsOnce.Do(func() {
		protocolRegistry = &protocolMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ideacapital",
				Subsystem: "protocol",
				Name:      "operations_total",
				Help:      "Protocol operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "ideacapital",
				Subsystem: "protocol",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for protocol operations, commit included.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
		}
		prometheus.MustRegister(protocolRegistry.operations, protocolRegistry.latency)
	})
	return protocolRegistry
}

// Outcome maps an operation error to a stable label value: "success" for
// nil, otherwise the failure kind.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	return protoerrors.KindOf(err).String()
}

// ObserveOperation records one operation outcome and its latency.
func (m *protocolMetrics) ObserveOperation(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.operations.WithLabelValues(operation, Outcome(err)).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}
