package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	committed *prometheus.CounterVec
	relayed   prometheus.Gauge
	head      prometheus.Gauge
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking the committed event log and
// its downstream relay.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			committed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ideacapital",
				Subsystem: "events",
				Name:      "committed_total",
				Help:      "Committed protocol events segmented by type.",
			}, []string{"type"}),
			relayed: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "ideacapital",
				Subsystem: "events",
				Name:      "relay_cursor",
				Help:      "Highest outbox sequence number archived by the relay.",
			}),
			head: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "ideacapital",
				Subsystem: "events",
				Name:      "outbox_head",
				Help:      "Highest committed outbox sequence number.",
			}),
		}
		prometheus.MustRegister(eventRegistry.committed, eventRegistry.relayed, eventRegistry.head)
	})
	return eventRegistry
}

// RecordCommitted counts a committed event and advances the head gauge.
func (m *eventMetrics) RecordCommitted(eventType string, seq uint64) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(eventType)
	if normalized == "" {
		normalized = "unknown"
	}
	m.committed.WithLabelValues(normalized).Inc()
	m.head.Set(float64(seq))
}

// SetRelayCursor reports the relay's archive position.
func (m *eventMetrics) SetRelayCursor(seq uint64) {
	if m == nil {
		return
	}
	m.relayed.Set(float64(seq))
}
