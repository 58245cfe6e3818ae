package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EventMetrics records counts and latency for domain event writes.
type EventMetrics struct {
	recorded *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewEventMetrics registers the event metrics on the provided registerer.
func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	if reg == nil {
		return &EventMetrics{}
	}
	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_events_recorded_total",
		Help: "Domain events written to the event log.",
	}, []string{"domain", "event_type"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_events_failed_total",
		Help: "Domain event writes that failed.",
	}, []string{"domain"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "domain_event_write_seconds",
		Help:    "Duration of domain event writes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"domain"})
	reg.MustRegister(recorded, failures, duration)
	return &EventMetrics{
		recorded: recorded,
		failures: failures,
		duration: duration,
	}
}

// IncRecorded increments the recorded counter for the domain and event type.
func (m *EventMetrics) IncRecorded(domain, eventType string) {
	if m == nil || m.recorded == nil {
		return
	}
	m.recorded.WithLabelValues(normalizeLabel(domain), normalizeLabel(eventType)).Inc()
}

// IncFailure increments the failure counter for the domain.
func (m *EventMetrics) IncFailure(domain string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(domain)).Inc()
}

// ObserveWrite records the duration of one event write.
func (m *EventMetrics) ObserveWrite(domain string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(domain)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
