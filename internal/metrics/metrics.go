// Package metrics holds the pipeline's Prometheus collectors. Runs are
// batch jobs, so metrics are exported by writing a node_exporter textfile
// at the end of a command rather than by serving /metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sydlexius/cytherea/internal/event"
	"github.com/sydlexius/cytherea/internal/provider"
	"github.com/sydlexius/cytherea/internal/verify"
)

// Metrics implements provider.Observer and verify.BucketObserver.
type Metrics struct {
	registry *prometheus.Registry

	lookups        *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec
	candidates     *prometheus.CounterVec
	reviewEvents   *prometheus.CounterVec
	verified       *prometheus.CounterVec
	lastRun        prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cytherea",
				Subsystem: "provider",
				Name:      "lookups_total",
				Help:      "Provider lookups by outcome",
			},
			[]string{"provider", "capability", "outcome", "failed"},
		),
		lookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cytherea",
				Subsystem: "provider",
				Name:      "lookup_duration_seconds",
				Help:      "Provider lookup latency",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "capability"},
		),
		candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cytherea",
				Subsystem: "discovery",
				Name:      "candidates_total",
				Help:      "Discovery candidates by decision",
			},
			[]string{"decision"},
		),
		reviewEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cytherea",
				Subsystem: "review",
				Name:      "events_total",
				Help:      "Events routed to human review",
			},
			[]string{"type"},
		),
		verified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cytherea",
				Subsystem: "verify",
				Name:      "records_total",
				Help:      "Verified records by bucket",
			},
			[]string{"bucket"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cytherea",
			Name:      "last_run_timestamp_seconds",
			Help:      "Completion time of the last run",
		}),
	}
	m.registry.MustRegister(m.lookups, m.lookupDuration, m.candidates, m.reviewEvents, m.verified, m.lastRun)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveLookup records one provider lookup.
func (m *Metrics) ObserveLookup(name provider.ProviderName, capability provider.Capability, outcome provider.Outcome, failed bool, elapsed time.Duration) {
	m.lookups.WithLabelValues(string(name), string(capability), outcome.String(), fmt.Sprint(failed)).Inc()
	m.lookupDuration.WithLabelValues(string(name), string(capability)).Observe(elapsed.Seconds())
}

// ObserveBucket records one verification outcome.
func (m *Metrics) ObserveBucket(b verify.Bucket) {
	m.verified.WithLabelValues(string(b)).Inc()
}

// Attach counts discovery decisions and review events from the bus.
func (m *Metrics) Attach(b *event.Bus) {
	types := append([]event.Type{event.CandidateAccepted, event.RunCompleted}, event.ReviewTypes...)
	b.Subscribe(m.Handle, types...)
}

// Handle counts one event.
func (m *Metrics) Handle(e event.Event) {
	switch e.Type {
	case event.CandidateAccepted:
		m.candidates.WithLabelValues("accepted").Inc()
	case event.CandidateRejected:
		m.candidates.WithLabelValues("rejected").Inc()
	case event.RunCompleted:
		m.lastRun.Set(float64(e.Timestamp.Unix()))
	}
	for _, t := range event.ReviewTypes {
		if e.Type == t {
			m.reviewEvents.WithLabelValues(string(t)).Inc()
			return
		}
	}
}

// WriteTextfile writes all metrics to path in the text exposition format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
