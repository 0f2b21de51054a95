package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the refresh dispatcher and the
// client sampling loop.
type Metrics struct {
	PassesTotal        prometheus.Counter
	PassesSkipped      prometheus.Counter
	PassDuration       prometheus.Histogram
	NotificationsSent  *prometheus.CounterVec // labels: kind={entry,exit}
	NotificationErrors prometheus.Counter
	EnteredRecords     prometheus.Gauge

	SamplesAccepted prometheus.Counter
	SamplesDropped  prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		PassesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_zones",
			Name:      "refresh_passes_total",
			Help:      "Total completed refresh passes.",
		}),
		PassesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_zones",
			Name:      "refresh_passes_skipped_total",
			Help:      "Scheduler ticks skipped because a pass was still running.",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_zones",
			Name:      "refresh_pass_duration_seconds",
			Help:      "Duration of a complete refresh pass.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_zones",
			Name:      "notifications_sent_total",
			Help:      "Push notifications sent, by kind.",
		}, []string{"kind"}),
		NotificationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_zones",
			Name:      "notification_errors_total",
			Help:      "Push deliveries that failed.",
		}),
		EnteredRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_zones",
			Name:      "entered_records",
			Help:      "Ledger records after the last refresh pass.",
		}),
		SamplesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_zones",
			Name:      "position_samples_accepted_total",
			Help:      "Position samples accepted by the debounce.",
		}),
		SamplesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_zones",
			Name:      "position_samples_dropped_total",
			Help:      "Position samples dropped inside the debounce window.",
		}),
	}
}

// NewMetrics creates the collectors and registers them with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PassesTotal,
		m.PassesSkipped,
		m.PassDuration,
		m.NotificationsSent,
		m.NotificationErrors,
		m.EnteredRecords,
		m.SamplesAccepted,
		m.SamplesDropped,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors so parallel tests do
// not trip "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
