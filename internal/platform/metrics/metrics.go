package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	FieldUpdatesApplied    *prometheus.CounterVec
	HistoryEntriesWritten  prometheus.Counter
	MergesCompleted        prometheus.Counter
	DomainEventsPublished  prometheus.Counter
	DomainEventsFailed     prometheus.Counter
	TelemetryEventsTracked prometheus.Counter
	RequestDuration        *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		FieldUpdatesApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_profile_field_updates_applied_total",
			Help: "Field value changes applied, labelled by provenance source",
		}, []string{"source"}),
		HistoryEntriesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_profile_history_entries_written_total",
			Help: "History ledger entries appended",
		}),
		MergesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_profile_merges_completed_total",
			Help: "Prisoner merges completed (no-op merges excluded)",
		}),
		DomainEventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_profile_domain_events_published_total",
			Help: "Domain events successfully published to the event topic",
		}),
		DomainEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_profile_domain_events_failed_total",
			Help: "Domain event publish attempts that failed after commit",
		}),
		TelemetryEventsTracked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_profile_telemetry_events_tracked_total",
			Help: "Telemetry events handed to the telemetry sink",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custody_profile_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
