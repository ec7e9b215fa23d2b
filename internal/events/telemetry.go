package events

import (
	"context"
	"log/slog"
	"strings"

	"custodyprofile/internal/platform/metrics"
)

// Sink accepts telemetry events. The app-insights style contract is a flat
// event name plus string properties.
type Sink interface {
	TrackEvent(name string, properties map[string]string)
}

// PrisonLocator answers "which facility is this person currently at".
// Implemented by the prisoner-search client.
type PrisonLocator interface {
	PrisonIDFor(ctx context.Context, personID string) (string, error)
}

// TelemetryListener tracks one telemetry event per committed change,
// enriching it with the person's current prison when the lookup succeeds.
// The enrichment is strictly best-effort: any lookup failure publishes the
// base property set with the prisonId key omitted entirely.
type TelemetryListener struct {
	sink    Sink
	locator PrisonLocator
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewTelemetryListener(sink Sink, locator PrisonLocator, logger *slog.Logger, m *metrics.Metrics) *TelemetryListener {
	return &TelemetryListener{sink: sink, locator: locator, logger: logger, metrics: m}
}

func (l *TelemetryListener) FieldsChanged(ctx context.Context, change ProfileChange) {
	fieldNames := make([]string, 0, len(change.Fields))
	for _, f := range change.Fields {
		fieldNames = append(fieldNames, string(f))
	}

	props := map[string]string{
		"prisonerNumber": change.PersonID,
		"source":         string(change.Source),
		"fields":         strings.Join(fieldNames, ","),
	}
	if change.RemovedPersonID != "" {
		props["removedPrisonerNumber"] = change.RemovedPersonID
	}

	if l.locator != nil {
		prisonID, err := l.locator.PrisonIDFor(ctx, change.PersonID)
		if err != nil {
			l.logger.WarnContext(ctx, "telemetry enrichment lookup failed",
				"person_id", change.PersonID,
				"error", err,
			)
		} else if prisonID != "" {
			props["prisonId"] = prisonID
		}
	}

	l.sink.TrackEvent(telemetryName(change.EventType), props)
	if l.metrics != nil {
		l.metrics.TelemetryEventsTracked.Inc()
	}
}

func telemetryName(eventType string) string {
	switch eventType {
	case TypeProfileMerged:
		return "custody-profile-merge"
	default:
		return "custody-profile-update"
	}
}
