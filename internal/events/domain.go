package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"custodyprofile/internal/platform/metrics"
)

// Producer publishes a JSON payload to the domain event topic, tagging the
// record with an eventType attribute for downstream filtering.
type Producer interface {
	Publish(ctx context.Context, eventType string, key, payload []byte) error
}

// DomainListener serialises committed changes into the published domain event
// shape. Publish failures are logged and swallowed: the business transaction
// has already committed and consumers reconcile via periodic full-state
// queries.
type DomainListener struct {
	producer Producer
	baseURL  string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewDomainListener(producer Producer, baseURL string, logger *slog.Logger, m *metrics.Metrics) *DomainListener {
	return &DomainListener{producer: producer, baseURL: baseURL, logger: logger, metrics: m}
}

type domainEvent struct {
	EventType             string                `json:"eventType"`
	AdditionalInformation additionalInformation `json:"additionalInformation"`
	OccurredAt            string                `json:"occurredAt"`
	Description           string                `json:"description"`
	Version               int                   `json:"version"`
}

type additionalInformation struct {
	URL            string   `json:"url"`
	PrisonerNumber string   `json:"prisonerNumber"`
	Source         string   `json:"source"`
	Fields         []string `json:"fields"`
}

func (l *DomainListener) FieldsChanged(ctx context.Context, change ProfileChange) {
	fieldNames := make([]string, 0, len(change.Fields))
	for _, f := range change.Fields {
		fieldNames = append(fieldNames, string(f))
	}

	event := domainEvent{
		EventType: change.EventType,
		AdditionalInformation: additionalInformation{
			URL:            l.baseURL + "/persons/" + change.PersonID,
			PrisonerNumber: change.PersonID,
			Source:         string(change.Source),
			Fields:         fieldNames,
		},
		OccurredAt:  change.OccurredAt.Format(time.RFC3339Nano),
		Description: describe(change.EventType),
		Version:     1,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal domain event",
			"event_type", change.EventType,
			"person_id", change.PersonID,
			"error", err,
		)
		return
	}

	if err := l.producer.Publish(ctx, change.EventType, []byte(change.PersonID), payload); err != nil {
		if l.metrics != nil {
			l.metrics.DomainEventsFailed.Inc()
		}
		l.logger.ErrorContext(ctx, "failed to publish domain event",
			"event_type", change.EventType,
			"person_id", change.PersonID,
			"error", err,
		)
		return
	}
	if l.metrics != nil {
		l.metrics.DomainEventsPublished.Inc()
	}
}

func describe(eventType string) string {
	switch eventType {
	case TypeProfileMerged:
		return "Custody profile records merged"
	default:
		return "Custody profile fields updated"
	}
}
