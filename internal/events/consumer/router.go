// Package consumer reacts to prison-offender-events, the upstream feed of
// things that happened to a person in the legacy system.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"custodyprofile/internal/platform/kafka/consumer"
)

// EventHandler handles one upstream event type.
type EventHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router dispatches messages by event type. The type is read from the
// eventType record header when present, falling back to the payload's
// eventType field for producers that do not set headers.
type Router struct {
	handlers map[string]EventHandler
	logger   *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		handlers: make(map[string]EventHandler),
		logger:   logger,
	}
}

// Register adds a handler for one event type.
func (r *Router) Register(eventType string, handler EventHandler) {
	r.handlers[eventType] = handler
}

func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	eventType, err := typeOf(msg)
	if err != nil {
		// Malformed messages never become parseable on redelivery.
		r.logger.WarnContext(ctx, "dropping message with unreadable event type",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	handler, ok := r.handlers[eventType]
	if !ok {
		r.logger.DebugContext(ctx, "no handler for event type, skipping",
			"event_type", eventType,
			"key", string(msg.Key),
		)
		return nil
	}
	return handler.Handle(ctx, msg)
}

func typeOf(msg *consumer.Message) (string, error) {
	if t, ok := msg.Headers["eventType"]; ok && t != "" {
		return t, nil
	}
	var envelope struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return "", fmt.Errorf("decode event envelope: %w", err)
	}
	if envelope.EventType == "" {
		return "", fmt.Errorf("event has no eventType")
	}
	return envelope.EventType, nil
}
