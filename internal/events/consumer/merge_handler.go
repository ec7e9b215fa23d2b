package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"custodyprofile/internal/platform/kafka/consumer"
)

// TypePrisonerMerged is the upstream event raised when two prisoner records
// are combined in the legacy system.
const TypePrisonerMerged = "prison-offender-events.prisoner.merged"

// Merger folds one person's profile into another.
type Merger interface {
	Merge(ctx context.Context, removedID, survivingID string) error
}

// MergeHandler reacts to prisoner merge events by folding the removed
// person's field history into the surviving person.
type MergeHandler struct {
	merger Merger
	logger *slog.Logger
}

func NewMergeHandler(merger Merger, logger *slog.Logger) *MergeHandler {
	return &MergeHandler{merger: merger, logger: logger}
}

type prisonerMergedEvent struct {
	AdditionalInformation struct {
		// NomsNumber is the surviving identifier after the merge.
		NomsNumber string `json:"nomsNumber"`
		// RemovedNomsNumber no longer resolves once the merge completes.
		RemovedNomsNumber string `json:"removedNomsNumber"`
		Reason            string `json:"reason"`
	} `json:"additionalInformation"`
}

func (h *MergeHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var event prisonerMergedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.WarnContext(ctx, "dropping malformed prisoner merge event",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	info := event.AdditionalInformation
	if info.Reason != "MERGE" {
		h.logger.InfoContext(ctx, "skipping prisoner merged event with non-merge reason",
			"reason", info.Reason,
			"surviving", info.NomsNumber,
		)
		return nil
	}
	if info.NomsNumber == "" || info.RemovedNomsNumber == "" {
		h.logger.WarnContext(ctx, "dropping prisoner merge event with missing identifiers",
			"surviving", info.NomsNumber,
			"removed", info.RemovedNomsNumber,
		)
		return nil
	}

	// Merge is idempotent, so a redelivered event after a partial failure is
	// safe to replay.
	if err := h.merger.Merge(ctx, info.RemovedNomsNumber, info.NomsNumber); err != nil {
		return fmt.Errorf("merge %s into %s: %w", info.RemovedNomsNumber, info.NomsNumber, err)
	}

	h.logger.InfoContext(ctx, "merged prisoner profiles",
		"surviving", info.NomsNumber,
		"removed", info.RemovedNomsNumber,
	)
	return nil
}
