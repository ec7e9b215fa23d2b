package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"custodyprofile/internal/events"
	"custodyprofile/internal/profile/fields"
	"custodyprofile/internal/profile/history"
	"custodyprofile/internal/profile/models"
	"custodyprofile/internal/profile/store"
	dErrors "custodyprofile/pkg/domain-errors"
	"custodyprofile/pkg/platform/sentinel"
	"custodyprofile/pkg/requestcontext"
)

func orderedPair(a, b string) [2]string {
	if b < a {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}

// Merge folds the removed person's field history into the surviving person
// and deletes the removed record. The surviving identifier is given
// explicitly; direction is never inferred. Re-running a completed merge finds
// no history on the removed id and is a no-op, which is what makes message
// redelivery safe.
func (s *Service) Merge(ctx context.Context, removedID, survivingID string) error {
	ctx, span := s.tracer.Start(ctx, "profile.Merge")
	defer span.End()

	if removedID == "" || survivingID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "merge requires both person identifiers")
	}
	if removedID == survivingID {
		return dErrors.New(dErrors.CodeBadRequest, "cannot merge a person into itself")
	}

	mergedAt := requestcontext.Now(ctx)
	var mergedFields []models.Field

	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		ledger := history.New(st)

		// Lock both rows in identifier order so opposing merges cannot
		// deadlock. The removed row may already be gone.
		for _, id := range orderedPair(removedID, survivingID) {
			if _, err := st.SelectPersonForUpdate(ctx, id); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return fmt.Errorf("lock person %s: %w", id, err)
			}
		}

		surviving, err := loadOrCreateRecord(ctx, st, survivingID)
		if err != nil {
			return err
		}

		for _, f := range fields.Mergeable() {
			merged, err := s.mergeField(ctx, st, ledger, f, removedID, survivingID, surviving, mergedAt)
			if err != nil {
				return fmt.Errorf("merge %s: %w", f, err)
			}
			if merged {
				mergedFields = append(mergedFields, f)
			}
		}

		// Nothing to merge on any field: leave everything untouched.
		if len(mergedFields) == 0 {
			return nil
		}

		if err := st.SavePersonRecord(ctx, surviving); err != nil {
			return fmt.Errorf("save surviving record: %w", err)
		}
		if err := st.DeletePersonRecord(ctx, removedID); err != nil {
			return fmt.Errorf("delete removed record: %w", err)
		}
		if err := st.DeleteFieldMetadata(ctx, removedID); err != nil {
			return fmt.Errorf("delete removed metadata: %w", err)
		}

		s.scheduleEvent(ctx, events.ProfileChange{
			EventType:       events.TypeProfileMerged,
			PersonID:        survivingID,
			RemovedPersonID: removedID,
			Source:          models.SourceNomisSync,
			Fields:          mergedFields,
			OccurredAt:      mergedAt,
		})
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil && len(mergedFields) > 0 {
		s.metrics.MergesCompleted.Inc()
	}
	return nil
}

// mergeField reconciles one field's histories. Returns false when the removed
// person has no history for it.
func (s *Service) mergeField(
	ctx context.Context,
	st store.Store,
	ledger *history.Ledger,
	f models.Field,
	removedID, survivingID string,
	surviving *models.PersonRecord,
	mergedAt time.Time,
) (bool, error) {
	removedEntries, err := ledger.AllForField(ctx, removedID, f)
	if err != nil {
		return false, err
	}
	if len(removedEntries) == 0 {
		return false, nil
	}

	survivingEntries, err := ledger.AllForField(ctx, survivingID, f)
	if err != nil {
		return false, err
	}

	latestRemoved := removedEntries[len(removedEntries)-1]
	var latestSurviving *models.HistoryEntry
	if len(survivingEntries) > 0 {
		latestSurviving = &survivingEntries[len(survivingEntries)-1]
	}

	ids := make([]int64, 0, len(removedEntries))
	for _, e := range removedEntries {
		ids = append(ids, e.ID)
	}
	if err := st.RepointHistory(ctx, ids, survivingID, removedID, mergedAt); err != nil {
		return false, err
	}

	// The later of the two latest entries wins the current value, regardless
	// of which person it came from.
	winner := latestRemoved
	var loser *models.HistoryEntry
	if latestSurviving != nil {
		if latestRemoved.Before(*latestSurviving) {
			winner = *latestSurviving
			loser = &latestRemoved
		} else {
			loser = latestSurviving
		}
	}

	fields.Set(f, surviving, fields.FromHistory(winner))
	if err := st.UpsertFieldMetadata(ctx, models.FieldMetadata{
		PersonID:       survivingID,
		Field:          f,
		LastModifiedAt: winner.CreatedAt,
		LastModifiedBy: winner.CreatedBy,
	}); err != nil {
		return false, err
	}

	// Close the losing latest entry at the merge instant, but only if its
	// window was still open. With no counterpart there is nothing to close:
	// a lone open entry keeps its open-endedness.
	if loser != nil && loser.Open() {
		if err := st.CloseHistory(ctx, loser.ID, mergedAt); err != nil {
			return false, err
		}
	}

	return true, nil
}
