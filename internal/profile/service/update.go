package service

import (
	"context"
	"fmt"

	"custodyprofile/internal/events"
	"custodyprofile/internal/profile/fields"
	"custodyprofile/internal/profile/history"
	"custodyprofile/internal/profile/models"
	"custodyprofile/internal/profile/store"
	"custodyprofile/pkg/platform/tx"
	"custodyprofile/pkg/requestcontext"
)

// Update applies an interactive edit: the new values take effect now, remain
// open-ended, and are attributed to the authenticated user. Fields whose new
// value equals the current value write nothing; an all-no-op request commits
// without scheduling any event.
func (s *Service) Update(ctx context.Context, personID string, updates []FieldUpdate) (*models.PersonRecord, error) {
	ctx, span := s.tracer.Start(ctx, "profile.Update")
	defer span.End()

	if err := s.validatePerson(ctx, personID); err != nil {
		return nil, err
	}
	if err := s.validateValues(ctx, updates); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	username := requestcontext.Username(ctx)

	var rec *models.PersonRecord
	var changed []models.Field
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		var err error
		rec, err = loadOrCreateRecord(ctx, st, personID)
		if err != nil {
			return err
		}

		ledger := history.New(st)
		for _, u := range updates {
			current := fields.Get(u.Field, rec)
			if current.Equal(u.Value) {
				continue
			}

			if _, err := ledger.Append(ctx, history.AppendRequest{
				PersonID:    personID,
				Field:       u.Field,
				Value:       u.Value,
				AppliesFrom: now,
				CreatedAt:   now,
				CreatedBy:   username,
				Source:      models.SourceDPS,
			}); err != nil {
				return fmt.Errorf("append %s history: %w", u.Field, err)
			}

			fields.Set(u.Field, rec, u.Value)
			if err := st.UpsertFieldMetadata(ctx, models.FieldMetadata{
				PersonID:       personID,
				Field:          u.Field,
				LastModifiedAt: now,
				LastModifiedBy: username,
			}); err != nil {
				return fmt.Errorf("update %s metadata: %w", u.Field, err)
			}
			changed = append(changed, u.Field)
		}

		if len(changed) == 0 {
			return nil
		}
		if err := st.SavePersonRecord(ctx, rec); err != nil {
			return fmt.Errorf("save person record: %w", err)
		}

		s.scheduleEvent(ctx, events.ProfileChange{
			EventType:  events.TypeProfileUpdated,
			PersonID:   personID,
			Source:     models.SourceDPS,
			Fields:     changed,
			OccurredAt: now,
		})
		return nil
	})
	if err != nil {
		return nil, writeError(err)
	}

	if s.metrics != nil {
		for range changed {
			s.metrics.FieldUpdatesApplied.WithLabelValues(string(models.SourceDPS)).Inc()
		}
		s.metrics.HistoryEntriesWritten.Add(float64(len(changed)))
	}
	return rec, nil
}

// scheduleEvent defers the committed-change notification to the post-commit
// hook registry. Exactly one notification per logical change.
func (s *Service) scheduleEvent(ctx context.Context, change events.ProfileChange) {
	tx.AfterCommit(ctx, func(ctx context.Context) {
		s.notifier.FieldsChanged(ctx, change)
	})
}
