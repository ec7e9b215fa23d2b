package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"custodyprofile/internal/events"
	"custodyprofile/internal/profile/fields"
	"custodyprofile/internal/profile/history"
	"custodyprofile/internal/profile/models"
	"custodyprofile/internal/profile/store"
	dErrors "custodyprofile/pkg/domain-errors"
	"custodyprofile/pkg/requestcontext"
)

// SyncRequest carries values pushed from the legacy system of record. The
// caller supplies the full window and attribution; this service records it
// verbatim. Resubmitting an identical payload is not deduplicated.
type SyncRequest struct {
	Updates     []FieldUpdate
	AppliesFrom time.Time
	// AppliesTo set means this corrects or back-fills a historical window:
	// the write only touches the ledger, never the current-value record.
	AppliesTo *time.Time
	CreatedAt time.Time
	CreatedBy string
}

// Sync records values arriving from the legacy system. Returns the IDs of
// the history entries created.
func (s *Service) Sync(ctx context.Context, personID string, req SyncRequest) ([]int64, error) {
	ctx, span := s.tracer.Start(ctx, "profile.Sync")
	defer span.End()

	if err := s.validatePerson(ctx, personID); err != nil {
		return nil, err
	}
	if err := s.validateValues(ctx, req.Updates); err != nil {
		return nil, err
	}
	if len(req.Updates) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "sync request carries no fields")
	}

	historical := req.AppliesTo != nil
	var created []int64
	var changed []models.Field

	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		ledger := history.New(st)

		var rec *models.PersonRecord
		if !historical {
			var err error
			rec, err = loadOrCreateRecord(ctx, st, personID)
			if err != nil {
				return err
			}
		}

		for _, u := range req.Updates {
			id, err := ledger.Append(ctx, history.AppendRequest{
				PersonID:    personID,
				Field:       u.Field,
				Value:       u.Value,
				AppliesFrom: req.AppliesFrom,
				AppliesTo:   req.AppliesTo,
				CreatedAt:   req.CreatedAt,
				CreatedBy:   req.CreatedBy,
				Source:      models.SourceNomisSync,
			})
			if err != nil {
				return fmt.Errorf("sync %s: %w", u.Field, err)
			}
			created = append(created, id)
			changed = append(changed, u.Field)

			if !historical {
				fields.Set(u.Field, rec, u.Value)
				if err := st.UpsertFieldMetadata(ctx, models.FieldMetadata{
					PersonID:       personID,
					Field:          u.Field,
					LastModifiedAt: req.CreatedAt,
					LastModifiedBy: req.CreatedBy,
				}); err != nil {
					return fmt.Errorf("sync %s metadata: %w", u.Field, err)
				}
			}
		}

		if !historical {
			if err := st.SavePersonRecord(ctx, rec); err != nil {
				return fmt.Errorf("save person record: %w", err)
			}
		}

		s.scheduleEvent(ctx, events.ProfileChange{
			EventType:  events.TypeProfileUpdated,
			PersonID:   personID,
			Source:     models.SourceNomisSync,
			Fields:     changed,
			OccurredAt: requestcontext.Now(ctx),
		})
		return nil
	})
	if err != nil {
		return nil, writeError(err)
	}

	if s.metrics != nil {
		for range changed {
			s.metrics.FieldUpdatesApplied.WithLabelValues(string(models.SourceNomisSync)).Inc()
		}
		s.metrics.HistoryEntriesWritten.Add(float64(len(created)))
	}
	return created, nil
}

// MigrationWindow is one historical window for one field.
type MigrationWindow struct {
	Value       models.Value
	AppliesFrom time.Time
	AppliesTo   *time.Time
	CreatedAt   time.Time
	CreatedBy   string
}

// MigrationRequest is the bulk backfill of a person's full history in one
// call.
type MigrationRequest struct {
	Fields map[models.Field][]MigrationWindow
}

// Migrate replays a person's legacy history into the ledger. Windows are
// applied in chronological order per field so the open/close linkage holds;
// the final open window, if any, becomes the current value.
func (s *Service) Migrate(ctx context.Context, personID string, req MigrationRequest) ([]int64, error) {
	ctx, span := s.tracer.Start(ctx, "profile.Migrate")
	defer span.End()

	if err := s.validatePerson(ctx, personID); err != nil {
		return nil, err
	}
	if len(req.Fields) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "migration request carries no fields")
	}
	for f, windows := range req.Fields {
		updates := make([]FieldUpdate, 0, len(windows))
		for _, w := range windows {
			updates = append(updates, FieldUpdate{Field: f, Value: w.Value})
		}
		if err := s.validateValues(ctx, updates); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	var created []int64
	var changed []models.Field

	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		rec, err := loadOrCreateRecord(ctx, st, personID)
		if err != nil {
			return err
		}
		ledger := history.New(st)

		// Deterministic field order; chronological window order within each.
		for _, f := range models.AllFields {
			windows, ok := req.Fields[f]
			if !ok || len(windows) == 0 {
				continue
			}
			windows = slices.Clone(windows)
			slices.SortFunc(windows, func(a, b MigrationWindow) int {
				return a.AppliesFrom.Compare(b.AppliesFrom)
			})

			for _, w := range windows {
				id, err := ledger.Append(ctx, history.AppendRequest{
					PersonID:    personID,
					Field:       f,
					Value:       w.Value,
					AppliesFrom: w.AppliesFrom,
					AppliesTo:   w.AppliesTo,
					CreatedAt:   w.CreatedAt,
					CreatedBy:   w.CreatedBy,
					Source:      models.SourceNomisMigration,
					MigratedAt:  &now,
				})
				if err != nil {
					return fmt.Errorf("migrate %s: %w", f, err)
				}
				created = append(created, id)

				if w.AppliesTo == nil {
					fields.Set(f, rec, w.Value)
					if err := st.UpsertFieldMetadata(ctx, models.FieldMetadata{
						PersonID:       personID,
						Field:          f,
						LastModifiedAt: w.CreatedAt,
						LastModifiedBy: w.CreatedBy,
					}); err != nil {
						return fmt.Errorf("migrate %s metadata: %w", f, err)
					}
				}
			}
			changed = append(changed, f)
		}

		// Every field mapped to an empty window list: nothing written,
		// nothing published.
		if len(changed) == 0 {
			return nil
		}

		if err := st.SavePersonRecord(ctx, rec); err != nil {
			return fmt.Errorf("save person record: %w", err)
		}

		s.scheduleEvent(ctx, events.ProfileChange{
			EventType:  events.TypeProfileUpdated,
			PersonID:   personID,
			Source:     models.SourceNomisMigration,
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
			s.metrics.FieldUpdatesApplied.WithLabelValues(string(models.SourceNomisMigration)).Inc()
		}
		s.metrics.HistoryEntriesWritten.Add(float64(len(created)))
	}
	return created, nil
}
