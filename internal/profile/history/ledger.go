// Package history implements the append-only per-field version ledger. Every
// field change lands here as a time-windowed entry; the ledger owns the
// open/close linkage between consecutive windows.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"custodyprofile/internal/profile/models"
	"custodyprofile/internal/profile/store"
	"custodyprofile/pkg/platform/sentinel"
)

// Ledger wraps a store with the windowing rules. It carries no state of its
// own, so constructing one per transaction is free.
type Ledger struct {
	store store.Store
}

func New(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// AppendRequest describes one entry to append.
type AppendRequest struct {
	PersonID    string
	Field       models.Field
	Value       models.Value
	AppliesFrom time.Time
	// AppliesTo non-nil makes this a historical (closed) entry that never
	// touches the open window.
	AppliesTo  *time.Time
	CreatedAt  time.Time
	CreatedBy  string
	Source     models.Source
	MigratedAt *time.Time
}

// Append inserts a new history entry. For a non-historical append, an
// existing open entry whose window started at or before the new AppliesFrom
// is closed at the new AppliesFrom; an open entry starting later makes the
// append an ordering violation (sentinel.ErrOutOfOrder) and nothing is
// written.
func (l *Ledger) Append(ctx context.Context, req AppendRequest) (int64, error) {
	open, err := l.store.LatestOpenFor(ctx, req.PersonID, req.Field)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return 0, fmt.Errorf("find open entry: %w", err)
	}

	historical := req.AppliesTo != nil
	if open != nil && !historical {
		if req.AppliesFrom.Before(open.AppliesFrom) {
			return 0, fmt.Errorf("applies_from %s predates open window %s: %w",
				req.AppliesFrom.Format(time.RFC3339), open.AppliesFrom.Format(time.RFC3339),
				sentinel.ErrOutOfOrder)
		}
		if err := l.store.CloseHistory(ctx, open.ID, req.AppliesFrom); err != nil {
			return 0, fmt.Errorf("close open entry: %w", err)
		}
	}

	entry := &models.HistoryEntry{
		PersonID:    req.PersonID,
		Field:       req.Field,
		Value:       req.Value,
		AppliesFrom: req.AppliesFrom,
		AppliesTo:   req.AppliesTo,
		CreatedAt:   req.CreatedAt,
		CreatedBy:   req.CreatedBy,
		Source:      req.Source,
		MigratedAt:  req.MigratedAt,
	}
	id, err := l.store.InsertHistory(ctx, entry)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	return id, nil
}

// AllFor returns every entry for the person ordered by the ledger key.
func (l *Ledger) AllFor(ctx context.Context, personID string) ([]models.HistoryEntry, error) {
	return l.store.HistoryForPerson(ctx, personID)
}

// AllForField returns the person's entries for one field, ordered.
func (l *Ledger) AllForField(ctx context.Context, personID string, field models.Field) ([]models.HistoryEntry, error) {
	return l.store.HistoryForField(ctx, personID, field)
}

// LatestOpenFor returns the open entry for (person, field), or
// sentinel.ErrNotFound when the field has no active value.
func (l *Ledger) LatestOpenFor(ctx context.Context, personID string, field models.Field) (*models.HistoryEntry, error) {
	return l.store.LatestOpenFor(ctx, personID, field)
}

// Latest returns the maximal entry for (person, field) under the ordering
// key, open or closed; sentinel.ErrNotFound when the field has no history.
func (l *Ledger) Latest(ctx context.Context, personID string, field models.Field) (*models.HistoryEntry, error) {
	entries, err := l.store.HistoryForField(ctx, personID, field)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, sentinel.ErrNotFound
	}
	latest := entries[len(entries)-1]
	return &latest, nil
}
