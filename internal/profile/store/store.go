// Package store persists person records, their field history, and field
// metadata. The three tables are owned together: every logical update touches
// them inside one transaction.
package store

import (
	"context"
	"time"

	"custodyprofile/internal/profile/models"
)

// Store is the persistence surface the history ledger and profile service
// operate against. Implementations return sentinel.ErrNotFound for missing
// rows.
type Store interface {
	// Person records. Write paths load through SelectPersonForUpdate so
	// concurrent writers for the same person serialise before touching
	// history; GetPersonRecord is the lock-free read.
	GetPersonRecord(ctx context.Context, personID string) (*models.PersonRecord, error)
	SelectPersonForUpdate(ctx context.Context, personID string) (*models.PersonRecord, error)
	SavePersonRecord(ctx context.Context, rec *models.PersonRecord) error
	DeletePersonRecord(ctx context.Context, personID string) error

	// History entries.
	InsertHistory(ctx context.Context, entry *models.HistoryEntry) (int64, error)
	CloseHistory(ctx context.Context, id int64, appliesTo time.Time) error
	RepointHistory(ctx context.Context, ids []int64, toPersonID, mergedFrom string, mergedAt time.Time) error
	HistoryForPerson(ctx context.Context, personID string) ([]models.HistoryEntry, error)
	HistoryForField(ctx context.Context, personID string, field models.Field) ([]models.HistoryEntry, error)
	LatestOpenFor(ctx context.Context, personID string, field models.Field) (*models.HistoryEntry, error)

	// Field metadata.
	UpsertFieldMetadata(ctx context.Context, meta models.FieldMetadata) error
	FieldMetadataFor(ctx context.Context, personID string) ([]models.FieldMetadata, error)
	DeleteFieldMetadata(ctx context.Context, personID string) error
}
