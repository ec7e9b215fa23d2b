package models

import "time"

// PersonRecord holds the current value of every tracked field for one person
// in custody, keyed by the external immutable person identifier (e.g.
// "A1234AA"). Created lazily on first write; deleted when the record is the
// losing side of a merge.
type PersonRecord struct {
	PersonID string

	Height         *int32
	Weight         *int32
	Hair           *string
	FacialHair     *string
	Build          *string
	LeftEyeColour  *string
	RightEyeColour *string
	ShoeSize       *string
	SmokerOrVaper  *string
	FoodAllergies  []string
}

// HistoryEntry is one immutable time-windowed record of a field's value.
// AppliesTo == nil marks the open entry: the currently active value. Entries
// are never mutated except to close the open window or to re-point ownership
// during a merge.
type HistoryEntry struct {
	ID          int64
	PersonID    string
	Field       Field
	Value       Value
	AppliesFrom time.Time
	AppliesTo   *time.Time
	CreatedAt   time.Time
	CreatedBy   string
	Source      Source
	MigratedAt  *time.Time
	MergedAt    *time.Time
	MergedFrom  *string
}

// Open reports whether this entry represents the currently active value.
func (e HistoryEntry) Open() bool { return e.AppliesTo == nil }

// Before orders entries by the ledger's ordering key: AppliesFrom, then
// CreatedAt, then insertion ID. "Latest" means maximal under this order.
func (e HistoryEntry) Before(other HistoryEntry) bool {
	if !e.AppliesFrom.Equal(other.AppliesFrom) {
		return e.AppliesFrom.Before(other.AppliesFrom)
	}
	if !e.CreatedAt.Equal(other.CreatedAt) {
		return e.CreatedAt.Before(other.CreatedAt)
	}
	return e.ID < other.ID
}

// FieldMetadata is the per-(person, field) denormalised mirror of the open
// history entry, kept so reads never recompute last-modified facts.
type FieldMetadata struct {
	PersonID       string
	Field          Field
	LastModifiedAt time.Time
	LastModifiedBy string
}
