package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"custodyprofile/internal/profile/models"
	"custodyprofile/pkg/platform/sentinel"
)

// InMemory keeps everything in maps. Unit tests and local development use it;
// the semantics mirror the Postgres store including ordering and sentinel
// errors.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]*models.PersonRecord
	history map[int64]*models.HistoryEntry
	meta    map[string]map[models.Field]models.FieldMetadata
	nextID  int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[string]*models.PersonRecord),
		history: make(map[int64]*models.HistoryEntry),
		meta:    make(map[string]map[models.Field]models.FieldMetadata),
		nextID:  1,
	}
}

func (s *InMemory) GetPersonRecord(_ context.Context, personID string) (*models.PersonRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[personID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *rec
	cp.FoodAllergies = slices.Clone(rec.FoodAllergies)
	return &cp, nil
}

// SelectPersonForUpdate matches the Postgres locking read. The in-memory
// transaction runner serialises whole transactions, so a plain read suffices.
func (s *InMemory) SelectPersonForUpdate(ctx context.Context, personID string) (*models.PersonRecord, error) {
	return s.GetPersonRecord(ctx, personID)
}

func (s *InMemory) SavePersonRecord(_ context.Context, rec *models.PersonRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	cp.FoodAllergies = slices.Clone(rec.FoodAllergies)
	s.records[rec.PersonID] = &cp
	return nil
}

func (s *InMemory) DeletePersonRecord(_ context.Context, personID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, personID)
	return nil
}

func (s *InMemory) InsertHistory(_ context.Context, entry *models.HistoryEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	cp.ID = s.nextID
	s.nextID++
	s.history[cp.ID] = &cp
	entry.ID = cp.ID
	return cp.ID, nil
}

func (s *InMemory) CloseHistory(_ context.Context, id int64, appliesTo time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.history[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	t := appliesTo
	entry.AppliesTo = &t
	return nil
}

func (s *InMemory) RepointHistory(_ context.Context, ids []int64, toPersonID, mergedFrom string, mergedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		entry, ok := s.history[id]
		if !ok {
			return sentinel.ErrNotFound
		}
		entry.PersonID = toPersonID
		from := mergedFrom
		at := mergedAt
		entry.MergedFrom = &from
		entry.MergedAt = &at
	}
	return nil
}

func (s *InMemory) HistoryForPerson(_ context.Context, personID string) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(e *models.HistoryEntry) bool { return e.PersonID == personID }), nil
}

func (s *InMemory) HistoryForField(_ context.Context, personID string, field models.Field) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(e *models.HistoryEntry) bool {
		return e.PersonID == personID && e.Field == field
	}), nil
}

func (s *InMemory) LatestOpenFor(_ context.Context, personID string, field models.Field) (*models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.HistoryEntry
	for _, e := range s.history {
		if e.PersonID != personID || e.Field != field || !e.Open() {
			continue
		}
		if latest == nil || latest.Before(*e) {
			latest = e
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *InMemory) UpsertFieldMetadata(_ context.Context, meta models.FieldMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byField, ok := s.meta[meta.PersonID]
	if !ok {
		byField = make(map[models.Field]models.FieldMetadata)
		s.meta[meta.PersonID] = byField
	}
	byField[meta.Field] = meta
	return nil
}

func (s *InMemory) FieldMetadataFor(_ context.Context, personID string) ([]models.FieldMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.FieldMetadata
	for _, f := range models.AllFields {
		if m, ok := s.meta[personID][f]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *InMemory) DeleteFieldMetadata(_ context.Context, personID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meta, personID)
	return nil
}

// Snapshot deep-copies the store state. The in-memory transaction runner
// captures one before each transaction and restores it when the transaction
// fails, mirroring the Postgres rollback.
func (s *InMemory) Snapshot() *InMemory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := NewInMemory()
	for id, rec := range s.records {
		r := *rec
		r.FoodAllergies = slices.Clone(rec.FoodAllergies)
		cp.records[id] = &r
	}
	for id, e := range s.history {
		he := *e
		cp.history[id] = &he
	}
	for person, byField := range s.meta {
		m := make(map[models.Field]models.FieldMetadata, len(byField))
		for f, meta := range byField {
			m[f] = meta
		}
		cp.meta[person] = m
	}
	cp.nextID = s.nextID
	return cp
}

// Restore replaces the store state with a previously taken snapshot.
func (s *InMemory) Restore(snap *InMemory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = snap.records
	s.history = snap.history
	s.meta = snap.meta
	s.nextID = snap.nextID
}

func (s *InMemory) collect(match func(*models.HistoryEntry) bool) []models.HistoryEntry {
	var out []models.HistoryEntry
	for _, e := range s.history {
		if match(e) {
			out = append(out, *e)
		}
	}
	slices.SortFunc(out, func(a, b models.HistoryEntry) int {
		if a.Before(b) {
			return -1
		}
		if b.Before(a) {
			return 1
		}
		return 0
	})
	return out
}
