//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodyprofile/internal/profile/models"
	"custodyprofile/internal/profile/store"
	"custodyprofile/pkg/platform/sentinel"
	txcontext "custodyprofile/pkg/platform/tx"
	"custodyprofile/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "person_profiles", "field_history", "field_metadata")
	s.Require().NoError(err)
}

func intp(v int32) *int32   { return &v }
func strp(v string) *string { return &v }

func (s *PostgresStoreSuite) entry(personID string, height int32, from time.Time) *models.HistoryEntry {
	return &models.HistoryEntry{
		PersonID:    personID,
		Field:       models.FieldHeight,
		Value:       models.IntValue(intp(height)),
		AppliesFrom: from,
		CreatedAt:   from,
		CreatedBy:   "TEST_USER",
		Source:      models.SourceDPS,
	}
}

func (s *PostgresStoreSuite) TestPersonRecordRoundTrip() {
	ctx := context.Background()

	_, err := s.store.GetPersonRecord(ctx, "A1234AA")
	s.ErrorIs(err, sentinel.ErrNotFound)

	rec := &models.PersonRecord{
		PersonID:      "A1234AA",
		Height:        intp(180),
		Hair:          strp("BROWN"),
		FoodAllergies: []string{"EGG", "PEANUT"},
	}
	s.Require().NoError(s.store.SavePersonRecord(ctx, rec))

	got, err := s.store.GetPersonRecord(ctx, "A1234AA")
	s.Require().NoError(err)
	s.Equal(int32(180), *got.Height)
	s.Equal("BROWN", *got.Hair)
	s.Equal([]string{"EGG", "PEANUT"}, got.FoodAllergies)
	s.Nil(got.Weight)

	// Saving again overwrites.
	rec.Height = intp(183)
	rec.FoodAllergies = nil
	s.Require().NoError(s.store.SavePersonRecord(ctx, rec))
	got, err = s.store.GetPersonRecord(ctx, "A1234AA")
	s.Require().NoError(err)
	s.Equal(int32(183), *got.Height)
	s.Empty(got.FoodAllergies)

	s.Require().NoError(s.store.DeletePersonRecord(ctx, "A1234AA"))
	_, err = s.store.GetPersonRecord(ctx, "A1234AA")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestHistoryOrderingKey() {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// Same AppliesFrom, different CreatedAt; then identical timestamps where
	// insertion ID breaks the tie.
	e1 := s.entry("A1234AA", 180, base)
	e1.CreatedAt = base.Add(2 * time.Hour)
	id1, err := s.store.InsertHistory(ctx, e1)
	s.Require().NoError(err)

	e2 := s.entry("A1234AA", 181, base)
	e2.CreatedAt = base.Add(time.Hour)
	_, err = s.store.InsertHistory(ctx, e2)
	s.Require().NoError(err)

	e3 := s.entry("A1234AA", 182, base)
	e3.CreatedAt = base.Add(2 * time.Hour)
	id3, err := s.store.InsertHistory(ctx, e3)
	s.Require().NoError(err)

	entries, err := s.store.HistoryForField(ctx, "A1234AA", models.FieldHeight)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(int32(181), *entries[0].Value.Int, "earlier CreatedAt sorts first")
	s.Equal(id1, entries[1].ID, "equal timestamps fall back to insertion ID")
	s.Equal(id3, entries[2].ID)
}

func (s *PostgresStoreSuite) TestCloseHistory() {
	ctx := context.Background()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	id, err := s.store.InsertHistory(ctx, s.entry("A1234AA", 180, from))
	s.Require().NoError(err)

	open, err := s.store.LatestOpenFor(ctx, "A1234AA", models.FieldHeight)
	s.Require().NoError(err)
	s.Require().NotNil(open)
	s.Equal(id, open.ID)

	closeAt := from.Add(24 * time.Hour)
	s.Require().NoError(s.store.CloseHistory(ctx, id, closeAt))

	open, err = s.store.LatestOpenFor(ctx, "A1234AA", models.FieldHeight)
	s.Require().NoError(err)
	s.Nil(open)

	entries, err := s.store.HistoryForField(ctx, "A1234AA", models.FieldHeight)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Require().NotNil(entries[0].AppliesTo)
	s.True(entries[0].AppliesTo.Equal(closeAt))
}

func (s *PostgresStoreSuite) TestRepointHistory() {
	ctx := context.Background()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	id1, err := s.store.InsertHistory(ctx, s.entry("B9999BB", 175, from))
	s.Require().NoError(err)
	id2, err := s.store.InsertHistory(ctx, s.entry("B9999BB", 176, from.Add(time.Hour)))
	s.Require().NoError(err)

	mergedAt := from.Add(48 * time.Hour)
	err = s.store.RepointHistory(ctx, []int64{id1, id2}, "A1234AA", "B9999BB", mergedAt)
	s.Require().NoError(err)

	old, err := s.store.HistoryForField(ctx, "B9999BB", models.FieldHeight)
	s.Require().NoError(err)
	s.Empty(old)

	moved, err := s.store.HistoryForField(ctx, "A1234AA", models.FieldHeight)
	s.Require().NoError(err)
	s.Require().Len(moved, 2)
	for _, e := range moved {
		s.Require().NotNil(e.MergedFrom)
		s.Equal("B9999BB", *e.MergedFrom)
		s.Require().NotNil(e.MergedAt)
		s.True(e.MergedAt.Equal(mergedAt))
	}
}

func (s *PostgresStoreSuite) TestRefListHistoryRoundTrip() {
	ctx := context.Background()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	e := &models.HistoryEntry{
		PersonID:    "A1234AA",
		Field:       models.FieldFoodAllergy,
		Value:       models.RefListValue([]string{"PEANUT", "EGG"}),
		AppliesFrom: from,
		CreatedAt:   from,
		CreatedBy:   "TEST_USER",
		Source:      models.SourceNomisSync,
	}
	_, err := s.store.InsertHistory(ctx, e)
	s.Require().NoError(err)

	entries, err := s.store.HistoryForField(ctx, "A1234AA", models.FieldFoodAllergy)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.KindRefList, entries[0].Value.Kind)
	s.Equal([]string{"EGG", "PEANUT"}, entries[0].Value.RefList, "lists are stored sorted")
}

func (s *PostgresStoreSuite) TestFieldMetadata() {
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	meta := models.FieldMetadata{
		PersonID:       "A1234AA",
		Field:          models.FieldHeight,
		LastModifiedAt: at,
		LastModifiedBy: "U1",
	}
	s.Require().NoError(s.store.UpsertFieldMetadata(ctx, meta))

	meta.LastModifiedAt = at.Add(time.Hour)
	meta.LastModifiedBy = "U2"
	s.Require().NoError(s.store.UpsertFieldMetadata(ctx, meta))

	got, err := s.store.FieldMetadataFor(ctx, "A1234AA")
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("U2", got[0].LastModifiedBy)
	s.True(got[0].LastModifiedAt.Equal(at.Add(time.Hour)))

	s.Require().NoError(s.store.DeleteFieldMetadata(ctx, "A1234AA"))
	got, err = s.store.FieldMetadataFor(ctx, "A1234AA")
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *PostgresStoreSuite) TestSelectPersonForUpdateSerialisesWriters() {
	ctx := context.Background()
	s.Require().NoError(s.store.SavePersonRecord(ctx, &models.PersonRecord{PersonID: "A1234AA"}))

	tx1, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	_, err = s.store.SelectPersonForUpdate(txcontext.WithTx(ctx, tx1), "A1234AA")
	s.Require().NoError(err)

	type result struct {
		acquiredAt time.Time
		err        error
	}
	done := make(chan result, 1)
	go func() {
		tx2, err := s.postgres.DB.BeginTx(ctx, nil)
		if err != nil {
			done <- result{err: err}
			return
		}
		defer tx2.Rollback()
		_, err = s.store.SelectPersonForUpdate(txcontext.WithTx(ctx, tx2), "A1234AA")
		done <- result{acquiredAt: time.Now(), err: err}
	}()

	time.Sleep(300 * time.Millisecond)
	committedAt := time.Now()
	s.Require().NoError(tx1.Commit())

	res := <-done
	s.Require().NoError(res.err)
	s.True(res.acquiredAt.After(committedAt),
		"second writer acquired the row before the first committed")
}
