package service

import (
	"context"
	"time"

	"custodyprofile/internal/events"
	"custodyprofile/internal/profile/models"
	dErrors "custodyprofile/pkg/domain-errors"
	"custodyprofile/pkg/platform/sentinel"
)

func (s *ServiceSuite) TestMergeFoldsRemovedHistory() {
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := s.svc.Update(s.ctxAt(t1, "U1"), "B9999BB", []FieldUpdate{
		{Field: models.FieldHeight, Value: models.IntValue(intp(175))},
	})
	s.Require().NoError(err)
	s.notifier.changes = nil

	mergedAt := t1.Add(24 * time.Hour)
	err = s.svc.Merge(s.ctxAt(mergedAt, "SYS"), "B9999BB", "A1234AA")
	s.Require().NoError(err)

	// History now belongs to the surviving person and remembers where it
	// came from.
	entries, err := s.store.HistoryForField(context.Background(), "A1234AA", models.FieldHeight)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Require().NotNil(entries[0].MergedFrom)
	s.Equal("B9999BB", *entries[0].MergedFrom)
	s.Require().NotNil(entries[0].MergedAt)
	s.True(entries[0].MergedAt.Equal(mergedAt))

	removed, err := s.store.HistoryForField(context.Background(), "B9999BB", models.FieldHeight)
	s.Require().NoError(err)
	s.Empty(removed)

	rec, err := s.store.GetPersonRecord(context.Background(), "A1234AA")
	s.Require().NoError(err)
	s.Equal(int32(175), *rec.Height)

	_, err = s.store.GetPersonRecord(context.Background(), "B9999BB")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().Len(s.notifier.changes, 1)
	change := s.notifier.changes[0]
	s.Equal(events.TypeProfileMerged, change.EventType)
	s.Equal("A1234AA", change.PersonID)
	s.Equal("B9999BB", change.RemovedPersonID)
	s.Equal([]models.Field{models.FieldHeight}, change.Fields)
}

func (s *ServiceSuite) TestMergeEmptyRemovedIsNoOp() {
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := s.svc.Update(s.ctxAt(t1, "U1"), "A1234AA", []FieldUpdate{
		{Field: models.FieldHeight, Value: models.IntValue(intp(180))},
	})
	s.Require().NoError(err)
	s.notifier.changes = nil

	err = s.svc.Merge(s.ctxAt(t1.Add(time.Hour), "SYS"), "B9999BB", "A1234AA")
	s.Require().NoError(err)

	rec, err := s.store.GetPersonRecord(context.Background(), "A1234AA")
	s.Require().NoError(err)
	s.Equal(int32(180), *rec.Height)
	s.Empty(s.notifier.changes, "merging a person with no history raises no event")
}

func (s *ServiceSuite) TestMergeLaterSurvivingEntryWins() {
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	_, err := s.svc.Update(s.ctxAt(t1, "U1"), "B9999BB", []FieldUpdate{
		{Field: models.FieldHeight, Value: models.IntValue(intp(175))},
	})
	s.Require().NoError(err)
	_, err = s.svc.Update(s.ctxAt(t2, "U2"), "A1234AA", []FieldUpdate{
		{Field: models.FieldHeight, Value: models.IntValue(intp(182))},
	})
	s.Require().NoError(err)

	mergedAt := t2.Add(time.Hour)
	err = s.svc.Merge(s.ctxAt(mergedAt, "SYS"), "B9999BB", "A1234AA")
	s.Require().NoError(err)

	rec, err := s.store.GetPersonRecord(context.Background(), "A1234AA")
	s.Require().NoError(err)
	s.Equal(int32(182), *rec.Height, "the later entry keeps the current value")

	entries, err := s.store.HistoryForField(context.Background(), "A1234AA", models.FieldHeight)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	// The earlier latest entry, here the removed person's, is closed at the
	// merge instant; the winner stays open.
	s.Require().NotNil(entries[0].AppliesTo)
	s.True(entries[0].AppliesTo.Equal(mergedAt))
	s.Nil(entries[1].AppliesTo)
}

func (s *ServiceSuite) TestMergeLaterRemovedEntryWins() {
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	_, err := s.svc.Update(s.ctxAt(t1, "U1"), "A1234AA", []FieldUpdate{
		{Field: models.FieldHeight, Value: models.IntValue(intp(182))},
	})
	s.Require().NoError(err)
	_, err = s.svc.Update(s.ctxAt(t2, "U2"), "B9999BB", []FieldUpdate{
		{Field: models.FieldHeight, Value: models.IntValue(intp(175))},
	})
	s.Require().NoError(err)

	mergedAt := t2.Add(time.Hour)
	err = s.svc.Merge(s.ctxAt(mergedAt, "SYS"), "B9999BB", "A1234AA")
	s.Require().NoError(err)

	rec, err := s.store.GetPersonRecord(context.Background(), "A1234AA")
	s.Require().NoError(err)
	s.Equal(int32(175), *rec.Height)

	entries, err := s.store.HistoryForField(context.Background(), "A1234AA", models.FieldHeight)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Require().NotNil(entries[0].AppliesTo)
	s.True(entries[0].AppliesTo.Equal(mergedAt))
	s.Nil(entries[1].AppliesTo)
}

func (s *ServiceSuite) TestMergeLoneEntryKeepsOpenWindow() {
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := s.svc.Update(s.ctxAt(t1, "U1"), "B9999BB", []FieldUpdate{
		{Field: models.FieldShoeSize, Value: models.StringValue(strp("10.5"))},
	})
	s.Require().NoError(err)

	err = s.svc.Merge(s.ctxAt(t1.Add(time.Hour), "SYS"), "B9999BB", "A1234AA")
	s.Require().NoError(err)

	entries, err := s.store.HistoryForField(context.Background(), "A1234AA", models.FieldShoeSize)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Nil(entries[0].AppliesTo, "with no counterpart there is nothing to close against")
}

func (s *ServiceSuite) TestMergeDoesNotRecloseClosedLoser() {
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)
	// Surviving person carries a closed entry and an open one; the removed
	// person's entry is the latest overall.
	_, err := s.svc.Update(s.ctxAt(t1, "U1"), "A1234AA", []FieldUpdate{
		{Field: models.FieldHeight, Value: models.IntValue(intp(180))},
	})
	s.Require().NoError(err)
	_, err = s.svc.Update(s.ctxAt(t2, "U1"), "A1234AA", []FieldUpdate{
		{Field: models.FieldHeight, Value: models.IntValue(intp(181))},
	})
	s.Require().NoError(err)
	_, err = s.svc.Update(s.ctxAt(t3, "U2"), "B9999BB", []FieldUpdate{
		{Field: models.FieldHeight, Value: models.IntValue(intp(175))},
	})
	s.Require().NoError(err)

	mergedAt := t3.Add(time.Hour)
	err = s.svc.Merge(s.ctxAt(mergedAt, "SYS"), "B9999BB", "A1234AA")
	s.Require().NoError(err)

	entries, err := s.store.HistoryForField(context.Background(), "A1234AA", models.FieldHeight)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	// First window keeps its original close; only the open loser is closed.
	s.True(entries[0].AppliesTo.Equal(t2))
	s.True(entries[1].AppliesTo.Equal(mergedAt))
	s.Nil(entries[2].AppliesTo)
}

func (s *ServiceSuite) TestMergeIsIdempotent() {
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := s.svc.Update(s.ctxAt(t1, "U1"), "B9999BB", []FieldUpdate{
		{Field: models.FieldHeight, Value: models.IntValue(intp(175))},
	})
	s.Require().NoError(err)
	s.notifier.changes = nil

	mergedAt := t1.Add(time.Hour)
	s.Require().NoError(s.svc.Merge(s.ctxAt(mergedAt, "SYS"), "B9999BB", "A1234AA"))
	s.Require().NoError(s.svc.Merge(s.ctxAt(mergedAt.Add(time.Minute), "SYS"), "B9999BB", "A1234AA"))

	entries, err := s.store.HistoryForField(context.Background(), "A1234AA", models.FieldHeight)
	s.Require().NoError(err)
	s.Len(entries, 1)
	s.Len(s.notifier.changes, 1, "redelivered merge raises no second event")
}

func (s *ServiceSuite) TestMergeLeavesNonMergeableFields() {
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := s.svc.Update(s.ctxAt(t1, "U1"), "B9999BB", []FieldUpdate{
		{Field: models.FieldHeight, Value: models.IntValue(intp(175))},
		{Field: models.FieldSmokerOrVaper, Value: models.RefValue(strp("VAPER"))},
	})
	s.Require().NoError(err)

	err = s.svc.Merge(s.ctxAt(t1.Add(time.Hour), "SYS"), "B9999BB", "A1234AA")
	s.Require().NoError(err)

	moved, err := s.store.HistoryForField(context.Background(), "A1234AA", models.FieldSmokerOrVaper)
	s.Require().NoError(err)
	s.Empty(moved, "smoker status never crosses a merge")

	rec, err := s.store.GetPersonRecord(context.Background(), "A1234AA")
	s.Require().NoError(err)
	s.Nil(rec.SmokerOrVaper)
}

func (s *ServiceSuite) TestMergeRejectsBadIdentifiers() {
	ctx := s.ctxAt(time.Now(), "SYS")
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(s.svc.Merge(ctx, "", "A1234AA")))
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(s.svc.Merge(ctx, "A1234AA", "")))
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(s.svc.Merge(ctx, "A1234AA", "A1234AA")))
}
