package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodyprofile/internal/profile/models"
	"custodyprofile/internal/profile/store"
	"custodyprofile/pkg/platform/sentinel"
	"custodyprofile/pkg/platform/tx"
	"custodyprofile/pkg/requestcontext"
)

func TestInMemoryTxRunnerRestoresOnFailure(t *testing.T) {
	st := store.NewInMemory()
	runner := &InMemoryTxRunner{Store: st}
	ctx := context.Background()

	boom := errors.New("boom")
	err := runner.RunInTx(ctx, func(ctx context.Context, s store.Store) error {
		if err := s.SavePersonRecord(ctx, &models.PersonRecord{PersonID: "A1234AA"}); err != nil {
			return err
		}
		if _, err := s.InsertHistory(ctx, &models.HistoryEntry{
			PersonID: "A1234AA",
			Field:    models.FieldHeight,
			Value:    models.IntValue(intp(180)),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing the failed transaction wrote survives, matching Postgres.
	_, err = st.GetPersonRecord(ctx, "A1234AA")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	entries, err := st.HistoryForPerson(ctx, "A1234AA")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// recordingLockStore notes every person row taken for update.
type recordingLockStore struct {
	store.Store
	locked []string
}

func (s *recordingLockStore) SelectPersonForUpdate(ctx context.Context, personID string) (*models.PersonRecord, error) {
	s.locked = append(s.locked, personID)
	return s.Store.SelectPersonForUpdate(ctx, personID)
}

// passthroughTxRunner runs fn over an arbitrary store with post-commit hooks
// attached, so locking behaviour can be observed through a wrapper.
type passthroughTxRunner struct {
	store store.Store
}

func (r *passthroughTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error {
	ctx, hooks := tx.WithHooks(ctx)
	if err := fn(ctx, r.store); err != nil {
		return err
	}
	hooks.Run(ctx)
	return nil
}

func TestWritePathsTakeThePersonLock(t *testing.T) {
	st := &recordingLockStore{Store: store.NewInMemory()}
	persons := &fakePersons{known: map[string]bool{"A1234AA": true, "B9999BB": true}}
	codes := &fakeCodes{known: map[string][]string{"HAIR": {"BROWN"}}}
	svc := NewService(
		&passthroughTxRunner{store: st},
		codes,
		persons,
		&recordingNotifier{},
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	t1 := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithUsername(requestcontext.WithTime(context.Background(), t1), "U1")

	_, err := svc.Update(ctx, "A1234AA", []FieldUpdate{
		{Field: models.FieldHeight, Value: models.IntValue(intp(182))},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1234AA"}, st.locked)

	st.locked = nil
	_, err = svc.Sync(ctx, "A1234AA", SyncRequest{
		Updates:     []FieldUpdate{{Field: models.FieldHeight, Value: models.IntValue(intp(183))}},
		AppliesFrom: t1.Add(time.Hour),
		CreatedAt:   t1.Add(time.Hour),
		CreatedBy:   "NOMIS",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1234AA"}, st.locked)

	st.locked = nil
	err = svc.Merge(ctx, "B9999BB", "A1234AA")
	require.NoError(t, err)
	// Both rows taken in identifier order before any history is read.
	require.GreaterOrEqual(t, len(st.locked), 2)
	assert.Equal(t, []string{"A1234AA", "B9999BB"}, st.locked[:2])
}
