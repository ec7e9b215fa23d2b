package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kconsumer "custodyprofile/internal/platform/kafka/consumer"
)

type recordingMerger struct {
	removed   string
	surviving string
	err       error
	calls     int
}

func (m *recordingMerger) Merge(_ context.Context, removedID, survivingID string) error {
	m.calls++
	m.removed = removedID
	m.surviving = survivingID
	return m.err
}

type recordingHandler struct {
	calls int
}

func (h *recordingHandler) Handle(context.Context, *kconsumer.Message) error {
	h.calls++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mergeMessage(body string) *kconsumer.Message {
	return &kconsumer.Message{
		Topic:   "prison-offender-events",
		Key:     []byte("A1234AA"),
		Value:   []byte(body),
		Headers: map[string]string{"eventType": TypePrisonerMerged},
	}
}

func TestMergeHandlerMergesOnMergeReason(t *testing.T) {
	merger := &recordingMerger{}
	h := NewMergeHandler(merger, discardLogger())

	err := h.Handle(context.Background(), mergeMessage(
		`{"additionalInformation":{"nomsNumber":"A1234AA","removedNomsNumber":"B9999BB","reason":"MERGE"}}`,
	))
	require.NoError(t, err)
	assert.Equal(t, "B9999BB", merger.removed)
	assert.Equal(t, "A1234AA", merger.surviving)
}

func TestMergeHandlerSkipsOtherReasons(t *testing.T) {
	merger := &recordingMerger{}
	h := NewMergeHandler(merger, discardLogger())

	err := h.Handle(context.Background(), mergeMessage(
		`{"additionalInformation":{"nomsNumber":"A1234AA","removedNomsNumber":"B9999BB","reason":"BOOK_MOVE"}}`,
	))
	require.NoError(t, err)
	assert.Zero(t, merger.calls)
}

func TestMergeHandlerDropsMalformedPayload(t *testing.T) {
	merger := &recordingMerger{}
	h := NewMergeHandler(merger, discardLogger())

	err := h.Handle(context.Background(), mergeMessage(`not json`))
	require.NoError(t, err, "malformed payloads are dropped, not retried")
	assert.Zero(t, merger.calls)
}

func TestMergeHandlerPropagatesMergeFailure(t *testing.T) {
	merger := &recordingMerger{err: errors.New("db down")}
	h := NewMergeHandler(merger, discardLogger())

	err := h.Handle(context.Background(), mergeMessage(
		`{"additionalInformation":{"nomsNumber":"A1234AA","removedNomsNumber":"B9999BB","reason":"MERGE"}}`,
	))
	assert.Error(t, err, "a failed merge must be redelivered")
}

func TestRouterDispatchesByHeader(t *testing.T) {
	router := NewRouter(discardLogger())
	handler := &recordingHandler{}
	router.Register(TypePrisonerMerged, handler)

	err := router.Handle(context.Background(), mergeMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 1, handler.calls)
}

func TestRouterFallsBackToPayloadEventType(t *testing.T) {
	router := NewRouter(discardLogger())
	handler := &recordingHandler{}
	router.Register(TypePrisonerMerged, handler)

	msg := &kconsumer.Message{
		Topic: "prison-offender-events",
		Value: []byte(`{"eventType":"` + TypePrisonerMerged + `"}`),
	}
	require.NoError(t, router.Handle(context.Background(), msg))
	assert.Equal(t, 1, handler.calls)
}

func TestRouterSkipsUnknownEventTypes(t *testing.T) {
	router := NewRouter(discardLogger())
	handler := &recordingHandler{}
	router.Register(TypePrisonerMerged, handler)

	msg := &kconsumer.Message{
		Topic:   "prison-offender-events",
		Value:   []byte(`{}`),
		Headers: map[string]string{"eventType": "prison-offender-events.prisoner.released"},
	}
	require.NoError(t, router.Handle(context.Background(), msg))
	assert.Zero(t, handler.calls)
}
