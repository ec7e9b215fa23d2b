package prisonersearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second)
}

func TestExistsKnownPrisoner(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prisoner/A1234AA", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prisonerNumber":"A1234AA","prisonId":"MDI"}`))
	})

	ok, err := c.Exists(context.Background(), "A1234AA")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExistsUnknownPrisoner(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	ok, err := c.Exists(context.Background(), "Z0000ZZ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExistsServerError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Exists(context.Background(), "A1234AA")
	assert.Error(t, err)
}

func TestPrisonIDFor(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prisonerNumber":"A1234AA","prisonId":"LEI"}`))
	})

	prisonID, err := c.PrisonIDFor(context.Background(), "A1234AA")
	require.NoError(t, err)
	assert.Equal(t, "LEI", prisonID)
}
