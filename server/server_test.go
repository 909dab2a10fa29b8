package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlagHoedje/sibas/models"
	"github.com/SlagHoedje/sibas/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := store.SetupDatabase("sqlite://"+filepath.Join(t.TempDir(), "test.sqlite"), 1)
	require.NoError(t, err)
	return New(store.NewStore(db))
}

func TestHealthcheck(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()

	_, err := s.store.GetOrCreateChannel(ctx, 100, 1)
	require.NoError(t, err)
	require.NoError(t, s.store.CommitChunk(ctx, 100, []models.Message{
		{ID: 1, ChannelID: 100},
		{ID: 2, ChannelID: 100},
	}, nil, 2))

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats["channels"])
	assert.EqualValues(t, 2, stats["messages"])
}

func TestShutdownBeforeStart(t *testing.T) {
	s := testServer(t)
	assert.NoError(t, s.Shutdown(context.Background()))
}
