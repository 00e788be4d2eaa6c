package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	limit int
	err   error
}

func (f *fakeLister) ListSnapshots(_ context.Context, limit int) ([]analytics.AggregatedStats, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []analytics.AggregatedStats{{TotalMatches: 4}}, nil
}

func TestHistoryHandler(t *testing.T) {
	l := &fakeLister{}
	h := HistoryHandler(l)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=500", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxHistory, l.limit)
	assert.Contains(t, rec.Body.String(), `"total_matches":4`)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	l.err = errors.New("db down")
	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 10, l.limit)
}

type staticSource analytics.AggregatedStats

func (s staticSource) Stats() analytics.AggregatedStats { return analytics.AggregatedStats(s) }

func TestStoreAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("RM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RM_TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	client := &postgres.Client{DB: db}
	defer client.Close()
	ctx := context.Background()
	require.NoError(t, client.Migrate(ctx, 4))

	store := NewStore(client)
	require.NoError(t, store.SaveSnapshot(ctx, analytics.AggregatedStats{TotalMatches: 7}))

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(7), latest.TotalMatches)

	runCtx, cancel := context.WithCancel(ctx)
	done := store.StartPeriodicSave(runCtx, staticSource{TotalMatches: 9}, time.Hour)
	cancel()
	<-done

	latest, err = store.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), latest.TotalMatches)
}
