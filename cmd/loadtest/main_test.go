package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}

func TestStatsRecord(t *testing.T) {
	s := NewStats()
	hit := http.Header{}
	hit.Set("X-Match-Cache", "hit")
	degraded := http.Header{}
	degraded.Set("X-Match-Degraded", "true")

	s.Record(time.Millisecond, 200, hit)
	s.Record(time.Millisecond, 200, degraded)
	s.Record(time.Millisecond, 429, http.Header{})
	s.Record(time.Millisecond, 0, nil)

	assert.Equal(t, int64(4), s.totalRequests.Load())
	assert.Equal(t, int64(2), s.successCount.Load())
	assert.Equal(t, int64(2), s.errorCount.Load())
	assert.Equal(t, int64(1), s.cacheHits.Load())
	assert.Equal(t, int64(1), s.degraded.Load())
	assert.Len(t, s.latencies, 3)

	var out bytes.Buffer
	assert.True(t, printReport(&out, s, time.Second))
	assert.Contains(t, out.String(), "429: 1")
	assert.Contains(t, out.String(), "Cache Hit Rate:  50.00%")

	assert.False(t, printReport(io.Discard, NewStats(), time.Second))
}

func TestNewMatchRequest(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	req, err := newMatchRequest(context.Background(), Config{BaseURL: srv.URL, Token: "rm_x", Limit: 5}, "t1", true)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer rm_x", auth)
	assert.Equal(t, map[string]any{"timeline_id": "t1", "limit": float64(5), "force_refresh": true}, got)
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitIDs(" a, ,b,"))
	assert.Nil(t, splitIDs(""))
}
