package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestCollectorPublishesKeyedByTimeline(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 8)
	c.Start(context.Background())

	c.Track(MatchEvent{TimelineID: "t1", Returned: 3})
	c.Track(MatchEvent{TimelineID: "t2"})
	c.Close()

	require.Equal(t, 2, pub.count())
	assert.Equal(t, "t1", pub.events[0].Key)
	assert.Equal(t, MatchEvent{TimelineID: "t1", Returned: 3}, pub.events[0].Value)
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 1)
	c.Track(MatchEvent{TimelineID: "a"})
	c.Track(MatchEvent{TimelineID: "b"})

	c.Start(context.Background())
	c.Close()
	assert.Equal(t, 1, pub.count())
}

func TestCollectorTrackAfterClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 4)
	c.Start(context.Background())
	c.Close()

	assert.NotPanics(t, func() {
		c.Track(MatchEvent{TimelineID: "late"})
		c.Close()
	})
	assert.Equal(t, 0, pub.count())
}

func TestCollectorConcurrentTrackAndClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 64)
	c.Start(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Track(MatchEvent{TimelineID: "t"})
			}
		}()
	}
	c.Close()
	wg.Wait()
	assert.LessOrEqual(t, pub.count(), 800)
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(MatchEvent{CacheHit: true, Returned: 5, Candidates: 0, TopScore: 0.9, TopDiagnosis: "Malaria", LatencyMs: 2})
	agg.Record(MatchEvent{Returned: 5, Candidates: 30, TopScore: 0.7, TopDiagnosis: "Malaria", LatencyMs: 40})
	agg.Record(MatchEvent{Degraded: true, ForceRefresh: true, Returned: 0, Candidates: 0, LatencyMs: 100})
	agg.Record(MatchEvent{Returned: 2, Candidates: 15, TopScore: 0.5, TopDiagnosis: "Dengue", LatencyMs: 20})

	s := agg.Stats()
	assert.Equal(t, int64(4), s.TotalMatches)
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(3), s.CacheMisses)
	assert.Equal(t, 0.25, s.CacheHitRate)
	assert.Equal(t, int64(1), s.DegradedCount)
	assert.Equal(t, int64(1), s.ForcedRefreshes)
	assert.Equal(t, int64(1), s.ZeroResultCount)
	assert.InDelta(t, 11.25, s.AvgCandidates, 1e-9)
	assert.InDelta(t, 0.7, s.AvgTopScore, 1e-9)
	assert.Equal(t, int64(40), s.P50LatencyMs)
	assert.Equal(t, int64(100), s.P99LatencyMs)
	assert.Equal(t, []DiagnosisCount{{"Malaria", 2}, {"Dengue", 1}}, s.TopDiagnoses)
}

func TestAggregatorLatencyWindow(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+10; i++ {
		agg.Record(MatchEvent{LatencyMs: int64(i)})
	}
	agg.mu.RLock()
	defer agg.mu.RUnlock()
	assert.Len(t, agg.latencies, maxLatencySamples)
}

func TestAggregatorRestore(t *testing.T) {
	agg := NewAggregator()
	agg.Restore(AggregatedStats{TotalMatches: 10, CacheHits: 4, ZeroResultCount: 2, TopDiagnoses: []DiagnosisCount{{"Psoriasis", 3}}})
	agg.Record(MatchEvent{CacheHit: true, Returned: 1, TopDiagnosis: "Psoriasis"})

	s := agg.Stats()
	assert.Equal(t, int64(11), s.TotalMatches)
	assert.Equal(t, int64(5), s.CacheHits)
	assert.Equal(t, []DiagnosisCount{{"Psoriasis", 4}}, s.TopDiagnoses)
}

func TestHandleEventSkipsGarbage(t *testing.T) {
	agg := NewAggregator()
	h := HandleEvent(agg)

	require.NoError(t, h(context.Background(), nil, []byte("not json")))
	data, err := json.Marshal(MatchEvent{TimelineID: "t", Returned: 1, Timestamp: time.Now()})
	require.NoError(t, err)
	require.NoError(t, h(context.Background(), []byte("t"), data))

	assert.Equal(t, int64(1), agg.Stats().TotalMatches)
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(MatchEvent{Returned: 1})

	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(1), got.TotalMatches)
}

func TestHandlerDiagnoses(t *testing.T) {
	agg := NewAggregator()
	for _, d := range []string{"Psoriasis", "Malaria", "Psoriasis", "Dengue", "Psoriasis", "Malaria"} {
		agg.Record(MatchEvent{Returned: 1, TopDiagnosis: d})
	}
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Diagnoses(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/diagnoses?top=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var got struct {
		Diagnoses []DiagnosisCount `json:"diagnoses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []DiagnosisCount{{"Psoriasis", 3}, {"Malaria", 2}}, got.Diagnoses)

	rec = httptest.NewRecorder()
	h.Diagnoses(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/diagnoses?top=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
