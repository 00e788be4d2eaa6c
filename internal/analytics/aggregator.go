package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/kafka"
)

const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalMatches     int64            `json:"total_matches"`
	CacheHits        int64            `json:"cache_hits"`
	CacheMisses      int64            `json:"cache_misses"`
	CacheHitRate     float64          `json:"cache_hit_rate"`
	ForcedRefreshes  int64            `json:"forced_refreshes"`
	DegradedCount    int64            `json:"degraded_count"`
	ZeroResultCount  int64            `json:"zero_result_count"`
	AvgCandidates    float64          `json:"avg_candidates"`
	AvgTopScore      float64          `json:"avg_top_score"`
	AvgLatencyMs     float64          `json:"avg_latency_ms"`
	P50LatencyMs     int64            `json:"p50_latency_ms"`
	P95LatencyMs     int64            `json:"p95_latency_ms"`
	P99LatencyMs     int64            `json:"p99_latency_ms"`
	TopDiagnoses     []DiagnosisCount `json:"top_diagnoses"`
	MatchesPerMinute float64          `json:"matches_per_minute"`
}

type DiagnosisCount struct {
	Diagnosis string `json:"diagnosis"`
	Count     int64  `json:"count"`
}

// Aggregator folds MatchEvents into running totals. Latency percentiles are
// computed over the most recent maxLatencySamples events.
type Aggregator struct {
	mu              sync.RWMutex
	totalMatches    int64
	cacheHits       int64
	forcedRefreshes int64
	degraded        int64
	zeroResults     int64
	candidatesSum   int64
	topScoreSum     float64
	scored          int64
	latencies       []int64
	next            int
	diagnosisCounts map[string]int64
	startTime       time.Time
	now             func() time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:       make([]int64, 0, 1024),
		diagnosisCounts: make(map[string]int64),
		startTime:       time.Now(),
		now:             time.Now,
		logger:          slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent adapts the aggregator into a Kafka message handler. Undecodable
// messages are logged and acknowledged so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[MatchEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode match event", "key", string(key), "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event MatchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalMatches++
	if event.CacheHit {
		a.cacheHits++
	}
	if event.ForceRefresh {
		a.forcedRefreshes++
	}
	if event.Degraded {
		a.degraded++
	}
	if event.Returned == 0 {
		a.zeroResults++
	} else {
		a.topScoreSum += event.TopScore
		a.scored++
	}
	a.candidatesSum += int64(event.Candidates)
	if event.TopDiagnosis != "" {
		a.diagnosisCounts[event.TopDiagnosis]++
	}

	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
}

// Restore seeds the running totals from a persisted snapshot. Latency
// samples are not persisted and start empty.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalMatches = s.TotalMatches
	a.cacheHits = s.CacheHits
	a.forcedRefreshes = s.ForcedRefreshes
	a.degraded = s.DegradedCount
	a.zeroResults = s.ZeroResultCount
	a.candidatesSum = int64(s.AvgCandidates * float64(s.TotalMatches))
	a.scored = s.TotalMatches - s.ZeroResultCount
	a.topScoreSum = s.AvgTopScore * float64(a.scored)
	for _, d := range s.TopDiagnoses {
		a.diagnosisCounts[d.Diagnosis] = d.Count
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalMatches:    a.totalMatches,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.totalMatches - a.cacheHits,
		ForcedRefreshes: a.forcedRefreshes,
		DegradedCount:   a.degraded,
		ZeroResultCount: a.zeroResults,
	}
	if a.totalMatches > 0 {
		stats.CacheHitRate = float64(a.cacheHits) / float64(a.totalMatches)
		stats.AvgCandidates = float64(a.candidatesSum) / float64(a.totalMatches)
	}
	if a.scored > 0 {
		stats.AvgTopScore = a.topScoreSum / float64(a.scored)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopDiagnoses = topN(a.diagnosisCounts, 10)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.MatchesPerMinute = float64(stats.TotalMatches) / elapsed
	}
	return stats
}

// TopDiagnoses returns the n most frequent top-ranked diagnoses.
func (a *Aggregator) TopDiagnoses(n int) []DiagnosisCount {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return topN(a.diagnosisCounts, n)
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then name, so equal counts are stable.
func topN(counts map[string]int64, n int) []DiagnosisCount {
	result := make([]DiagnosisCount, 0, len(counts))
	for diagnosis, count := range counts {
		result = append(result, DiagnosisCount{Diagnosis: diagnosis, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Diagnosis < result[j].Diagnosis
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
