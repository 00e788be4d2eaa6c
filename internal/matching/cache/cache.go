package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/ranker"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/metrics"
)

// Stats is a snapshot of the cache counters since process start.
type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	WriteFailures int64   `json:"write_failures"`
	HitRate       float64 `json:"hit_rate"`
}

// MatchCache applies the lookup and write policy over a Store. Lookup
// failures read as misses and write failures are logged, never returned.
type MatchCache struct {
	store         Store
	metrics       *metrics.Metrics
	logger        *slog.Logger
	now           func() time.Time
	hits          atomic.Int64
	misses        atomic.Int64
	writeFailures atomic.Int64
}

func New(store Store, m *metrics.Metrics) *MatchCache {
	return &MatchCache{
		store:   store,
		metrics: m,
		logger:  slog.Default().With("component", "match-cache"),
		now:     time.Now,
	}
}

// Get returns the cached ranking for timelineID if it was computed with a
// limit of at least limit, truncated to limit.
func (c *MatchCache) Get(ctx context.Context, timelineID string, limit int) ([]ranker.ScoredMatch, bool) {
	entry, ok, err := c.store.Lookup(ctx, timelineID)
	if err != nil {
		c.logger.Warn("cache lookup failed", "timeline_id", timelineID, "error", err)
		c.miss()
		return nil, false
	}
	if !ok || entry.Limit < limit {
		c.miss()
		return nil, false
	}

	matches := entry.Matches
	if matches == nil {
		matches = []ranker.ScoredMatch{}
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	c.hits.Add(1)
	c.metrics.CacheHitsTotal.Inc()
	c.logger.Debug("cache hit", "timeline_id", timelineID, "matches", len(matches))
	return matches, true
}

// Put replaces the entry for timelineID. It is best effort.
func (c *MatchCache) Put(ctx context.Context, timelineID string, limit int, matches []ranker.ScoredMatch) {
	entry := Entry{
		TimelineID: timelineID,
		Matches:    matches,
		Limit:      limit,
		UpdatedAt:  c.now().UTC(),
	}
	if err := c.store.Replace(ctx, entry); err != nil {
		c.writeFailures.Add(1)
		c.metrics.CacheWriteFailures.Inc()
		c.logger.Error("failed to cache matches", "timeline_id", timelineID, "error", err)
		return
	}
	c.logger.Info("cached matches", "timeline_id", timelineID, "count", len(matches))
}

func (c *MatchCache) Invalidate(ctx context.Context, timelineID string) error {
	if err := c.store.Invalidate(ctx, timelineID); err != nil {
		return fmt.Errorf("invalidating cache for %s: %w", timelineID, err)
	}
	c.logger.Info("cache invalidated", "timeline_id", timelineID)
	return nil
}

func (c *MatchCache) Stats() Stats {
	s := Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		WriteFailures: c.writeFailures.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *MatchCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMissesTotal.Inc()
}
