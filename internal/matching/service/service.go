// Package service runs the match pipeline: timeline lookup, cache policy,
// embedding, case retrieval and hybrid ranking.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/cache"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/embedding"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/ranker"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/retriever"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/symptom"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/timeline"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/tracing"
	"golang.org/x/sync/singleflight"
)

type Config struct {
	SimilarityThreshold float64
	OverfetchFactor     int
	DefaultLimit        int
	MaxLimit            int
	DebugCandidates     int
	EmbedTimeout        time.Duration
	RetrieveTimeout     time.Duration
	FallbackDimension   int
	FallbackValue       float32
	// CheckOwnership hides timelines owned by other users. It is off when
	// authentication is disabled.
	CheckOwnership bool
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		SimilarityThreshold: cfg.Matching.SimilarityThreshold,
		OverfetchFactor:     cfg.Matching.OverfetchFactor,
		DefaultLimit:        cfg.Matching.DefaultLimit,
		MaxLimit:            cfg.Matching.MaxLimit,
		DebugCandidates:     cfg.Matching.DebugCandidates,
		EmbedTimeout:        cfg.Matching.EmbedTimeout,
		RetrieveTimeout:     cfg.Matching.RetrieveTimeout,
		FallbackDimension:   cfg.Embedding.Dimension,
		FallbackValue:       cfg.Embedding.FallbackValue,
		CheckOwnership:      cfg.Auth.Enabled,
	}
}

// EventTracker receives one event per FindMatches call.
// *analytics.Collector satisfies it.
type EventTracker interface {
	Track(event analytics.MatchEvent)
}

type MatchRequest struct {
	TimelineID   string
	UserID       string
	Limit        int
	ForceRefresh bool
}

type MatchResult struct {
	Matches    []ranker.ScoredMatch
	CacheHit   bool
	Degraded   bool
	Candidates int
}

type DebugRequest struct {
	TimelineID string
	Symptoms   []string
	UserID     string
}

type DebugReport struct {
	UserSymptoms   []string                `json:"user_symptoms"`
	EmbeddingDebug json.RawMessage         `json:"embedding_debug,omitempty"`
	Degraded       bool                    `json:"degraded"`
	TopCandidates  []ranker.CandidateScore `json:"top_candidates"`
}

type Service struct {
	timelines timeline.Getter
	embedder  embedding.Embedder
	retriever retriever.Retriever
	ranker    *ranker.Ranker
	cache     *cache.MatchCache
	tracker   EventTracker
	metrics   *metrics.Metrics
	cfg       Config
	group     singleflight.Group
	logger    *slog.Logger
}

// New wires the pipeline. tracker may be nil.
func New(
	cfg Config,
	timelines timeline.Getter,
	embedder embedding.Embedder,
	ret retriever.Retriever,
	rk *ranker.Ranker,
	matchCache *cache.MatchCache,
	tracker EventTracker,
	m *metrics.Metrics,
) *Service {
	if cfg.OverfetchFactor <= 0 {
		cfg.OverfetchFactor = 3
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.DebugCandidates <= 0 {
		cfg.DebugCandidates = 5
	}
	return &Service{
		timelines: timelines,
		embedder:  embedder,
		retriever: ret,
		ranker:    rk,
		cache:     matchCache,
		tracker:   tracker,
		metrics:   m,
		cfg:       cfg,
		logger:    slog.Default().With("component", "match-service"),
	}
}

// FindMatches returns the ranked matches for a timeline. A cache hit skips
// embedding, retrieval and ranking unless ForceRefresh is set. Boundary
// failures degrade the result instead of failing it; degraded results are
// not cached.
//
// Concurrent misses for the same timeline and limit share one computation
// in this process. Across processes, and whenever ForceRefresh is set, the
// cache is last-write-wins.
func (s *Service) FindMatches(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "find_matches", logger.RequestID(ctx))
	span.SetAttr("timeline_id", req.TimelineID)
	defer span.Finish()
	log := logger.FromContext(ctx)

	limit := s.resolveLimit(req.Limit)

	tl, err := s.loadTimeline(ctx, req.TimelineID, req.UserID)
	if err != nil {
		s.metrics.MatchRequestsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	var result *MatchResult
	if !req.ForceRefresh {
		_, cacheSpan := tracing.StartChildSpan(ctx, "cache_lookup")
		if matches, ok := s.cache.Get(ctx, tl.ID, limit); ok {
			result = &MatchResult{Matches: matches, CacheHit: true}
		}
		cacheSpan.SetAttr("hit", result != nil)
		cacheSpan.End()
	}

	if result == nil {
		if req.ForceRefresh {
			result = s.compute(ctx, tl, limit)
		} else {
			key := fmt.Sprintf("%s:%d", tl.ID, limit)
			v, _, _ := s.group.Do(key, func() (any, error) {
				return s.compute(context.WithoutCancel(ctx), tl, limit), nil
			})
			result = v.(*MatchResult)
		}
	}

	elapsed := time.Since(start)
	s.observe(ctx, req, result, elapsed)
	log.Info("matches served",
		"timeline_id", tl.ID,
		"limit", limit,
		"returned", len(result.Matches),
		"cache_hit", result.CacheHit,
		"degraded", result.Degraded,
		"latency_ms", elapsed.Milliseconds(),
	)
	return result, nil
}

func (s *Service) compute(ctx context.Context, tl *timeline.Timeline, limit int) *MatchResult {
	user := symptom.Normalize(tl.SymptomNames())

	emb, embedDegraded := s.embed(ctx, user)
	candidates, retrieveDegraded := s.retrieve(ctx, emb.Vector, limit*s.cfg.OverfetchFactor)

	_, rankSpan := tracing.StartChildSpan(ctx, "rank")
	matches := s.ranker.Rank(user, candidates, limit)
	rankSpan.SetAttr("candidates", len(candidates))
	rankSpan.End()

	result := &MatchResult{
		Matches:    matches,
		Degraded:   embedDegraded || retrieveDegraded,
		Candidates: len(candidates),
	}
	s.metrics.MatchCandidatesCount.Observe(float64(len(candidates)))

	if !result.Degraded {
		s.cache.Put(ctx, tl.ID, limit, matches)
	}
	return result
}

// DebugSimilarity reports the per-signal scores for the top candidates. It
// never reads or writes the cache, and its hybrid scores equal what
// FindMatches would compute for the same symptoms and candidates.
func (s *Service) DebugSimilarity(ctx context.Context, req DebugRequest) (*DebugReport, error) {
	raw := req.Symptoms
	if len(raw) == 0 {
		if req.TimelineID == "" {
			return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"must provide either timeline_id or symptoms")
		}
		tl, err := s.loadTimeline(ctx, req.TimelineID, req.UserID)
		if err != nil {
			return nil, err
		}
		raw = tl.SymptomNames()
	}

	user := symptom.Normalize(raw)
	emb, embedDegraded := s.embed(ctx, user)
	candidates, retrieveDegraded := s.retrieve(ctx, emb.Vector, s.cfg.DebugCandidates)

	return &DebugReport{
		UserSymptoms:   user,
		EmbeddingDebug: emb.DebugInfo,
		Degraded:       embedDegraded || retrieveDegraded,
		TopCandidates:  s.ranker.Breakdown(user, candidates),
	}, nil
}

// InvalidateCache drops the cached matches of a timeline the caller can see.
func (s *Service) InvalidateCache(ctx context.Context, timelineID, userID string) error {
	if _, err := s.loadTimeline(ctx, timelineID, userID); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, timelineID)
}

func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *Service) loadTimeline(ctx context.Context, id, userID string) (*timeline.Timeline, error) {
	_, span := tracing.StartChildSpan(ctx, "timeline_lookup")
	defer span.End()

	tl, err := s.timelines.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cfg.CheckOwnership && tl.UserID != userID {
		return nil, fmt.Errorf("timeline %s: %w", id, apperrors.ErrTimelineNotFound)
	}
	return tl, nil
}

func (s *Service) embed(ctx context.Context, user symptom.SymptomSet) (*embedding.Embedding, bool) {
	_, span := tracing.StartChildSpan(ctx, "embed")
	defer span.End()

	var emb *embedding.Embedding
	err := resilience.WithTimeout(ctx, s.cfg.EmbedTimeout, "embed", func(ctx context.Context) error {
		var err error
		emb, err = s.embedder.Embed(ctx, user)
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Warn("embedding unavailable, using fallback vector", "error", err)
		s.metrics.BoundaryFailuresTotal.WithLabelValues("embedding").Inc()
		span.SetAttr("fallback", true)
		return embedding.Fallback(s.cfg.FallbackDimension, s.cfg.FallbackValue), true
	}
	return emb, false
}

func (s *Service) retrieve(ctx context.Context, vector []float32, maxCandidates int) ([]ranker.Candidate, bool) {
	_, span := tracing.StartChildSpan(ctx, "retrieve")
	defer span.End()

	var candidates []ranker.Candidate
	err := resilience.WithTimeout(ctx, s.cfg.RetrieveTimeout, "retrieve", func(ctx context.Context) error {
		var err error
		candidates, err = s.retriever.Retrieve(ctx, vector, s.cfg.SimilarityThreshold, maxCandidates)
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Warn("case store unavailable, ranking no candidates", "error", err)
		s.metrics.BoundaryFailuresTotal.WithLabelValues("case_store").Inc()
		span.SetAttr("failed", true)
		return []ranker.Candidate{}, true
	}
	span.SetAttr("candidates", len(candidates))
	return candidates, false
}

func (s *Service) resolveLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}

func (s *Service) observe(ctx context.Context, req MatchRequest, result *MatchResult, elapsed time.Duration) {
	label, cacheStatus := "miss", "miss"
	switch {
	case result.CacheHit:
		label, cacheStatus = "hit", "hit"
	case result.Degraded:
		label = "degraded"
	}
	s.metrics.MatchRequestsTotal.WithLabelValues(label).Inc()
	s.metrics.MatchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())

	if s.tracker == nil {
		return
	}
	event := analytics.MatchEvent{
		TimelineID:   req.TimelineID,
		CacheHit:     result.CacheHit,
		Degraded:     result.Degraded,
		ForceRefresh: req.ForceRefresh,
		Candidates:   result.Candidates,
		Returned:     len(result.Matches),
		LatencyMs:    elapsed.Milliseconds(),
		Timestamp:    time.Now().UTC(),
		RequestID:    logger.RequestID(ctx),
	}
	if len(result.Matches) > 0 {
		event.TopScore = result.Matches[0].Similarity
		event.TopDiagnosis = result.Matches[0].Diagnosis
	}
	s.tracker.Track(event)
}

func resultLabel(err error) string {
	if errors.Is(err, apperrors.ErrTimelineNotFound) {
		return "not_found"
	}
	return "error"
}
