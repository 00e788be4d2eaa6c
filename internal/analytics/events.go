package analytics

import "time"

// MatchEvent describes one FindMatches call. It is published to the
// match-events topic keyed by timeline.
type MatchEvent struct {
	TimelineID   string    `json:"timeline_id"`
	CacheHit     bool      `json:"cache_hit"`
	Degraded     bool      `json:"degraded"`
	ForceRefresh bool      `json:"force_refresh"`
	Candidates   int       `json:"candidates"`
	Returned     int       `json:"returned"`
	TopScore     float64   `json:"top_score"`
	TopDiagnosis string    `json:"top_diagnosis,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id"`
}
