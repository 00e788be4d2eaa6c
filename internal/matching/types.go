// Package matching holds the request bodies of the match API. The pipeline
// itself lives in the subpackages.
package matching

type MatchRequest struct {
	TimelineID   string `json:"timeline_id"`
	Limit        int    `json:"limit"`
	ForceRefresh bool   `json:"force_refresh"`
}

type DebugRequest struct {
	TimelineID string   `json:"timeline_id,omitempty"`
	Symptoms   []string `json:"symptoms,omitempty"`
}

type FeedbackRequest struct {
	TimelineID string `json:"timeline_id"`
	MatchID    string `json:"match_id"`
	IsHelpful  *bool  `json:"is_helpful"`
}
