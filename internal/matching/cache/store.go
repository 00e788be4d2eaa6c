// Package cache stores ranked match lists per timeline. A Store gives atomic
// replace semantics; MatchCache layers the read and write policy on top.
package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/ranker"
)

// Entry is the cached ranking for one timeline. Limit is the limit the
// ranking was computed with, which bounds which requests it can serve.
type Entry struct {
	TimelineID string               `json:"timeline_id"`
	Matches    []ranker.ScoredMatch `json:"matches"`
	Limit      int                  `json:"limit"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// Store is the persistence boundary for match entries. Replace must never
// expose a partially written entry to a concurrent Lookup.
type Store interface {
	Lookup(ctx context.Context, timelineID string) (*Entry, bool, error)
	Replace(ctx context.Context, entry Entry) error
	Invalidate(ctx context.Context, timelineID string) error
}
