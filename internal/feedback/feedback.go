// Package feedback records whether a user found a suggested match helpful.
// Submissions are published to Kafka by the matcher and persisted to
// Postgres by a consumer, so a slow database never delays the API.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/resilience"
)

type Feedback struct {
	UserID      string    `json:"user_id"`
	TimelineID  string    `json:"timeline_id"`
	MatchID     string    `json:"match_id"`
	IsHelpful   bool      `json:"is_helpful"`
	SubmittedAt time.Time `json:"submitted_at"`
	RequestID   string    `json:"request_id,omitempty"`
}

// Publisher sends feedback to the match-feedback topic.
type Publisher struct {
	publisher kafka.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
	logger    *slog.Logger
}

func NewPublisher(p kafka.Publisher, m *metrics.Metrics) *Publisher {
	return &Publisher{
		publisher: p,
		metrics:   m,
		now:       time.Now,
		logger:    slog.Default().With("component", "feedback-publisher"),
	}
}

// Submit publishes one feedback record keyed by timeline. A zero
// SubmittedAt is stamped with the current time.
func (p *Publisher) Submit(ctx context.Context, fb Feedback) error {
	if fb.SubmittedAt.IsZero() {
		fb.SubmittedAt = p.now().UTC()
	}
	if err := p.publisher.Publish(ctx, kafka.Event{Key: fb.TimelineID, Value: fb}); err != nil {
		return fmt.Errorf("submitting feedback: %w: %w", apperrors.ErrBoundaryUnavailable, err)
	}
	p.metrics.FeedbackSubmittedTotal.WithLabelValues(strconv.FormatBool(fb.IsHelpful)).Inc()
	p.logger.Debug("feedback submitted",
		"timeline_id", fb.TimelineID,
		"match_id", fb.MatchID,
		"helpful", fb.IsHelpful,
	)
	return nil
}

// Saver persists one record. *Store satisfies it.
type Saver interface {
	Save(ctx context.Context, fb Feedback) error
}

type Store struct {
	db *postgres.Client
}

func NewStore(db *postgres.Client) *Store {
	return &Store{db: db}
}

func (s *Store) Save(ctx context.Context, fb Feedback) error {
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO match_feedback (user_id, timeline_id, match_id, is_helpful, submitted_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		fb.UserID, fb.TimelineID, fb.MatchID, fb.IsHelpful, fb.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("saving feedback for match %s: %w", fb.MatchID, err)
	}
	return nil
}

// HandleMessage decodes feedback messages and saves them. Malformed
// messages are logged and skipped so they do not block the partition. Save
// is retried per retry; if every attempt fails the error is returned and the
// consumer redelivers the message without committing its offset.
func HandleMessage(saver Saver, retry resilience.RetryConfig) kafka.MessageHandler {
	logger := slog.Default().With("component", "feedback-consumer")
	return func(ctx context.Context, _ []byte, value []byte) error {
		fb, err := kafka.DecodeJSON[Feedback](value)
		if err != nil {
			logger.Warn("skipping malformed feedback message", "error", err)
			return nil
		}
		if fb.MatchID == "" || fb.TimelineID == "" {
			logger.Warn("skipping incomplete feedback message", "match_id", fb.MatchID)
			return nil
		}
		if fb.SubmittedAt.IsZero() {
			fb.SubmittedAt = time.Now().UTC()
		}
		return resilience.Retry(ctx, "save-feedback", retry, func() error {
			return saver.Save(ctx, fb)
		})
	}
}
