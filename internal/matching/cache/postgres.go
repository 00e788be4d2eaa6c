package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/ranker"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/postgres"
)

// PostgresStore keeps entries in the matches table, one row per timeline.
// Replace is a single upsert, so concurrent writers resolve last-write-wins.
type PostgresStore struct {
	client *postgres.Client
}

func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

func (s *PostgresStore) Lookup(ctx context.Context, timelineID string) (*Entry, bool, error) {
	var (
		entry Entry
		data  []byte
	)
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT timeline_id, match_limit, match_data, updated_at FROM matches WHERE timeline_id = $1`,
		timelineID,
	).Scan(&entry.TimelineID, &entry.Limit, &data, &entry.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying cached matches: %w", err)
	}
	var matches []ranker.ScoredMatch
	if err := json.Unmarshal(data, &matches); err != nil {
		return nil, false, fmt.Errorf("decoding cached matches: %w", err)
	}
	entry.Matches = matches
	return &entry, true, nil
}

func (s *PostgresStore) Replace(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry.Matches)
	if err != nil {
		return fmt.Errorf("encoding matches: %w", err)
	}
	if _, err := s.client.DB.ExecContext(ctx,
		`INSERT INTO matches (timeline_id, match_limit, match_data, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (timeline_id) DO UPDATE SET
			match_limit = EXCLUDED.match_limit,
			match_data  = EXCLUDED.match_data,
			updated_at  = EXCLUDED.updated_at`,
		entry.TimelineID, entry.Limit, data, entry.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upserting cached matches: %w", err)
	}
	return nil
}

func (s *PostgresStore) Invalidate(ctx context.Context, timelineID string) error {
	if _, err := s.client.DB.ExecContext(ctx, `DELETE FROM matches WHERE timeline_id = $1`, timelineID); err != nil {
		return fmt.Errorf("deleting cached matches: %w", err)
	}
	return nil
}
