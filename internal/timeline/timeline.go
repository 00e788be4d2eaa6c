// Package timeline reads patient symptom timelines. Timelines are written by
// another service; this package only looks them up.
package timeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/postgres"
)

type SymptomEntry struct {
	SymptomName string  `json:"symptom_name"`
	Severity    int     `json:"severity"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

type Timeline struct {
	ID       string         `json:"id"`
	UserID   string         `json:"user_id"`
	Title    string         `json:"title"`
	Symptoms []SymptomEntry `json:"symptoms"`
}

// SymptomNames returns the raw symptom names in recorded order.
func (t *Timeline) SymptomNames() []string {
	names := make([]string, 0, len(t.Symptoms))
	for _, s := range t.Symptoms {
		names = append(names, s.SymptomName)
	}
	return names
}

// Getter is the read side used by the match service.
type Getter interface {
	Get(ctx context.Context, id string) (*Timeline, error)
}

type Store struct {
	client *postgres.Client
}

func NewStore(client *postgres.Client) *Store {
	return &Store{client: client}
}

// Get loads a timeline. A missing row is ErrTimelineNotFound; a failed query
// is ErrBoundaryUnavailable.
func (s *Store) Get(ctx context.Context, id string) (*Timeline, error) {
	var (
		t   Timeline
		raw []byte
	)
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT id, user_id, title, symptoms FROM timelines WHERE id = $1`, id,
	).Scan(&t.ID, &t.UserID, &t.Title, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("timeline %s: %w", id, apperrors.ErrTimelineNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying timeline %s: %w: %w", id, apperrors.ErrBoundaryUnavailable, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &t.Symptoms); err != nil {
			return nil, fmt.Errorf("decoding symptoms of timeline %s: %w", id, err)
		}
	}
	return &t, nil
}
