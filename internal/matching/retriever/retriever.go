// Package retriever finds reference cases near a query vector using
// pgvector's cosine distance.
package retriever

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/postgres"
	"github.com/pgvector/pgvector-go"
)

// Retriever is implemented by Store and by test fakes.
type Retriever interface {
	Retrieve(ctx context.Context, vector []float32, threshold float64, maxCandidates int) ([]ranker.Candidate, error)
}

type Store struct {
	client *postgres.Client
	logger *slog.Logger
}

func New(client *postgres.Client) *Store {
	return &Store{
		client: client,
		logger: slog.Default().With("component", "case-retriever"),
	}
}

// <=> is cosine distance, so 1 - distance is cosine similarity.
const searchQuery = `
	SELECT id, diagnosis_label, symptoms, 1 - (embedding <=> $1) AS similarity
	FROM reference_cases
	WHERE 1 - (embedding <=> $1) > $2
	ORDER BY embedding <=> $1
	LIMIT $3`

// Retrieve returns up to maxCandidates cases whose similarity to vector
// exceeds threshold, nearest first. Errors wrap ErrBoundaryUnavailable.
func (s *Store) Retrieve(ctx context.Context, vector []float32, threshold float64, maxCandidates int) ([]ranker.Candidate, error) {
	if maxCandidates <= 0 {
		return []ranker.Candidate{}, nil
	}

	rows, err := s.client.DB.QueryContext(ctx, searchQuery, pgvector.NewVector(vector), threshold, maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("%w: case store query: %v", apperrors.ErrBoundaryUnavailable, err)
	}
	defer rows.Close()

	candidates := make([]ranker.Candidate, 0, maxCandidates)
	for rows.Next() {
		var (
			id        int64
			diagnosis string
			symptoms  []byte
			sim       float64
		)
		if err := rows.Scan(&id, &diagnosis, &symptoms, &sim); err != nil {
			return nil, fmt.Errorf("%w: scanning case: %v", apperrors.ErrBoundaryUnavailable, err)
		}
		c := ranker.Candidate{
			ID:               strconv.FormatInt(id, 10),
			Diagnosis:        diagnosis,
			VectorSimilarity: sim,
		}
		if c.Symptoms, err = decodeSymptoms(symptoms); err != nil {
			s.logger.Warn("skipping case with malformed symptoms", "case_id", c.ID, "error", err)
			continue
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating cases: %v", apperrors.ErrBoundaryUnavailable, err)
	}

	s.logger.Debug("cases retrieved", "count", len(candidates), "threshold", threshold, "max", maxCandidates)
	return candidates, nil
}

func decodeSymptoms(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var symptoms []string
	if err := json.Unmarshal(raw, &symptoms); err != nil {
		return nil, err
	}
	if symptoms == nil {
		symptoms = []string{}
	}
	return symptoms, nil
}
