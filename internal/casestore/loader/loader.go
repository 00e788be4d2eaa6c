package loader

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/resilience"
	"github.com/pgvector/pgvector-go"
)

const DefaultBatchSize = 100

// Writer is the destination of a load. *PostgresWriter satisfies it.
type Writer interface {
	Count(ctx context.Context) (int, error)
	InsertBatch(ctx context.Context, cases []Case) error
}

type Result struct {
	Total    int
	Skipped  int
	Inserted int
	Batches  int
}

type Loader struct {
	writer    Writer
	batchSize int
	retry     resilience.RetryConfig
	pause     time.Duration
	logger    *slog.Logger
}

// New returns a loader writing batches of batchSize. Each batch is retried
// with exponential backoff before the load fails.
func New(w Writer, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{
		writer:    w,
		batchSize: batchSize,
		retry: resilience.RetryConfig{
			MaxAttempts:  4,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		pause:  100 * time.Millisecond,
		logger: slog.Default().With("component", "case-loader"),
	}
}

// Load inserts cases after the ones already stored. Rows are assumed to be
// loaded in dataset order, so the existing row count is where a previous
// run stopped.
func (l *Loader) Load(ctx context.Context, cases []Case) (Result, error) {
	res := Result{Total: len(cases)}

	existing, err := l.writer.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("counting existing cases: %w", err)
	}
	res.Skipped = min(existing, len(cases))
	l.logger.Info("starting case load", "total", len(cases), "skipping", res.Skipped)

	for start := res.Skipped; start < len(cases); start += l.batchSize {
		end := min(start+l.batchSize, len(cases))
		batch := cases[start:end]

		err := resilience.Retry(ctx, "insert-case-batch", l.retry, func() error {
			return l.writer.InsertBatch(ctx, batch)
		})
		if err != nil {
			return res, fmt.Errorf("inserting cases %d-%d: %w", start, end-1, err)
		}
		res.Inserted += len(batch)
		res.Batches++
		l.logger.Info("uploaded batch", "through", end, "total", len(cases))

		if end < len(cases) && l.pause > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(l.pause):
			}
		}
	}

	l.logger.Info("case load complete", "inserted", res.Inserted, "batches", res.Batches)
	return res, nil
}

type PostgresWriter struct {
	db *postgres.Client
}

func NewPostgresWriter(db *postgres.Client) *PostgresWriter {
	return &PostgresWriter{db: db}
}

func (w *PostgresWriter) Count(ctx context.Context) (int, error) {
	var n int
	if err := w.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM reference_cases`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting reference cases: %w", err)
	}
	return n, nil
}

// InsertBatch writes one batch in a transaction. Patient IDs already present
// are left untouched so a retried batch does not fail on its own rows.
func (w *PostgresWriter) InsertBatch(ctx context.Context, cases []Case) error {
	return w.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO reference_cases (patient_id, diagnosis_label, symptoms, embedding)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (patient_id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("preparing case insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range cases {
			symptoms, err := json.Marshal(c.Symptoms)
			if err != nil {
				return fmt.Errorf("encoding symptoms of %s: %w", c.PatientID, err)
			}
			if _, err := stmt.ExecContext(ctx, c.PatientID, c.Diagnosis, symptoms, pgvector.NewVector(c.Embedding)); err != nil {
				return fmt.Errorf("inserting case %s: %w", c.PatientID, err)
			}
		}
		return nil
	})
}
