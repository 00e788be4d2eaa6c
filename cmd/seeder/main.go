// Command seeder applies the schema and loads the reference case dataset.
//
// Usage:
//
//	go run ./cmd/seeder -migrate
//	go run ./cmd/seeder -csv data/ml_master_patients.csv \
//	    -metadata data/rare_match_metadata.json \
//	    -embeddings data/patient_embeddings.json
//
// A load resumes after the cases already stored, so an interrupted run can
// simply be repeated.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/casestore/loader"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	migrate := flag.Bool("migrate", false, "apply the database schema before loading")
	csvPath := flag.String("csv", "", "master patients CSV with sym_* and label_* columns")
	metadataPath := flag.String("metadata", "", "metadata JSON holding label_cols")
	embeddingsPath := flag.String("embeddings", "", "JSON array of row-aligned embedding vectors")
	batchSize := flag.Int("batch", loader.DefaultBatchSize, "rows per insert batch")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg, *migrate, *csvPath, *metadataPath, *embeddingsPath, *batchSize); err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, migrate bool, csvPath, metadataPath, embeddingsPath string, batchSize int) error {
	loading := csvPath != "" || metadataPath != "" || embeddingsPath != ""
	if !migrate && !loading {
		return fmt.Errorf("nothing to do: pass -migrate and/or -csv, -metadata and -embeddings")
	}
	if loading && (csvPath == "" || metadataPath == "" || embeddingsPath == "") {
		return fmt.Errorf("-csv, -metadata and -embeddings must be given together")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrate {
		if err := db.Migrate(ctx, cfg.Embedding.Dimension); err != nil {
			return err
		}
		slog.Info("schema applied", "embedding_dimension", cfg.Embedding.Dimension)
	}
	if !loading {
		return nil
	}

	labels, err := readFile(metadataPath, loader.ReadLabelColumns)
	if err != nil {
		return err
	}
	embeddings, err := readFile(embeddingsPath, func(r io.Reader) ([][]float32, error) {
		return loader.ReadEmbeddings(r, cfg.Embedding.Dimension)
	})
	if err != nil {
		return err
	}
	cases, err := readFile(csvPath, func(r io.Reader) ([]loader.Case, error) {
		return loader.ParseCases(r, labels, embeddings)
	})
	if err != nil {
		return err
	}
	slog.Info("dataset parsed", "cases", len(cases), "label_columns", len(labels))

	res, err := loader.New(loader.NewPostgresWriter(db), batchSize).Load(ctx, cases)
	if err != nil {
		return err
	}
	slog.Info("seeding complete",
		"total", res.Total,
		"skipped", res.Skipped,
		"inserted", res.Inserted,
		"batches", res.Batches,
	)
	return nil
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return parse(f)
}
