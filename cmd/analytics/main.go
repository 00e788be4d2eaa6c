// Command analytics starts the standalone match analytics service.
//
// It consumes match events from Kafka, aggregates them in memory (request
// totals, cache hit rate, degraded and empty results, latency percentiles,
// top diagnoses), snapshots the aggregate to Postgres, and exposes it at
// GET /api/v1/analytics for dashboards.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/postgres"
)

// main restores the last snapshot, starts the consumer and the periodic
// snapshot loop, and serves the HTTP API until SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Analytics.Port)

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	snapshots := snapshot.NewStore(db)
	latest, err := snapshots.LatestSnapshot(ctx)
	switch {
	case err != nil:
		slog.Warn("could not load analytics snapshot, starting empty", "error", err)
	case latest != nil:
		aggregator.Restore(*latest)
		slog.Info("analytics restored from snapshot", "total_matches", latest.TotalMatches)
	}
	snapshotDone := snapshots.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.MatchEvents, analytics.HandleEvent(aggregator))
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics consumer started", "topic", cfg.Kafka.Topics.MatchEvents)

	checker := health.NewChecker("analytics")
	checker.Register("postgres", health.PingCheck(db.Ping))
	checker.RegisterOptional("kafka", health.PingCheck(func(ctx context.Context) error {
		return kafka.Ping(ctx, cfg.Kafka.Brokers)
	}))

	analyticsHandler := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /api/v1/analytics/diagnoses", analyticsHandler.Diagnoses)
	mux.HandleFunc("GET /api/v1/analytics/history", snapshot.HistoryHandler(snapshots))
	mux.HandleFunc("GET /health", checker.Handler())
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Analytics.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		stop()
	}

	<-consumerDone
	if err := consumer.Close(); err != nil {
		slog.Error("analytics consumer close error", "error", err)
	}
	<-snapshotDone
	slog.Info("analytics service stopped")
}
