// Command matcher serves the patient match API.
//
// It loads a timeline, embeds its symptoms through the embedding service,
// retrieves nearby reference cases from pgvector, re-ranks them with
// weighted symptom overlap and caches the ranking per timeline. Feedback
// and match events are published to Kafka.
//
// Usage:
//
//	go run ./cmd/matcher [-config configs/development.yaml]
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
	"time"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/auth/token"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/feedback"
	gwmw "github.com/Adithya-Monish-Kumar-K/rarematch/internal/gateway/middleware"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/gateway/router"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/cache"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/embedding"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/handler"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/ranker"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/retriever"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/scorer"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/service"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/symptom"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/timeline"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/resilience"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting match service",
		"port", cfg.Server.Port,
		"cache_backend", cfg.Matching.CacheBackend,
		"auth_enabled", cfg.Auth.Enabled,
	)

	weights, err := symptom.LoadWeights(cfg.Matching.WeightsFile)
	if err != nil {
		slog.Error("failed to load symptom weights", "path", cfg.Matching.WeightsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("symptom weights loaded", "entries", weights.Len())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	checker := health.NewChecker("matcher")
	checker.Register("postgres", health.PingCheck(db.Ping))

	var store cache.Store
	switch cfg.Matching.CacheBackend {
	case config.CacheBackendPostgres:
		store = cache.NewPostgresStore(db)
	default:
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			// Lookups against an unreachable Redis read as misses, so the
			// service still answers, only without caching.
			slog.Warn("redis unavailable at startup, matches will be recomputed", "error", err)
		} else {
			defer redisClient.Close()
			checker.RegisterOptional("redis", health.PingCheck(redisClient.Ping))
			store = cache.NewRedisStore(redisClient, cfg.Redis.CacheTTL)
		}
	}
	if store == nil {
		store = cache.NewPostgresStore(db)
		slog.Info("falling back to postgres match cache")
	}
	matchCache := cache.New(store, m)

	embedder := embedding.NewClient(cfg.Embedding, m)
	checker.RegisterOptional("embedding", health.PingCheck(embedder.Ping))

	eventProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MatchEvents)
	defer eventProducer.Close()
	collector := analytics.NewCollector(eventProducer, 10000)
	collector.Start(ctx)
	slog.Info("match event collector started", "topic", cfg.Kafka.Topics.MatchEvents)

	feedbackProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MatchFeedback)
	defer feedbackProducer.Close()
	feedbackConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.MatchFeedback,
		feedback.HandleMessage(feedback.NewStore(db), resilience.RetryConfig{MaxAttempts: 4, InitialDelay: 200 * time.Millisecond}))
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := feedbackConsumer.Start(ctx); err != nil {
			slog.Error("feedback consumer error", "error", err)
		}
	}()
	checker.RegisterOptional("kafka", health.PingCheck(func(ctx context.Context) error {
		return kafka.Ping(ctx, cfg.Kafka.Brokers)
	}))

	svc := service.New(
		service.ConfigFrom(cfg),
		timeline.NewStore(db),
		embedder,
		retriever.New(db),
		ranker.New(scorer.New(weights), ranker.Weights{
			Vector:  cfg.Matching.VectorWeight,
			Lexical: cfg.Matching.LexicalWeight,
		}),
		matchCache,
		collector,
		m,
	)

	limiter := ratelimit.New(cfg.Auth.RateLimitWindow)
	defer limiter.Stop()

	var verifier gwmw.TokenVerifier
	if cfg.Auth.Enabled {
		verifier = token.NewVerifier(db)
	} else {
		slog.Warn("authentication disabled, requests run as the anonymous principal")
	}

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.New(router.Deps{
			Handler:        handler.New(svc, feedback.NewPublisher(feedbackProducer, m), cfg.Matching.MaxLimit),
			Health:         checker,
			Verifier:       verifier,
			Limiter:        limiter,
			Metrics:        m,
			Auth:           cfg.Auth,
			RequestTimeout: cfg.Server.WriteTimeout,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("match service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		stop()
	}

	// Shutdown returns once in-flight handlers have finished.
	<-shutdownDone
	collector.Close()
	<-consumerDone
	if err := feedbackConsumer.Close(); err != nil {
		slog.Error("feedback consumer close error", "error", err)
	}
	slog.Info("match service stopped")
}
