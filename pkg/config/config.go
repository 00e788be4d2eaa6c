// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Embedding, Matching, Auth, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Cache backends accepted by MatchingConfig.CacheBackend.
const (
	CacheBackendRedis    = "redis"
	CacheBackendPostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Matching  MatchingConfig  `yaml:"matching"`
	Auth      AuthConfig      `yaml:"auth"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	MatchFeedback string `yaml:"matchFeedback"`
	MatchEvents   string `yaml:"matchEvents"`
}

// RedisConfig holds Redis connection and caching parameters. A zero
// CacheTTL keeps match entries until they are replaced or invalidated.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// EmbeddingConfig points at the external embedding service and describes
// the neutral vector substituted when it cannot be reached.
type EmbeddingConfig struct {
	URL              string        `yaml:"url"`
	Timeout          time.Duration `yaml:"timeout"`
	Dimension        int           `yaml:"dimension"`
	FallbackValue    float32       `yaml:"fallbackValue"`
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
}

// MatchingConfig controls retrieval, blending and caching of matches.
type MatchingConfig struct {
	VectorWeight        float64       `yaml:"vectorWeight"`
	LexicalWeight       float64       `yaml:"lexicalWeight"`
	SimilarityThreshold float64       `yaml:"similarityThreshold"`
	OverfetchFactor     int           `yaml:"overfetchFactor"`
	DefaultLimit        int           `yaml:"defaultLimit"`
	MaxLimit            int           `yaml:"maxLimit"`
	DebugCandidates     int           `yaml:"debugCandidates"`
	EmbedTimeout        time.Duration `yaml:"embedTimeout"`
	RetrieveTimeout     time.Duration `yaml:"retrieveTimeout"`
	WeightsFile         string        `yaml:"weightsFile"`
	CacheBackend        string        `yaml:"cacheBackend"`
}

// AuthConfig controls bearer-token authentication and per-principal rate
// limiting.
type AuthConfig struct {
	Enabled          bool          `yaml:"enabled"`
	DefaultRateLimit int           `yaml:"defaultRateLimit"`
	RateLimitWindow  time.Duration `yaml:"rateLimitWindow"`
	AllowOrigins     []string      `yaml:"allowOrigins"`
}

// AnalyticsConfig controls the standalone analytics service.
type AnalyticsConfig struct {
	Port             int           `yaml:"port"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the matching pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	m := c.Matching
	if m.VectorWeight < 0 || m.LexicalWeight < 0 {
		errs = append(errs, errors.New("matching: blend weights must not be negative"))
	}
	if m.VectorWeight+m.LexicalWeight == 0 {
		errs = append(errs, errors.New("matching: blend weights must not both be zero"))
	}
	if m.OverfetchFactor < 1 {
		errs = append(errs, errors.New("matching: overfetchFactor must be at least 1"))
	}
	if m.DefaultLimit < 1 || m.MaxLimit < m.DefaultLimit {
		errs = append(errs, errors.New("matching: need 1 <= defaultLimit <= maxLimit"))
	}
	switch m.CacheBackend {
	case CacheBackendRedis, CacheBackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("matching: unknown cacheBackend %q", m.CacheBackend))
	}
	if c.Embedding.Dimension < 1 {
		errs = append(errs, errors.New("embedding: dimension must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8003,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "rarematch",
			User:            "rarematch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "rarematch-group",
			Topics: KafkaTopics{
				MatchFeedback: "match-feedback",
				MatchEvents:   "match-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 24 * time.Hour,
		},
		Embedding: EmbeddingConfig{
			URL:              "http://127.0.0.1:8004",
			Timeout:          10 * time.Second,
			Dimension:        256,
			FallbackValue:    0.1,
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		},
		Matching: MatchingConfig{
			VectorWeight:        0.6,
			LexicalWeight:       0.4,
			SimilarityThreshold: 0.1,
			OverfetchFactor:     3,
			DefaultLimit:        10,
			MaxLimit:            50,
			DebugCandidates:     5,
			EmbedTimeout:        5 * time.Second,
			RetrieveTimeout:     5 * time.Second,
			CacheBackend:        CacheBackendRedis,
		},
		Auth: AuthConfig{
			Enabled:          true,
			DefaultRateLimit: 60,
			RateLimitWindow:  time.Minute,
			AllowOrigins:     []string{"*"},
		},
		Analytics: AnalyticsConfig{
			Port:             8005,
			SnapshotInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads RM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RM_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("RM_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("RM_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("RM_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("RM_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("RM_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("RM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("RM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("RM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RM_EMBEDDING_URL"); v != "" {
		cfg.Embedding.URL = v
	}
	if v := os.Getenv("RM_MATCHING_WEIGHTS_FILE"); v != "" {
		cfg.Matching.WeightsFile = v
	}
	if v := os.Getenv("RM_MATCHING_CACHE_BACKEND"); v != "" {
		cfg.Matching.CacheBackend = v
	}
	if v := os.Getenv("RM_AUTH_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Auth.Enabled = enabled
		}
	}
	if v := os.Getenv("RM_ANALYTICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Analytics.Port = port
		}
	}
	if v := os.Getenv("RM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RM_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
