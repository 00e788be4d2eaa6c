package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/resilience"
)

const maxErrorBody = 512

type embedRequest struct {
	Text     string   `json:"text"`
	Symptoms []string `json:"symptoms"`
}

type embedResponse struct {
	Embedding     []float32       `json:"embedding"`
	Probabilities []float64       `json:"probabilities"`
	DebugInfo     json.RawMessage `json:"debug_info"`
}

// Client talks to POST {url}/embed behind a circuit breaker. Every failure
// is returned wrapped in ErrBoundaryUnavailable.
type Client struct {
	baseURL    string
	dimension  int
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *slog.Logger
}

func NewClient(cfg config.EmbeddingConfig, m *metrics.Metrics) *Client {
	breaker := resilience.NewCircuitBreaker("embedding", resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		ResetTimeout:     cfg.ResetTimeout,
		OnStateChange: func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
		// a cancelled caller says nothing about the service's health
		IsFailure: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
	})
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		dimension:  cfg.Dimension,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		logger:     slog.Default().With("component", "embedding-client"),
	}
}

// Embed requests a vector for symptoms. The response must have exactly the
// configured dimension.
func (c *Client) Embed(ctx context.Context, symptoms []string) (*Embedding, error) {
	var result *Embedding
	err := c.breaker.Execute(func() error {
		emb, err := c.call(ctx, symptoms)
		if err != nil {
			return err
		}
		result = emb
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding service: %v", apperrors.ErrBoundaryUnavailable, err)
	}
	return result, nil
}

func (c *Client) call(ctx context.Context, symptoms []string) (*Embedding, error) {
	if symptoms == nil {
		symptoms = []string{}
	}
	body, err := json.Marshal(embedRequest{
		Text:     strings.Join(symptoms, ", "),
		Symptoms: symptoms,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if c.dimension > 0 && len(out.Embedding) != c.dimension {
		return nil, fmt.Errorf("dimension mismatch: got %d, want %d", len(out.Embedding), c.dimension)
	}

	c.logger.Debug("embedding generated", "symptoms", len(symptoms), "dimension", len(out.Embedding))
	return &Embedding{
		Vector:        out.Embedding,
		Probabilities: out.Probabilities,
		DebugInfo:     out.DebugInfo,
	}, nil
}

// Ping checks GET {url}/health for readiness.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding service health: status %d", resp.StatusCode)
	}
	return nil
}

// BreakerState exposes the circuit state for diagnostics.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.GetState()
}
