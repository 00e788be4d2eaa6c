package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

const (
	defaultTopDiagnoses = 10
	maxTopDiagnoses     = 100
)

// Handler serves the live aggregate. Counters change on every event, so
// responses are marked uncacheable.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats serves GET /api/v1/analytics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.aggregator.Stats())
}

// Diagnoses serves GET /api/v1/analytics/diagnoses?top=N, the most frequent
// top-ranked diagnoses since the last restore.
func (h *Handler) Diagnoses(w http.ResponseWriter, r *http.Request) {
	top := defaultTopDiagnoses
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "top must be a positive integer"})
			return
		}
		top = min(n, maxTopDiagnoses)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"diagnoses": h.aggregator.TopDiagnoses(top)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
