package snapshot

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/analytics"
)

const maxHistory = 100

// Lister is satisfied by *Store.
type Lister interface {
	ListSnapshots(ctx context.Context, limit int) ([]analytics.AggregatedStats, error)
}

// HistoryHandler serves GET /api/v1/analytics/history?limit=N, newest first.
func HistoryHandler(l Lister) http.HandlerFunc {
	logger := slog.Default().With("component", "analytics-history")
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, maxHistory)
		}

		snapshots, err := l.ListSnapshots(r.Context(), limit)
		if err != nil {
			logger.Error("listing snapshots failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"snapshots": snapshots})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
