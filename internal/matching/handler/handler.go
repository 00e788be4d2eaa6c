// Package handler serves the match API over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/auth/token"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/feedback"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/cache"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/service"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/logger"
)

const maxBodyBytes = 1 << 20

// MatchService is the pipeline behind the API. *service.Service satisfies it.
type MatchService interface {
	FindMatches(ctx context.Context, req service.MatchRequest) (*service.MatchResult, error)
	DebugSimilarity(ctx context.Context, req service.DebugRequest) (*service.DebugReport, error)
	InvalidateCache(ctx context.Context, timelineID, userID string) error
	CacheStats() cache.Stats
}

// FeedbackSubmitter accepts feedback records. *feedback.Publisher satisfies it.
type FeedbackSubmitter interface {
	Submit(ctx context.Context, fb feedback.Feedback) error
}

type Handler struct {
	service  MatchService
	feedback FeedbackSubmitter
	maxLimit int
	logger   *slog.Logger
}

func New(svc MatchService, fb FeedbackSubmitter, maxLimit int) *Handler {
	return &Handler{
		service:  svc,
		feedback: fb,
		maxLimit: maxLimit,
		logger:   slog.Default().With("component", "match-handler"),
	}
}

// Match serves POST /api/v1/match.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	var req matching.MatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.ValidateMatchRequest(&req, h.maxLimit); err != nil {
		h.writeErr(w, r, err)
		return
	}

	result, err := h.service.FindMatches(r.Context(), service.MatchRequest{
		TimelineID:   strings.TrimSpace(req.TimelineID),
		UserID:       userID(r.Context()),
		Limit:        req.Limit,
		ForceRefresh: req.ForceRefresh,
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	cacheStatus := "miss"
	if result.CacheHit {
		cacheStatus = "hit"
	}
	w.Header().Set("X-Match-Cache", cacheStatus)
	if result.Degraded {
		w.Header().Set("X-Match-Degraded", "true")
	}
	h.writeJSON(w, http.StatusOK, result.Matches)
}

// DebugSimilarity serves POST /api/v1/debug/similarity.
func (h *Handler) DebugSimilarity(w http.ResponseWriter, r *http.Request) {
	var req matching.DebugRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.ValidateDebugRequest(&req); err != nil {
		h.writeErr(w, r, err)
		return
	}

	report, err := h.service.DebugSimilarity(r.Context(), service.DebugRequest{
		TimelineID: strings.TrimSpace(req.TimelineID),
		Symptoms:   req.Symptoms,
		UserID:     userID(r.Context()),
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// Feedback serves POST /api/v1/feedback.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req matching.FeedbackRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.ValidateFeedbackRequest(&req); err != nil {
		h.writeErr(w, r, err)
		return
	}

	err := h.feedback.Submit(r.Context(), feedback.Feedback{
		UserID:     userID(r.Context()),
		TimelineID: strings.TrimSpace(req.TimelineID),
		MatchID:    strings.TrimSpace(req.MatchID),
		IsHelpful:  *req.IsHelpful,
		RequestID:  logger.RequestID(r.Context()),
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Feedback submitted",
	})
}

// InvalidateCache serves DELETE /api/v1/cache/{timelineID}.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	timelineID := strings.TrimSpace(r.PathValue("timelineID"))
	if timelineID == "" {
		h.writeError(w, http.StatusBadRequest, "timeline_id is required")
		return
	}
	if err := h.service.InvalidateCache(r.Context(), timelineID, userID(r.Context())); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":      "invalidated",
		"timeline_id": timelineID,
	})
}

// CacheStats serves GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.service.CacheStats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":           stats.Hits,
		"misses":         stats.Misses,
		"total":          stats.Hits + stats.Misses,
		"write_failures": stats.WriteFailures,
		"hit_rate":       strconv.FormatFloat(stats.HitRate*100, 'f', 1, 64) + "%",
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeErr maps pipeline errors to responses. Validation failures list
// every field; internal errors are logged and not echoed to the caller.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var validation *validator.ValidationError
	if errors.As(err, &validation) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validation.Fields,
		})
		return
	}

	status := apperrors.HTTPStatusCode(err)
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		h.writeError(w, status, appErr.Message)
	case status == http.StatusNotFound:
		h.writeError(w, status, "timeline not found")
	case status == http.StatusServiceUnavailable:
		logger.FromContext(r.Context()).Warn("request failed on unavailable dependency", "error", err)
		h.writeError(w, status, "service temporarily unavailable")
	default:
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func userID(ctx context.Context) string {
	if p := token.FromContext(ctx); p != nil {
		return p.UserID
	}
	return ""
}
