// Package validator checks match API request bodies and reports every
// failing field at once.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching"
	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
)

const (
	maxIDLength      = 128
	maxDebugSymptoms = 100
	maxSymptomLength = 200
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, field := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

func checkID(errs map[string]string, field, value string, required bool) {
	v := strings.TrimSpace(value)
	switch {
	case v == "" && required:
		errs[field] = field + " is required"
	case len(v) > maxIDLength:
		errs[field] = fmt.Sprintf("%s must be at most %d characters", field, maxIDLength)
	}
}

// ValidateMatchRequest checks timeline_id and that limit lies in
// [0, maxLimit]. Zero selects the default limit.
func ValidateMatchRequest(req *matching.MatchRequest, maxLimit int) error {
	errs := make(map[string]string)
	checkID(errs, "timeline_id", req.TimelineID, true)
	if req.Limit < 0 || (maxLimit > 0 && req.Limit > maxLimit) {
		errs["limit"] = fmt.Sprintf("limit must be between 0 and %d", maxLimit)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateDebugRequest requires a timeline_id or a non-empty symptom list.
func ValidateDebugRequest(req *matching.DebugRequest) error {
	errs := make(map[string]string)
	checkID(errs, "timeline_id", req.TimelineID, false)
	if strings.TrimSpace(req.TimelineID) == "" && len(req.Symptoms) == 0 {
		errs["symptoms"] = "must provide either timeline_id or symptoms"
	}
	if len(req.Symptoms) > maxDebugSymptoms {
		errs["symptoms"] = fmt.Sprintf("at most %d symptoms allowed", maxDebugSymptoms)
	} else {
		for i, s := range req.Symptoms {
			if len(s) > maxSymptomLength {
				errs[fmt.Sprintf("symptoms[%d]", i)] = fmt.Sprintf("symptom must be at most %d characters", maxSymptomLength)
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func ValidateFeedbackRequest(req *matching.FeedbackRequest) error {
	errs := make(map[string]string)
	checkID(errs, "timeline_id", req.TimelineID, true)
	checkID(errs, "match_id", req.MatchID, true)
	if req.IsHelpful == nil {
		errs["is_helpful"] = "is_helpful is required"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
