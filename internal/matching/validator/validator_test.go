package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching"
	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	return ve.Fields
}

func TestValidateMatchRequest(t *testing.T) {
	assert.NoError(t, ValidateMatchRequest(&matching.MatchRequest{TimelineID: "t1"}, 50))
	assert.NoError(t, ValidateMatchRequest(&matching.MatchRequest{TimelineID: "t1", Limit: 50}, 50))

	err := ValidateMatchRequest(&matching.MatchRequest{TimelineID: "  ", Limit: 51}, 50)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f := fields(t, err)
	assert.Contains(t, f, "timeline_id")
	assert.Contains(t, f, "limit")

	err = ValidateMatchRequest(&matching.MatchRequest{TimelineID: strings.Repeat("x", 129), Limit: -1}, 50)
	assert.Len(t, fields(t, err), 2)
}

func TestValidateDebugRequest(t *testing.T) {
	assert.NoError(t, ValidateDebugRequest(&matching.DebugRequest{TimelineID: "t1"}))
	assert.NoError(t, ValidateDebugRequest(&matching.DebugRequest{Symptoms: []string{"headache"}}))

	f := fields(t, ValidateDebugRequest(&matching.DebugRequest{}))
	assert.Equal(t, "must provide either timeline_id or symptoms", f["symptoms"])

	f = fields(t, ValidateDebugRequest(&matching.DebugRequest{Symptoms: make([]string, 101)}))
	assert.Contains(t, f["symptoms"], "at most 100")

	f = fields(t, ValidateDebugRequest(&matching.DebugRequest{Symptoms: []string{"ok", strings.Repeat("y", 201)}}))
	assert.Contains(t, f, "symptoms[1]")
}

func TestValidateFeedbackRequest(t *testing.T) {
	yes := true
	assert.NoError(t, ValidateFeedbackRequest(&matching.FeedbackRequest{TimelineID: "t", MatchID: "m", IsHelpful: &yes}))

	f := fields(t, ValidateFeedbackRequest(&matching.FeedbackRequest{}))
	assert.Len(t, f, 3)
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "second", "a": "first"}}
	assert.Equal(t, "a: first; b: second", err.Error())
}
