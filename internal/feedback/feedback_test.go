package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/resilience"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []kafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

type recordingSaver struct {
	saved    []Feedback
	err      error
	failures int
	calls    int
}

func (s *recordingSaver) Save(_ context.Context, fb Feedback) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("connection reset")
	}
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, fb)
	return nil
}

var fastRetry = resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

func TestSubmitPublishesKeyedByTimeline(t *testing.T) {
	pub := &recordingPublisher{}
	m := metrics.NewNop()
	p := NewPublisher(pub, m)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	err := p.Submit(context.Background(), Feedback{UserID: "u", TimelineID: "t1", MatchID: "m1", IsHelpful: true})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "t1", pub.events[0].Key)
	fb := pub.events[0].Value.(Feedback)
	assert.Equal(t, fixed, fb.SubmittedAt)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FeedbackSubmittedTotal.WithLabelValues("true")))
}

func TestSubmitPublishFailure(t *testing.T) {
	m := metrics.NewNop()
	p := NewPublisher(&recordingPublisher{err: errors.New("broker down")}, m)

	err := p.Submit(context.Background(), Feedback{TimelineID: "t", MatchID: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBoundaryUnavailable)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.FeedbackSubmittedTotal.WithLabelValues("false")))
}

func TestHandleMessage(t *testing.T) {
	saver := &recordingSaver{}
	handle := HandleMessage(saver, fastRetry)
	ctx := context.Background()

	value, err := json.Marshal(Feedback{UserID: "u", TimelineID: "t", MatchID: "m", IsHelpful: false})
	require.NoError(t, err)
	require.NoError(t, handle(ctx, []byte("t"), value))
	require.Len(t, saver.saved, 1)
	assert.Equal(t, "m", saver.saved[0].MatchID)
	assert.False(t, saver.saved[0].SubmittedAt.IsZero())

	assert.NoError(t, handle(ctx, nil, []byte("not json")))
	assert.NoError(t, handle(ctx, nil, []byte(`{"timeline_id":"t"}`)))
	assert.Len(t, saver.saved, 1)

	saver.err = errors.New("db down")
	assert.Error(t, handle(ctx, nil, value))
	assert.Len(t, saver.saved, 1)
}

func TestHandleMessageRetriesSave(t *testing.T) {
	ctx := context.Background()
	value, err := json.Marshal(Feedback{UserID: "u", TimelineID: "t", MatchID: "m", IsHelpful: true})
	require.NoError(t, err)

	t.Run("transient failure recovers", func(t *testing.T) {
		saver := &recordingSaver{failures: 2}
		require.NoError(t, HandleMessage(saver, fastRetry)(ctx, nil, value))
		assert.Equal(t, 3, saver.calls)
		require.Len(t, saver.saved, 1)
	})

	t.Run("persistent failure is returned", func(t *testing.T) {
		saver := &recordingSaver{err: errors.New("db down")}
		err := HandleMessage(saver, fastRetry)(ctx, nil, value)
		require.Error(t, err)
		assert.ErrorContains(t, err, "db down")
		assert.Equal(t, 3, saver.calls)
		assert.Empty(t, saver.saved)
	})
}
