package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedbackPayload struct {
	TimelineID string `json:"timeline_id"`
	IsHelpful  bool   `json:"is_helpful"`
}

func TestEncodeAndDecodeJSON(t *testing.T) {
	msg, err := encode(Event{Key: "t1", Value: feedbackPayload{TimelineID: "t1", IsHelpful: true}})
	require.NoError(t, err)
	assert.Equal(t, []byte("t1"), msg.Key)

	decoded, err := DecodeJSON[feedbackPayload](msg.Value)
	require.NoError(t, err)
	assert.Equal(t, feedbackPayload{TimelineID: "t1", IsHelpful: true}, decoded)
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode(Event{Key: "k", Value: make(chan int)})
	assert.Error(t, err)
}

func TestDecodeJSONError(t *testing.T) {
	_, err := DecodeJSON[feedbackPayload]([]byte("{not json"))
	assert.ErrorContains(t, err, "decoding kafka message")
}
