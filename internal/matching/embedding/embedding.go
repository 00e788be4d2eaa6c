// Package embedding calls the external embedding service that turns a
// symptom list into a fixed-length vector.
package embedding

import (
	"context"
	"encoding/json"
)

// Embedding is a query vector plus whatever diagnostics the service returned.
// Fallback marks the neutral vector substituted when the service failed.
type Embedding struct {
	Vector        []float32       `json:"embedding"`
	Probabilities []float64       `json:"probabilities,omitempty"`
	DebugInfo     json.RawMessage `json:"debug_info,omitempty"`
	Fallback      bool            `json:"fallback"`
}

// Embedder is implemented by Client and by test fakes.
type Embedder interface {
	Embed(ctx context.Context, symptoms []string) (*Embedding, error)
}

// Fallback returns the neutral vector: every component equal to value. It
// points at no region of the space in particular, so vector similarity
// degrades while symptom overlap still discriminates.
func Fallback(dimension int, value float32) *Embedding {
	v := make([]float32, dimension)
	for i := range v {
		v[i] = value
	}
	return &Embedding{Vector: v, Fallback: true}
}
