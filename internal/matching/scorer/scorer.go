// Package scorer computes severity-weighted Jaccard overlap between two
// symptom sets.
package scorer

import "github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/symptom"

// Scorer weighs shared symptoms by severity. It holds no mutable state.
type Scorer struct {
	weights *symptom.WeightTable
}

// New returns a Scorer over weights. A nil table weighs every token 1.0.
func New(weights *symptom.WeightTable) *Scorer {
	return &Scorer{weights: weights}
}

// Score returns the weighted Jaccard similarity of a and b in [0, 1]. If
// either set is empty the score is 0. Both sets must already be normalized.
func (s *Scorer) Score(a, b symptom.SymptomSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	inA := make(map[string]struct{}, len(a))
	var union, inter float64
	for _, tok := range a {
		if _, dup := inA[tok]; dup {
			continue
		}
		inA[tok] = struct{}{}
		union += s.weights.Weight(tok)
	}

	seenB := make(map[string]struct{}, len(b))
	for _, tok := range b {
		if _, dup := seenB[tok]; dup {
			continue
		}
		seenB[tok] = struct{}{}
		w := s.weights.Weight(tok)
		if _, ok := inA[tok]; ok {
			inter += w
		} else {
			union += w
		}
	}

	if union == 0 {
		return 0
	}
	return inter / union
}

// Shared returns the tokens present in both sets, in the order of a.
func (s *Scorer) Shared(a, b symptom.SymptomSet) []string {
	inB := make(map[string]struct{}, len(b))
	for _, tok := range b {
		inB[tok] = struct{}{}
	}
	shared := make([]string, 0)
	for _, tok := range a {
		if _, ok := inB[tok]; ok {
			shared = append(shared, tok)
			delete(inB, tok)
		}
	}
	return shared
}
