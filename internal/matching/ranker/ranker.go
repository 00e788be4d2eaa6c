// Package ranker blends vector similarity with weighted symptom overlap and
// orders candidate cases by the result.
package ranker

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/scorer"
	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/symptom"
)

const maxExplained = 3

// Candidate is a reference case returned by the retriever, already scored
// by the vector store.
type Candidate struct {
	ID               string
	Diagnosis        string
	Symptoms         []string
	VectorSimilarity float64
}

// ScoredMatch is one ranked result as returned to callers and cached.
type ScoredMatch struct {
	MatchID     string   `json:"match_id"`
	Similarity  float64  `json:"similarity"`
	Diagnosis   string   `json:"diagnosis"`
	Symptoms    []string `json:"symptoms"`
	Explanation string   `json:"explanation,omitempty"`
}

// CandidateScore is the per-signal view of one candidate, used by the debug
// path.
type CandidateScore struct {
	MatchID           string   `json:"match_id"`
	Diagnosis         string   `json:"diagnosis"`
	VectorSimilarity  float64  `json:"vector_similarity"`
	JaccardSimilarity float64  `json:"jaccard_similarity"`
	HybridScore       float64  `json:"hybrid_score"`
	SharedSymptoms    []string `json:"symptoms_match"`
}

// Weights are the blend coefficients for the two signals.
type Weights struct {
	Vector  float64
	Lexical float64
}

// DefaultWeights favour the embedding signal and use overlap as a lexical
// correction.
var DefaultWeights = Weights{Vector: 0.6, Lexical: 0.4}

// Ranker combines a Scorer with blend Weights. It is safe for concurrent use.
type Ranker struct {
	scorer  *scorer.Scorer
	weights Weights
}

// New returns a Ranker blending with w.
func New(s *scorer.Scorer, w Weights) *Ranker {
	return &Ranker{scorer: s, weights: w}
}

type scored struct {
	candidate Candidate
	vector    float64
	jaccard   float64
	hybrid    float64
	shared    []string
}

func (r *Ranker) score(user symptom.SymptomSet, c Candidate) scored {
	theirs := symptom.Normalize(c.Symptoms)
	vector := clamp01(c.VectorSimilarity)
	jaccard := r.scorer.Score(user, theirs)
	return scored{
		candidate: c,
		vector:    vector,
		jaccard:   jaccard,
		hybrid:    r.weights.Vector*vector + r.weights.Lexical*jaccard,
		shared:    r.scorer.Shared(user, theirs),
	}
}

// Rank scores every candidate, sorts by unrounded hybrid score descending
// keeping retrieval order for ties, and truncates to limit. Reported scores
// are rounded to four places. A limit of zero or less
// keeps every candidate.
func (r *Ranker) Rank(user symptom.SymptomSet, candidates []Candidate, limit int) []ScoredMatch {
	all := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		all = append(all, r.score(user, c))
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].hybrid > all[j].hybrid
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	result := make([]ScoredMatch, 0, len(all))
	for _, s := range all {
		symptoms := s.candidate.Symptoms
		if symptoms == nil {
			symptoms = []string{}
		}
		result = append(result, ScoredMatch{
			MatchID:     s.candidate.ID,
			Similarity:  round4(s.hybrid),
			Diagnosis:   s.candidate.Diagnosis,
			Symptoms:    symptoms,
			Explanation: Explain(s.shared),
		})
	}
	return result
}

// Breakdown reports each signal per candidate in retrieval order. Hybrid
// scores are computed exactly as Rank computes them.
func (r *Ranker) Breakdown(user symptom.SymptomSet, candidates []Candidate) []CandidateScore {
	out := make([]CandidateScore, 0, len(candidates))
	for _, c := range candidates {
		s := r.score(user, c)
		out = append(out, CandidateScore{
			MatchID:           c.ID,
			Diagnosis:         c.Diagnosis,
			VectorSimilarity:  s.vector,
			JaccardSimilarity: round4(s.jaccard),
			HybridScore:       round4(s.hybrid),
			SharedSymptoms:    s.shared,
		})
	}
	return out
}

// Explain renders up to three shared tokens and a count of the rest.
func Explain(shared []string) string {
	if len(shared) == 0 {
		return "No shared symptoms."
	}
	n := min(len(shared), maxExplained)
	explanation := "Shared symptoms: " + strings.Join(shared[:n], ", ")
	if extra := len(shared) - maxExplained; extra > 0 {
		explanation += fmt.Sprintf(" and %d more.", extra)
	}
	return explanation
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
