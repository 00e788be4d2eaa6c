package ranker

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/symptom"
)

var benchUser = symptom.Normalize([]string{
	"High Fever", "headache", "joint_pain", "Fatigue", "muscle wasting", "nausea",
})

func benchCandidates(n int) []Candidate {
	pool := []string{"headache", "high_fever", "nausea", "vomiting", "fatigue", "cough", "joint_pain", "itching", "coma"}
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{
			ID:               fmt.Sprint(i),
			Diagnosis:        "Dx",
			Symptoms:         []string{pool[i%len(pool)], pool[(i+3)%len(pool)], pool[(i+5)%len(pool)]},
			VectorSimilarity: float64(i%100) / 100,
		}
	}
	return out
}

func BenchmarkRank(b *testing.B) {
	r := newRanker()
	for _, n := range []int{15, 150, 1500} {
		candidates := benchCandidates(n)
		b.Run(fmt.Sprintf("candidates_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = r.Rank(benchUser, candidates, 10)
			}
		})
	}
}

func BenchmarkRankParallel(b *testing.B) {
	r := newRanker()
	candidates := benchCandidates(30)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = r.Rank(benchUser, candidates, 10)
		}
	})
}
