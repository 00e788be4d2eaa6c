package scorer

import (
	"math/rand"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/matching/symptom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefault() *Scorer {
	return New(symptom.DefaultWeights())
}

func TestScoreConcreteScenarios(t *testing.T) {
	s := newDefault()

	got := s.Score(
		symptom.SymptomSet{"headache", "high_fever"},
		symptom.SymptomSet{"headache", "high_fever", "nausea"},
	)
	assert.InDelta(t, 2.0/3.0, got, 1e-9)

	got = s.Score(
		symptom.SymptomSet{"muscle_wasting", "itching"},
		symptom.SymptomSet{"muscle_wasting"},
	)
	assert.InDelta(t, 0.75, got, 1e-9)
}

func TestScoreEmpty(t *testing.T) {
	s := newDefault()
	a := symptom.SymptomSet{"headache"}
	assert.Equal(t, 0.0, s.Score(a, nil))
	assert.Equal(t, 0.0, s.Score(nil, a))
	assert.Equal(t, 0.0, s.Score(symptom.SymptomSet{}, symptom.SymptomSet{}))
}

func TestScoreSelfMatch(t *testing.T) {
	s := newDefault()
	a := symptom.SymptomSet{"coma", "itching", "unknown_token"}
	assert.Equal(t, 1.0, s.Score(a, a))
}

func TestScoreUnknownTokensWeighOne(t *testing.T) {
	s := New(nil)
	got := s.Score(symptom.SymptomSet{"a", "b"}, symptom.SymptomSet{"b", "c", "d"})
	assert.InDelta(t, 0.25, got, 1e-9)
}

func TestScoreProperties(t *testing.T) {
	weights, err := symptom.NewWeightTable(map[string]float64{
		"a": 0.5, "b": 3, "c": 1, "d": 2, "e": 7.5, "f": 1.25,
	})
	require.NoError(t, err)
	s := New(weights)
	vocab := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	rng := rand.New(rand.NewSource(42))

	randomSet := func() symptom.SymptomSet {
		var raw []string
		for _, v := range vocab {
			if rng.Intn(2) == 0 {
				raw = append(raw, v)
			}
		}
		return symptom.Normalize(raw)
	}

	for i := 0; i < 500; i++ {
		a, b := randomSet(), randomSet()
		ab, ba := s.Score(a, b), s.Score(b, a)
		assert.InDelta(t, ab, ba, 1e-12, "symmetry for %v %v", a, b)
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 1.0)
		if len(a) > 0 {
			assert.InDelta(t, 1.0, s.Score(a, a), 1e-12)
		}
	}
}

func TestShared(t *testing.T) {
	s := newDefault()
	got := s.Shared(
		symptom.SymptomSet{"nausea", "headache", "fatigue"},
		symptom.SymptomSet{"fatigue", "nausea", "cough"},
	)
	assert.Equal(t, []string{"nausea", "fatigue"}, got)
	assert.Empty(t, s.Shared(symptom.SymptomSet{"x"}, nil))
	assert.NotNil(t, s.Shared(nil, nil))
}
