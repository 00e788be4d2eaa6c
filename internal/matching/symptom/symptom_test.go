package symptom

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want SymptomSet
	}{
		{"nil", nil, SymptomSet{}},
		{"empty strings", []string{"", "   "}, SymptomSet{}},
		{"case and trim", []string{"  Headache ", "HIGH FEVER"}, SymptomSet{"headache", "high_fever"}},
		{"internal whitespace", []string{"joint \t  pain"}, SymptomSet{"joint_pain"}},
		{"underscore runs", []string{"spotting_ urination", "dischromic _patches"}, SymptomSet{"spotting_urination", "dischromic_patches"}},
		{"duplicates keep first", []string{"nausea", "Fatigue", "NAUSEA", "fatigue"}, SymptomSet{"nausea", "fatigue"}},
		{"accents folded", []string{"Café Fever"}, SymptomSet{"cafe_fever"}},
		{"punctuation kept", []string{"toxic look (typhos)"}, SymptomSet{"toxic_look_(typhos)"}},
		{"non ascii only", []string{"頭痛"}, SymptomSet{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize([]string{"Muscle Wasting", "itching", "Skin  Rash"})
	assert.Equal(t, once, Normalize(once))
}

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, 3.0, w.Weight("muscle_wasting"))
	assert.Equal(t, 2.0, w.Weight("spotting_urination"))
	assert.Equal(t, 1.0, w.Weight("itching"))
	assert.Equal(t, DefaultWeight, w.Weight("not_in_table"))
	assert.Greater(t, w.Len(), 100)
}

func TestNilWeightTable(t *testing.T) {
	var w *WeightTable
	assert.Equal(t, DefaultWeight, w.Weight("coma"))
}

func TestNewWeightTableRejectsBadEntries(t *testing.T) {
	_, err := NewWeightTable(map[string]float64{"coma": 0})
	assert.ErrorContains(t, err, "must be positive")

	_, err = NewWeightTable(map[string]float64{"  ": 1})
	assert.ErrorContains(t, err, "empty after normalization")
}

func TestLoadWeights(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty path uses defaults", func(t *testing.T) {
		w, err := LoadWeights("")
		require.NoError(t, err)
		assert.Equal(t, 3.0, w.Weight("coma"))
	})

	t.Run("merge", func(t *testing.T) {
		path := filepath.Join(dir, "merge.yaml")
		require.NoError(t, os.WriteFile(path, []byte("weights:\n  Itching: 2.5\n  rare thing: 4\n"), 0o644))
		w, err := LoadWeights(path)
		require.NoError(t, err)
		assert.Equal(t, 2.5, w.Weight("itching"))
		assert.Equal(t, 4.0, w.Weight("rare_thing"))
		assert.Equal(t, 3.0, w.Weight("coma"))
	})

	t.Run("replace", func(t *testing.T) {
		path := filepath.Join(dir, "replace.yaml")
		require.NoError(t, os.WriteFile(path, []byte("replace: true\nweights:\n  headache: 2\n"), 0o644))
		w, err := LoadWeights(path)
		require.NoError(t, err)
		assert.Equal(t, 1, w.Len())
		assert.Equal(t, DefaultWeight, w.Weight("coma"))
	})

	t.Run("negative weight", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("weights:\n  headache: -1\n"), 0o644))
		_, err := LoadWeights(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadWeights(filepath.Join(dir, "nope.yaml"))
		assert.ErrorContains(t, err, "reading weights file")
	})
}
