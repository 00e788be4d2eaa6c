package symptom

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultWeight applies to any token missing from a WeightTable.
const DefaultWeight = 1.0

// WeightTable maps symptom tokens to positive severity weights. It is built
// once and never mutated, so a single instance is shared by all requests.
type WeightTable struct {
	weights map[string]float64
}

// NewWeightTable copies weights, normalizing every key. Weights must be
// positive and keys must normalize to a non-empty token.
func NewWeightTable(weights map[string]float64) (*WeightTable, error) {
	t := &WeightTable{weights: make(map[string]float64, len(weights))}
	for k, w := range weights {
		tok := Token(k)
		if tok == "" {
			return nil, fmt.Errorf("weight key %q is empty after normalization", k)
		}
		if w <= 0 {
			return nil, fmt.Errorf("weight for %q must be positive, got %v", k, w)
		}
		t.weights[tok] = w
	}
	return t, nil
}

// DefaultWeights returns the built-in severity table.
func DefaultWeights() *WeightTable {
	t, err := NewWeightTable(defaultWeights)
	if err != nil {
		panic(fmt.Sprintf("symptom: invalid built-in weights: %v", err))
	}
	return t
}

// Weight returns the weight for an already-normalized token.
func (t *WeightTable) Weight(token string) float64 {
	if t == nil {
		return DefaultWeight
	}
	if w, ok := t.weights[token]; ok {
		return w
	}
	return DefaultWeight
}

func (t *WeightTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.weights)
}

type weightsFile struct {
	Replace bool               `yaml:"replace"`
	Weights map[string]float64 `yaml:"weights"`
}

// LoadWeights reads a YAML file of the form
//
//	replace: false
//	weights:
//	  muscle_wasting: 3.0
//
// Entries override the built-in table unless replace is true, in which case
// the file is the whole table. An empty path returns DefaultWeights.
func LoadWeights(path string) (*WeightTable, error) {
	if path == "" {
		return DefaultWeights(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading weights file: %w", err)
	}
	var f weightsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing weights file: %w", err)
	}

	merged := make(map[string]float64, len(defaultWeights)+len(f.Weights))
	if !f.Replace {
		for k, w := range defaultWeights {
			merged[k] = w
		}
	}
	for k, w := range f.Weights {
		merged[k] = w
	}
	t, err := NewWeightTable(merged)
	if err != nil {
		return nil, fmt.Errorf("weights file %s: %w", path, err)
	}
	return t, nil
}
