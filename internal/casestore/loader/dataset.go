// Package loader seeds the reference_cases table from the training dataset:
// a master CSV of one-hot symptom and label columns, a metadata file naming
// the label columns, and a row-aligned embeddings file.
package loader

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	symptomPrefix    = "sym_"
	labelPrefix      = "label_"
	unknownDiagnosis = "Unknown"
)

// Case is one reference case ready for insertion.
type Case struct {
	PatientID string
	Diagnosis string
	Symptoms  []string
	Embedding []float32
}

type metadata struct {
	LabelCols []string `json:"label_cols"`
}

// ReadLabelColumns returns label_cols from the metadata JSON in file order.
func ReadLabelColumns(r io.Reader) ([]string, error) {
	var m metadata
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return m.LabelCols, nil
}

// ReadEmbeddings decodes a JSON array of vectors and checks each has dim
// components. A dim of zero skips the check.
func ReadEmbeddings(r io.Reader, dim int) ([][]float32, error) {
	var vectors [][]float32
	if err := json.NewDecoder(r).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decoding embeddings: %w", err)
	}
	if dim > 0 {
		for i, v := range vectors {
			if len(v) != dim {
				return nil, fmt.Errorf("embedding %d has %d dimensions, want %d", i, len(v), dim)
			}
		}
	}
	return vectors, nil
}

// ParseCases reads the master CSV and pairs row i with embeddings[i].
// The diagnosis is the first label column, in labelCols order, whose value
// is 1; symptoms are the sym_ columns whose value is 1, prefix stripped.
func ParseCases(r io.Reader, labelCols []string, embeddings [][]float32) ([]Case, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	header = append([]string(nil), header...)

	columns := make(map[string]int, len(header))
	var symptomCols []int
	for i, name := range header {
		name = strings.TrimSpace(name)
		columns[name] = i
		if strings.HasPrefix(name, symptomPrefix) {
			symptomCols = append(symptomCols, i)
		}
	}

	labelIdx := make([]int, 0, len(labelCols))
	for _, label := range labelCols {
		idx, ok := columns[label]
		if !ok {
			return nil, fmt.Errorf("label column %q not found in csv header", label)
		}
		labelIdx = append(labelIdx, idx)
	}

	var cases []Case
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", row, err)
		}
		if row >= len(embeddings) {
			return nil, fmt.Errorf("csv row %d has no embedding (%d embeddings)", row, len(embeddings))
		}

		diagnosis := unknownDiagnosis
		for n, idx := range labelIdx {
			if isOne(record[idx]) {
				diagnosis = strings.TrimPrefix(labelCols[n], labelPrefix)
				break
			}
		}

		symptoms := make([]string, 0)
		for _, idx := range symptomCols {
			if isOne(record[idx]) {
				symptoms = append(symptoms, strings.TrimPrefix(strings.TrimSpace(header[idx]), symptomPrefix))
			}
		}

		cases = append(cases, Case{
			PatientID: fmt.Sprintf("pat_%d", row),
			Diagnosis: diagnosis,
			Symptoms:  symptoms,
			Embedding: embeddings[row],
		})
	}

	if len(cases) != len(embeddings) {
		return nil, fmt.Errorf("csv has %d rows but %d embeddings", len(cases), len(embeddings))
	}
	return cases, nil
}

// isOne accepts the encodings pandas writes for a set flag: 1, 1.0, True.
func isOne(v string) bool {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "true") {
		return true
	}
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && f == 1
}
