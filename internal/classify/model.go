package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NameModel is the persisted classifier artifact produced by training.
// It keeps an exact normalized-name lookup plus per-label token weights
// for names never seen verbatim.
type NameModel struct {
	// Labels is the vocabulary the model was trained against, in label-id
	// order.
	Labels []string `json:"labels"`
	// Exact maps a normalized transaction name to its majority label.
	Exact map[string]string `json:"exact"`
	// Tokens holds, per label, the relative weight of each token seen in
	// that label's training names.
	Tokens map[string]map[string]float64 `json:"tokens"`
}

// LoadModel reads a model artifact from disk.
func LoadModel(path string) (*NameModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading model artifact: %w", err)
	}

	var model NameModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("error parsing model artifact: %w", err)
	}
	return &model, nil
}

// Save persists the model artifact to disk.
func (m *NameModel) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling model artifact: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("error creating model directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing model artifact: %w", err)
	}
	return nil
}

// Name identifies the classifier for logging.
func (m *NameModel) Name() string { return "model" }

// Classify answers from the exact-name lookup first, then falls back to
// token-weight scoring across the vocabulary.
func (m *NameModel) Classify(_ context.Context, name string) ([]Prediction, error) {
	text := Normalize(name)
	if text == "" {
		return nil, nil
	}

	if label, ok := m.Exact[text]; ok {
		return []Prediction{{Label: label, Score: 1.0}}, nil
	}

	tokens := strings.Fields(text)
	var preds []Prediction
	for _, label := range m.Labels {
		weights := m.Tokens[label]
		if len(weights) == 0 {
			continue
		}
		score := 0.0
		for _, token := range tokens {
			score += weights[token]
		}
		if score > 0 {
			preds = append(preds, Prediction{Label: label, Score: score / float64(len(tokens))})
		}
	}

	sortPredictions(preds)
	return preds, nil
}

// sortPredictions orders predictions best first, keeping submission order
// for equal scores so earlier labels win ties.
func sortPredictions(preds []Prediction) {
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Score > preds[j].Score
	})
}
