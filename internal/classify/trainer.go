package classify

import (
	"context"
	"fmt"
	"strings"

	"ledgercat/internal/logging"
)

// Example is one training sample: a transaction name and its label.
type Example struct {
	Text  string
	Label string
}

// Trainer rebuilds a classifier from labeled ledger data. The produced
// artifact is persisted to a known path so it can be reloaded at startup.
type Trainer interface {
	// Train builds a new classifier from the examples over the given
	// label vocabulary and persists its artifact.
	Train(ctx context.Context, examples []Example, labels []string) (Classifier, error)
}

// NameTrainer trains a NameModel: per-name majority voting for the exact
// lookup and token frequency weights for the fallback scorer.
type NameTrainer struct {
	modelPath string
	log       logging.Logger
}

// NewNameTrainer creates a trainer that persists its artifact at modelPath.
func NewNameTrainer(modelPath string, log logging.Logger) *NameTrainer {
	if log == nil {
		log = logging.NewLogrusAdapter("info", "text")
	}
	return &NameTrainer{modelPath: modelPath, log: log}
}

// Train implements Trainer.
func (t *NameTrainer) Train(ctx context.Context, examples []Example, labels []string) (Classifier, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("cannot train with an empty label vocabulary")
	}

	vocab := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		vocab[label] = struct{}{}
	}

	// Per-name label votes and per-label token counts.
	votes := make(map[string]map[string]int)
	tokenCounts := make(map[string]map[string]int)
	tokenTotals := make(map[string]int)

	used := 0
	for _, example := range examples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := vocab[example.Label]; !ok {
			continue
		}
		text := Normalize(example.Text)
		if text == "" {
			continue
		}
		used++

		if votes[text] == nil {
			votes[text] = make(map[string]int)
		}
		votes[text][example.Label]++

		if tokenCounts[example.Label] == nil {
			tokenCounts[example.Label] = make(map[string]int)
		}
		for _, token := range strings.Fields(text) {
			tokenCounts[example.Label][token]++
			tokenTotals[example.Label]++
		}
	}

	if used == 0 {
		return nil, fmt.Errorf("no usable training examples")
	}

	model := &NameModel{
		Labels: append([]string(nil), labels...),
		Exact:  make(map[string]string, len(votes)),
		Tokens: make(map[string]map[string]float64, len(tokenCounts)),
	}

	for text, labelVotes := range votes {
		model.Exact[text] = majorityLabel(labelVotes, labels)
	}

	for label, counts := range tokenCounts {
		total := tokenTotals[label]
		weights := make(map[string]float64, len(counts))
		for token, count := range counts {
			weights[token] = float64(count) / float64(total)
		}
		model.Tokens[label] = weights
	}

	if err := model.Save(t.modelPath); err != nil {
		return nil, err
	}

	t.log.WithFields(
		logging.F("examples", used),
		logging.F("names", len(model.Exact)),
		logging.F("labels", len(labels)),
		logging.F("artifact", t.modelPath),
	).Info("Trained classifier model")

	return model, nil
}

// majorityLabel picks the label with the most votes; label-id order breaks
// ties deterministically.
func majorityLabel(labelVotes map[string]int, labels []string) string {
	best, bestCount := "", -1
	for _, label := range labels {
		if count, ok := labelVotes[label]; ok && count > bestCount {
			best, bestCount = label, count
		}
	}
	return best
}
