// Package classify provides the Classifier and Trainer capabilities: the
// pluggable text classifier that labels transaction names with taxonomy
// subcategories, the trainer that rebuilds it from the ledger, and the
// atomically-swappable handle the rest of the system reads it through.
package classify

import (
	"context"
	"strings"
	"sync/atomic"
)

// Prediction is one candidate label with its confidence score. Callers
// consult only the first prediction of a result.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classifier maps a transaction name to an ordered sequence of label
// predictions. An empty result means the classifier has no guess; it is
// never an error.
type Classifier interface {
	// Classify returns predictions for the given transaction name,
	// best first.
	Classify(ctx context.Context, name string) ([]Prediction, error)

	// Name identifies the classifier for logging.
	Name() string
}

// Handle is an atomically-replaceable classifier reference. Readers always
// see a complete classifier snapshot; a training task swaps in the new
// classifier with a single store, so no lock is shared with taxonomy
// state.
type Handle struct {
	current atomic.Pointer[holder]
}

type holder struct {
	classifier Classifier
}

// NewHandle creates a handle, optionally seeded with a classifier.
func NewHandle(c Classifier) *Handle {
	h := &Handle{}
	if c != nil {
		h.Swap(c)
	}
	return h
}

// Load returns the active classifier, or nil before initialization.
func (h *Handle) Load() Classifier {
	if v := h.current.Load(); v != nil {
		return v.classifier
	}
	return nil
}

// Swap publishes c as the active classifier for all future reads.
func (h *Handle) Swap(c Classifier) {
	h.current.Store(&holder{classifier: c})
}

// Normalize canonicalizes a transaction name for matching: lower-cased,
// trimmed, inner whitespace collapsed.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
