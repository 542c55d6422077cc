package classify

import (
	"context"

	"ledgercat/internal/logging"
)

// Chain tries each classifier in order and returns the first non-empty
// prediction set. A classifier error is logged and treated as "no guess"
// so a flaky remote strategy never blocks the local ones behind it.
type Chain struct {
	classifiers []Classifier
	log         logging.Logger
}

// NewChain composes classifiers in priority order.
func NewChain(log logging.Logger, classifiers ...Classifier) *Chain {
	if log == nil {
		log = logging.NewLogrusAdapter("info", "text")
	}
	return &Chain{classifiers: classifiers, log: log}
}

// Name identifies the classifier for logging.
func (c *Chain) Name() string { return "chain" }

// Classify implements Classifier.
func (c *Chain) Classify(ctx context.Context, name string) ([]Prediction, error) {
	for _, classifier := range c.classifiers {
		preds, err := classifier.Classify(ctx, name)
		if err != nil {
			c.log.WithError(err).WithField("strategy", classifier.Name()).Warn("Classifier strategy failed")
			continue
		}
		if len(preds) > 0 {
			return preds, nil
		}
	}
	return nil, nil
}
