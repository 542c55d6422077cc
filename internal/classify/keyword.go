package classify

import (
	"context"
	"fmt"
	"os"
	"strings"

	"ledgercat/internal/logging"

	"gopkg.in/yaml.v3"
)

// KeywordRule maps one label to the keywords that select it.
type KeywordRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// KeywordRulesConfig is the structure of the optional keywords YAML file.
type KeywordRulesConfig struct {
	Labels []KeywordRule `yaml:"labels"`
}

// KeywordClassifier is the bootstrap classifier used before any model has
// been trained. Every label in the vocabulary matches its own name as a
// keyword; an optional rules file adds further keywords per label.
type KeywordClassifier struct {
	rules []KeywordRule
	log   logging.Logger
}

// NewKeywordClassifier builds a classifier over the given label
// vocabulary. Order matters: earlier labels win ties.
func NewKeywordClassifier(labels []string, log logging.Logger) *KeywordClassifier {
	if log == nil {
		log = logging.NewLogrusAdapter("info", "text")
	}
	rules := make([]KeywordRule, 0, len(labels))
	for _, label := range labels {
		rules = append(rules, KeywordRule{Name: label, Keywords: []string{strings.ToLower(label)}})
	}
	return &KeywordClassifier{rules: rules, log: log}
}

// LoadRules merges extra keywords from a YAML rules file. A missing file
// is not an error. Rules naming labels outside the vocabulary are ignored.
func (c *KeywordClassifier) LoadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.log.WithField("file", path).Debug("Keyword rules file not found")
			return nil
		}
		return fmt.Errorf("error reading keyword rules file: %w", err)
	}

	var config KeywordRulesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("error parsing keyword rules file: %w", err)
	}

	merged := 0
	for _, extra := range config.Labels {
		for i := range c.rules {
			if c.rules[i].Name != extra.Name {
				continue
			}
			for _, keyword := range extra.Keywords {
				c.rules[i].Keywords = append(c.rules[i].Keywords, strings.ToLower(keyword))
			}
			merged++
			break
		}
	}

	c.log.WithFields(
		logging.F("file", path),
		logging.F("rules", merged),
	).Debug("Loaded keyword rules")
	return nil
}

// Name identifies the classifier for logging.
func (c *KeywordClassifier) Name() string { return "keyword" }

// Classify matches keywords as substrings of the normalized transaction
// name. Longer keyword matches score higher; the best match per label is
// kept and results are ordered best first.
func (c *KeywordClassifier) Classify(_ context.Context, name string) ([]Prediction, error) {
	text := Normalize(name)
	if text == "" {
		return nil, nil
	}

	var preds []Prediction
	for _, rule := range c.rules {
		best := 0.0
		for _, keyword := range rule.Keywords {
			if keyword == "" || !strings.Contains(text, keyword) {
				continue
			}
			score := float64(len(keyword)) / float64(len(text))
			if score > best {
				best = score
			}
		}
		if best > 0 {
			preds = append(preds, Prediction{Label: rule.Name, Score: best})
		}
	}

	sortPredictions(preds)
	return preds, nil
}
