package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ledgercat/internal/logging"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClassifier asks the Gemini API for a label when the local
// classifiers have no guess. The prompt carries the current label
// vocabulary so the model can only answer inside it.
type GeminiClassifier struct {
	model   *genai.GenerativeModel
	labels  func() []string
	timeout time.Duration
	log     logging.Logger
}

// NewGeminiClassifier creates a Gemini-backed classifier. labels supplies
// the vocabulary at classification time, so taxonomy edits are picked up
// without rebuilding the client.
func NewGeminiClassifier(ctx context.Context, apiKey, modelName string, timeout time.Duration, labels func() []string, log logging.Logger) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not set")
	}
	if log == nil {
		log = logging.NewLogrusAdapter("info", "text")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClassifier{
		model:   client.GenerativeModel(modelName),
		labels:  labels,
		timeout: timeout,
		log:     log,
	}, nil
}

// Name identifies the classifier for logging.
func (c *GeminiClassifier) Name() string { return "gemini" }

// Classify prompts Gemini with the transaction name and the label
// vocabulary. Transient API errors are retried with exponential backoff;
// an answer outside the vocabulary yields no prediction.
func (c *GeminiClassifier) Classify(ctx context.Context, name string) ([]Prediction, error) {
	labels := c.labels()
	if len(labels) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`Classify the following bank transaction name:
Name: %s

Assign it to exactly one of the following labels:
%s

Respond in this format:
Label: [Selected Label]`, name, strings.Join(labels, ", "))

	var resp *genai.GenerateContentResponse
	operation := func() error {
		var err error
		resp, err = c.model.GenerateContent(ctx, genai.Text(prompt))
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, nil
	}

	answer := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	label := extractLabel(answer, labels)
	if label == "" {
		c.log.WithField("name", name).Debug("Gemini returned no usable label")
		return nil, nil
	}

	c.log.WithFields(
		logging.F("name", name),
		logging.F("label", label),
	).Debug("Gemini classified transaction")

	return []Prediction{{Label: label, Score: 1.0}}, nil
}

// extractLabel parses the "Label: X" response line and validates the
// answer against the vocabulary. As a fallback it scans the raw response
// for any vocabulary label.
func extractLabel(response string, labels []string) string {
	var answer string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Label:") {
			answer = strings.TrimSpace(strings.TrimPrefix(line, "Label:"))
			answer = strings.Trim(answer, "[]")
			break
		}
	}

	for _, label := range labels {
		if strings.EqualFold(label, answer) {
			return label
		}
	}

	lower := strings.ToLower(response)
	for _, label := range labels {
		if strings.Contains(lower, strings.ToLower(label)) {
			return label
		}
	}
	return ""
}
