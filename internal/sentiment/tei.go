package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/reviewlens/reviewlens/internal/config"
)

// TEIClassifier calls the /predict endpoint of a text-embeddings-inference
// server hosting a sequence classification model.
type TEIClassifier struct {
	model  string
	client *resty.Client
}

type teiRequest struct {
	Inputs   string `json:"inputs"`
	Truncate bool   `json:"truncate"`
}

type teiPrediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewTEIClassifier creates a classifier for the server at cfg.BaseURL.
func NewTEIClassifier(cfg config.SentimentConfig) (*TEIClassifier, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("sentiment base URL required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &TEIClassifier{model: cfg.Model, client: client}, nil
}

func (c *TEIClassifier) Classify(ctx context.Context, text string) (Prediction, error) {
	if strings.TrimSpace(text) == "" {
		return Prediction{}, ErrEmptyText
	}

	var preds []teiPrediction
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(teiRequest{Inputs: text, Truncate: true}).
		SetResult(&preds).
		Post("/predict")
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrClassifyFailed, err)
	}
	if resp.IsError() {
		return Prediction{}, fmt.Errorf("%w: status %d: %s", ErrClassifyFailed, resp.StatusCode(), resp.String())
	}
	return predictionFromLabels(preds)
}

func predictionFromLabels(preds []teiPrediction) (Prediction, error) {
	var (
		probs    [2]float64
		neg, pos bool
	)
	for _, p := range preds {
		switch strings.ToLower(p.Label) {
		case "negative", "label_0":
			probs[ClassNegative], neg = p.Score, true
		case "positive", "label_1":
			probs[ClassPositive], pos = p.Score, true
		}
	}
	switch {
	case neg && pos:
	case pos:
		probs[ClassNegative] = 1 - probs[ClassPositive]
	case neg:
		probs[ClassPositive] = 1 - probs[ClassNegative]
	default:
		return Prediction{}, fmt.Errorf("%w: no sentiment labels in response", ErrClassifyFailed)
	}
	return FromProbabilities(probs[ClassNegative], probs[ClassPositive]), nil
}
