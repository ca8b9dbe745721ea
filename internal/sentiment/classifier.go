// Package sentiment scores review text as positive or negative.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/review"
)

var (
	// ErrEmptyText indicates a review with no text to classify
	ErrEmptyText = errors.New("empty review text")

	// ErrClassifyFailed indicates the backend could not produce a prediction
	ErrClassifyFailed = errors.New("classification failed")
)

// Class indexes of a two-class distribution.
const (
	ClassNegative = 0
	ClassPositive = 1
)

// Prediction is a two-class probability distribution and its argmax label.
type Prediction struct {
	Label         string
	Probabilities [2]float64 // negative, positive
}

// Confidence is the probability of the predicted label.
func (p Prediction) Confidence() float64 {
	if p.Label == review.LabelPositive {
		return p.Probabilities[ClassPositive]
	}
	return p.Probabilities[ClassNegative]
}

// FromProbabilities builds a prediction from class probabilities. Ties go to
// the negative class.
func FromProbabilities(neg, pos float64) Prediction {
	p := Prediction{Label: review.LabelNegative, Probabilities: [2]float64{neg, pos}}
	if pos > neg {
		p.Label = review.LabelPositive
	}
	return p
}

// FromLogits applies a softmax to two logits.
func FromLogits(neg, pos float64) Prediction {
	m := math.Max(neg, pos)
	en, ep := math.Exp(neg-m), math.Exp(pos-m)
	sum := en + ep
	return FromProbabilities(en/sum, ep/sum)
}

// Classifier predicts the sentiment of one text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// New returns the classifier selected by cfg.Backend.
func New(cfg config.SentimentConfig) (Classifier, error) {
	switch cfg.Backend {
	case "tei":
		return NewTEIClassifier(cfg)
	case "lexicon":
		return NewLexiconClassifier(), nil
	default:
		return nil, fmt.Errorf("unknown sentiment backend %q", cfg.Backend)
	}
}

// Truncate keeps at most maxTokens whitespace-separated tokens.
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	fields := strings.Fields(text)
	if len(fields) <= maxTokens {
		return text
	}
	return strings.Join(fields[:maxTokens], " ")
}
