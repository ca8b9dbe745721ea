package sentiment

import (
	"context"
	"errors"
	"strings"
)

// MockClassifier is a test double for Classifier. Texts containing a key of
// Fail return that error; otherwise Predictions is consulted, then Default.
type MockClassifier struct {
	Predictions map[string]Prediction
	Fail        map[string]error
	Default     Prediction
	Calls       []string
}

func (m *MockClassifier) Classify(_ context.Context, text string) (Prediction, error) {
	m.Calls = append(m.Calls, text)
	for k, err := range m.Fail {
		if strings.Contains(text, k) {
			return Prediction{}, err
		}
	}
	if p, ok := m.Predictions[text]; ok {
		return p, nil
	}
	if m.Default.Label == "" {
		return Prediction{}, errors.New("no prediction configured")
	}
	return m.Default, nil
}
