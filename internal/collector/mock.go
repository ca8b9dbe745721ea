package collector

import (
	"context"
	"sync"
)

// MockSource is a test double for Source. Responses are consumed per app id
// in order; once exhausted the last entry repeats.
type MockSource struct {
	mu        sync.Mutex
	Responses map[string][]MockResponse
	Calls     map[string]int
	Requests  []FetchRequest
}

// MockResponse is one scripted Fetch outcome.
type MockResponse struct {
	Reviews []Fetched
	Err     error
}

// NewMockSource creates an empty MockSource.
func NewMockSource() *MockSource {
	return &MockSource{
		Responses: make(map[string][]MockResponse),
		Calls:     make(map[string]int),
	}
}

// On appends scripted responses for an app id.
func (m *MockSource) On(appID string, responses ...MockResponse) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[appID] = append(m.Responses[appID], responses...)
	return m
}

func (m *MockSource) Fetch(_ context.Context, req FetchRequest) ([]Fetched, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	n := m.Calls[req.AppID]
	m.Calls[req.AppID]++

	script := m.Responses[req.AppID]
	if len(script) == 0 {
		return nil, nil
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	return script[n].Reviews, script[n].Err
}
