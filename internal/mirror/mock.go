package mirror

import "context"

// MockWriter is a test double for Writer.
type MockWriter struct {
	Docs      map[string]Document
	UpsertErr error
	IndexErr  error
	Indexed   bool
	Closed    bool
}

// NewMockWriter creates an empty MockWriter.
func NewMockWriter() *MockWriter {
	return &MockWriter{Docs: make(map[string]Document)}
}

func (m *MockWriter) EnsureIndexes(_ context.Context) error {
	if m.IndexErr != nil {
		return m.IndexErr
	}
	m.Indexed = true
	return nil
}

func (m *MockWriter) Upsert(_ context.Context, docs []Document) (int, error) {
	if m.UpsertErr != nil {
		return 0, m.UpsertErr
	}
	for _, d := range docs {
		m.Docs[d.ReviewID] = d
	}
	return len(docs), nil
}

func (m *MockWriter) Close(_ context.Context) error {
	m.Closed = true
	return nil
}
