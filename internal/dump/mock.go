package dump

import (
	"context"
	"io"
	"slices"
)

// MockRunner records commands and writes Output to Stdout.
type MockRunner struct {
	Commands []Command
	Output   map[string]string // arg → stdout when the arg is present; "" is the default
	Fail     map[string]error  // arg → error when the arg is present
}

// NewMockRunner creates a MockRunner.
func NewMockRunner() *MockRunner {
	return &MockRunner{Output: map[string]string{}, Fail: map[string]error{}}
}

func (m *MockRunner) Run(_ context.Context, c Command) error {
	m.Commands = append(m.Commands, c)
	for arg, err := range m.Fail {
		if slices.Contains(c.Args, arg) {
			return err
		}
	}
	if c.Stdout != nil {
		out := m.Output[""]
		for arg, o := range m.Output {
			if arg != "" && slices.Contains(c.Args, arg) {
				out = o
			}
		}
		io.WriteString(c.Stdout, out)
	}
	return nil
}

// MockUploader records uploaded files. Calls lists "prune" and "upload" in
// order.
type MockUploader struct {
	Files    []string
	Calls    []string
	Err      error
	PruneErr error
}

func (m *MockUploader) Prune(_ context.Context) (int, error) {
	m.Calls = append(m.Calls, "prune")
	if m.PruneErr != nil {
		return 0, m.PruneErr
	}
	n := len(m.Files)
	m.Files = nil
	return n, nil
}

func (m *MockUploader) Upload(_ context.Context, files ...string) ([]string, error) {
	m.Calls = append(m.Calls, "upload")
	if m.Err != nil {
		return nil, m.Err
	}
	m.Files = append(m.Files, files...)
	uris := make([]string, len(files))
	for i, f := range files {
		uris[i] = "s3://test/" + f
	}
	return uris, nil
}
