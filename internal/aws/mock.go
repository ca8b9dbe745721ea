package aws

import (
	"context"
	"strings"
)

// MockClient is a test double for the Client interface. Objects holds
// bucket/key → local path for everything put or preloaded.
type MockClient struct {
	Identity    *CallerIdentity
	IdentityErr error
	PutErr      error
	DeleteErr   error

	Objects         map[string]string
	Calls           []string
	DeletedPrefixes []string
}

// NewMockClient creates a new MockClient with default values.
func NewMockClient() *MockClient {
	return &MockClient{
		Identity: &CallerIdentity{
			Account: "123456789012",
			ARN:     "arn:aws:iam::123456789012:user/test",
			UserID:  "AIDA12345",
		},
		Objects: make(map[string]string),
	}
}

func (m *MockClient) VerifyCredentials(_ context.Context) (*CallerIdentity, error) {
	m.Calls = append(m.Calls, "verify")
	return m.Identity, m.IdentityErr
}

func (m *MockClient) PutFile(_ context.Context, bucket, key, localPath string) error {
	m.Calls = append(m.Calls, "put "+key)
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Objects[bucket+"/"+key] = localPath
	return nil
}

func (m *MockClient) DeletePrefix(_ context.Context, bucket, prefix string) (int, error) {
	m.Calls = append(m.Calls, "delete "+prefix)
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	m.DeletedPrefixes = append(m.DeletedPrefixes, bucket+"/"+prefix)
	n := 0
	for k := range m.Objects {
		if strings.HasPrefix(k, bucket+"/"+prefix) {
			delete(m.Objects, k)
			n++
		}
	}
	return n, nil
}
