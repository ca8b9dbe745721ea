package store

import (
	"context"
	"sort"
	"time"
)

// MockLedger is an in-memory Ledger.
type MockLedger struct {
	Records  map[string]AppliedMigration
	Executed []Migration
	ApplyErr error
}

// NewMockLedger creates an empty MockLedger.
func NewMockLedger() *MockLedger {
	return &MockLedger{Records: make(map[string]AppliedMigration)}
}

func (m *MockLedger) EnsureTable(_ context.Context) error { return nil }

func (m *MockLedger) IsApplied(_ context.Context, version string) (bool, error) {
	_, ok := m.Records[version]
	return ok, nil
}

func (m *MockLedger) Apply(_ context.Context, mig Migration) error {
	if m.ApplyErr != nil {
		return m.ApplyErr
	}
	m.Executed = append(m.Executed, mig)
	m.Records[mig.Version] = AppliedMigration{Version: mig.Version, Description: mig.Description, AppliedAt: time.Now()}
	return nil
}

func (m *MockLedger) Applied(_ context.Context) ([]AppliedMigration, error) {
	out := make([]AppliedMigration, 0, len(m.Records))
	for _, a := range m.Records {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// MockRepository is an in-memory Repository.
type MockRepository struct {
	BankRows  []Bank
	Reviews   map[string]ReviewRow
	Order     []string
	UpsertErr error
}

// NewMockRepository creates an empty MockRepository.
func NewMockRepository() *MockRepository {
	return &MockRepository{Reviews: make(map[string]ReviewRow)}
}

func (m *MockRepository) SeedBanks(_ context.Context, banks []Bank) (int, error) {
	inserted := 0
	for _, b := range banks {
		exists := false
		for _, have := range m.BankRows {
			if have.Name == b.Name || have.AppID == b.AppID {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		b.ID = len(m.BankRows) + 1
		m.BankRows = append(m.BankRows, b)
		inserted++
	}
	return inserted, nil
}

func (m *MockRepository) Banks(_ context.Context) ([]Bank, error) {
	return append([]Bank(nil), m.BankRows...), nil
}

func (m *MockRepository) UpsertReview(_ context.Context, r ReviewRow) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	if _, ok := m.Reviews[r.Key]; !ok {
		m.Order = append(m.Order, r.Key)
	}
	m.Reviews[r.Key] = r
	return nil
}

func (m *MockRepository) CountReviews(_ context.Context) (int64, error) {
	return int64(len(m.Reviews)), nil
}
