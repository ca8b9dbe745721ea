//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/logging"
	"github.com/reviewlens/reviewlens/internal/persist"
	"github.com/reviewlens/reviewlens/internal/review"
	"github.com/reviewlens/reviewlens/internal/store"
)

func connect(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Connect(context.Background(), pgConnString(t))
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := connect(t)
	m := store.NewMigrator(db, store.MigrationsFS(""), logging.Discard())

	ran, err := m.Up(ctx)
	if err != nil {
		t.Fatalf("first Up() error: %v", err)
	}
	if len(ran) == 0 {
		t.Fatal("expected migrations to run on an empty database")
	}

	again, err := m.Up(ctx)
	if err != nil {
		t.Fatalf("second Up() error: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second Up() ran %v", again)
	}

	applied, err := m.Apply(ctx, "1", "initial_schema")
	if err != nil || applied {
		t.Errorf("re-applying version 1 = %v, %v; want no-op", applied, err)
	}

	recorded, err := db.Applied(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recorded) != len(ran) {
		t.Errorf("expected %d recorded migrations, got %d", len(ran), len(recorded))
	}
}

func TestPersist_EndToEnd(t *testing.T) {
	ctx := context.Background()
	db := connect(t)
	if _, err := store.NewMigrator(db, store.MigrationsFS(""), logging.Discard()).Up(ctx); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	p := persist.New(cfg, db, nil, logging.Discard())
	seeded, err := p.SeedBanks(ctx)
	if err != nil {
		t.Fatalf("SeedBanks() error: %v", err)
	}
	if seeded != 3 {
		t.Errorf("expected 3 banks seeded, got %d", seeded)
	}
	if again, _ := p.SeedBanks(ctx); again != 0 {
		t.Errorf("re-seeding inserted %d banks", again)
	}

	renamed := cfg
	renamed.Banks = append([]config.Bank(nil), cfg.Banks...)
	renamed.Banks[0].Name = "CBE Birr Plus"
	if n, err := persist.New(renamed, db, nil, logging.Discard()).SeedBanks(ctx); err != nil || n != 0 {
		t.Errorf("seeding a renamed bank = %d, %v; want 0, nil", n, err)
	}

	rows := []review.Enriched{
		{SentimentRecord: review.SentimentRecord{ReviewID: "a1", ReviewText: "slow app", Rating: 2, Bank: "CBE", Date: "2024-03-01", Label: review.LabelNegative, Score: 0.91}, Themes: []string{"App Performance"}},
		{SentimentRecord: review.SentimentRecord{ReviewID: "b2", ReviewText: "nice", Rating: 5, Bank: "Unknown Bank", Date: "2024-03-02", Label: review.LabelPositive, Score: 0.99}, Themes: []string{"Other"}},
		{SentimentRecord: review.SentimentRecord{ReviewID: "c3", ReviewText: "login fails", Rating: 1, Bank: "Dashen Bank", Date: "2024-03-03", Label: review.LabelNegative, Score: 0.97}, Themes: []string{"Account Access", "Transaction Issues"}},
	}
	st, err := p.Insert(ctx, rows)
	if err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if st.Inserted != 2 || st.SkippedUnknownBank != 1 {
		t.Errorf("unexpected stats %+v", st)
	}

	// Upserting the same keys must not duplicate rows.
	if _, err := p.Insert(ctx, rows); err != nil {
		t.Fatal(err)
	}
	n, err := db.CountReviews(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 reviews, got %d", n)
	}
}
