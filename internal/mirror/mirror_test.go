package mirror

import (
	"context"
	"testing"
	"time"
)

func TestIndexes_CoverQueryFields(t *testing.T) {
	fields := map[string]bool{}
	names := map[string]bool{}
	for _, idx := range Indexes {
		if names[idx.Name] {
			t.Errorf("duplicate index name %q", idx.Name)
		}
		names[idx.Name] = true
		for _, k := range idx.Keys {
			if k.Order != 1 && k.Order != -1 {
				t.Errorf("index %s: bad order %d", idx.Name, k.Order)
			}
			fields[k.Field] = true
		}
	}
	for _, f := range []string{"bank", "review_date", "sentiment", "themes"} {
		if !fields[f] {
			t.Errorf("no index on %s", f)
		}
	}
}

func TestMockWriter_UpsertReplaces(t *testing.T) {
	w := NewMockWriter()
	ctx := context.Background()
	doc := Document{ReviewID: "k1", Bank: "Dashen Bank", Rating: 2, ReviewDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	if _, err := w.Upsert(ctx, []Document{doc}); err != nil {
		t.Fatal(err)
	}
	doc.Rating = 4
	n, err := w.Upsert(ctx, []Document{doc})
	if err != nil || n != 1 {
		t.Fatalf("Upsert() = %d, %v", n, err)
	}
	if len(w.Docs) != 1 || w.Docs["k1"].Rating != 4 {
		t.Errorf("expected replacement, got %+v", w.Docs)
	}
}
