package cleaner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/logging"
	"github.com/reviewlens/reviewlens/internal/review"
)

func sampleRows() []review.RawReview {
	gp := review.SourceGooglePlay
	return []review.RawReview{
		{ReviewText: "Good app", Rating: "5", Date: "2024-01-01", BankName: "CBE", Source: gp},
		{ReviewText: "Bad experience", Rating: "2", Date: "2024-01-02", BankName: "BOA", Source: gp},
		{ReviewText: "Good app", Rating: "5", Date: "2024-01-01", BankName: "CBE", Source: gp},
		{ReviewText: "", Rating: "1", Date: "2024-01-03", BankName: "Dashen", Source: gp},
		{ReviewText: "  Needs improvement  ", Rating: "3", Date: "2024-01-04", BankName: "  CBE  ", Source: gp},
	}
}

func TestClean_RemovesDuplicates(t *testing.T) {
	out, stats := Clean(sampleRows())

	if stats.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", stats.Duplicates)
	}
	n := 0
	for _, r := range out {
		if r.Review == "Good app" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("expected 1 'Good app' row, got %d", n)
	}

	type key struct{ review, bank, date string }
	seen := map[key]bool{}
	for _, r := range out {
		k := key{r.Review, r.Bank, r.Date}
		if seen[k] {
			t.Errorf("duplicate row after cleaning: %+v", r)
		}
		seen[k] = true
	}
}

func TestClean_RemovesSameDayDuplicatesWithTimes(t *testing.T) {
	rows := []review.RawReview{
		{ReviewText: "Good", Rating: "5", Date: "2024-01-01 09:00:00", BankName: "CBE"},
		{ReviewText: "Good", Rating: "5", Date: "2024-01-01 17:30:00", BankName: "CBE"},
		{ReviewText: "Good", Rating: "5", Date: "2024-01-01", BankName: "CBE"},
		{ReviewText: "Good", Rating: "5", Date: "2024-01-02 08:00:00", BankName: "CBE"},
	}
	out, stats := Clean(rows)

	if stats.Duplicates != 2 {
		t.Errorf("expected 2 duplicates, got %d", stats.Duplicates)
	}
	var dates []string
	for _, r := range out {
		dates = append(dates, r.Date)
	}
	if diff := cmp.Diff([]string{"2024-01-01", "2024-01-02"}, dates); diff != "" {
		t.Errorf("dates mismatch (-want +got):\n%s", diff)
	}
}

func TestClean_DropsBlankReview(t *testing.T) {
	rows := []review.RawReview{
		{ReviewText: "   ", Rating: "3", Date: "2024-01-01", BankName: "CBE"},
		{ReviewText: "\t\n", Rating: "3", Date: "2024-01-02", BankName: "CBE"},
		{ReviewText: " ok ", Rating: "3", Date: "2024-01-03", BankName: "CBE"},
	}
	out, stats := Clean(rows)

	if stats.EmptyReview != 2 {
		t.Errorf("expected 2 blank reviews dropped, got %d", stats.EmptyReview)
	}
	if len(out) != 1 || out[0].Review != "ok" {
		t.Fatalf("expected only the trimmed review kept, got %+v", out)
	}
}

func TestClean_DropsMissingReview(t *testing.T) {
	out, stats := Clean(sampleRows())
	if stats.EmptyReview != 1 {
		t.Errorf("expected 1 empty review dropped, got %d", stats.EmptyReview)
	}
	for _, r := range out {
		if r.Bank == "Dashen" {
			t.Errorf("row with missing review survived: %+v", r)
		}
	}
	if len(out) != 3 {
		t.Errorf("expected 3 rows, got %d", len(out))
	}
}

func TestClean_TrimsLast(t *testing.T) {
	out, _ := Clean(sampleRows())
	var found bool
	for _, r := range out {
		if r.Review == "Needs improvement" {
			found = true
			if r.Bank != "CBE" {
				t.Errorf("expected bank trimmed to CBE, got %q", r.Bank)
			}
		}
	}
	if !found {
		t.Fatal("trimmed review not found")
	}

	// rows differing only by whitespace are distinct during dedup
	rows := []review.RawReview{
		{ReviewText: "Same", Rating: "4", Date: "2024-02-01", BankName: "CBE"},
		{ReviewText: "Same", Rating: "4", Date: "2024-02-01", BankName: "  CBE  "},
	}
	out, stats := Clean(rows)
	if stats.Duplicates != 0 || len(out) != 2 {
		t.Errorf("expected both rows kept, got %d (duplicates %d)", len(out), stats.Duplicates)
	}
	if out[0].ReviewID == out[1].ReviewID {
		t.Errorf("expected distinct review ids, both %q", out[0].ReviewID)
	}
}

func TestClean_ValidatesRatings(t *testing.T) {
	rows := append(sampleRows(),
		review.RawReview{ReviewText: "Test", Rating: "6", Date: "2024-01-05", BankName: "CBE"},
		review.RawReview{ReviewText: "Lowest", Rating: "1", Date: "2024-01-06", BankName: "BOA"},
		review.RawReview{ReviewText: "Float", Rating: "4.0", Date: "2024-01-06", BankName: "BOA"},
		review.RawReview{ReviewText: "Half", Rating: "3.5", Date: "2024-01-06", BankName: "BOA"},
		review.RawReview{ReviewText: "Text", Rating: "five", Date: "2024-01-06", BankName: "BOA"},
	)
	out, stats := Clean(rows)

	if stats.BadRating != 3 {
		t.Errorf("expected 3 bad ratings, got %d", stats.BadRating)
	}
	kept := map[string]int{}
	for _, r := range out {
		if r.Rating < 1 || r.Rating > 5 {
			t.Errorf("rating out of range: %+v", r)
		}
		kept[r.Review] = r.Rating
	}
	if kept["Good app"] != 5 || kept["Lowest"] != 1 || kept["Float"] != 4 {
		t.Errorf("expected ratings 5, 1 and 4 kept, got %v", kept)
	}
	if _, ok := kept["Test"]; ok {
		t.Error("rating 6 should be excluded")
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-01", "2024-01-01", true},
		{"2024-05-01 09:30:00", "2024-05-01", true},
		{"2024-05-01T09:30:00Z", "2024-05-01", true},
		{"05/31/2024", "2024-05-31", true},
		{" 2024-01-01 ", "2024-01-01", true},
		{"yesterday", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeDate(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeDate(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRun_WritesCombinedAndPerBank(t *testing.T) {
	cfg := config.Default()
	cfg.Dirs.Raw = t.TempDir()
	cfg.Dirs.Processed = filepath.Join(t.TempDir(), "processed")

	rows := sampleRows()
	if err := review.WriteRaw(filepath.Join(cfg.Dirs.Raw, "cbe_reviews_20240101_000000.csv"), rows[:3]); err != nil {
		t.Fatal(err)
	}
	if err := review.WriteRaw(filepath.Join(cfg.Dirs.Raw, "boa_reviews_20240101_000000.csv"), rows[3:]); err != nil {
		t.Fatal(err)
	}
	// not a review file
	if err := os.WriteFile(filepath.Join(cfg.Dirs.Raw, "cbe_metadata_20240101_000000.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := New(cfg, logging.Discard()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stats.Files != 2 || stats.Input != 5 || stats.Output != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	combined, err := review.ReadProcessed(filepath.Join(cfg.Dirs.Processed, ProcessedFile))
	if err != nil {
		t.Fatalf("reading combined file: %v", err)
	}
	if len(combined) != 3 {
		t.Fatalf("expected 3 combined rows, got %d", len(combined))
	}
	for _, r := range combined {
		if r.ReviewID == "" {
			t.Errorf("row missing review id: %+v", r)
		}
	}

	cbe, err := review.ReadProcessed(filepath.Join(cfg.Dirs.Processed, "cbe_processed_reviews.csv"))
	if err != nil {
		t.Fatalf("reading cbe file: %v", err)
	}
	var got []string
	for _, r := range cbe {
		got = append(got, r.Review)
	}
	if diff := cmp.Diff([]string{"Needs improvement", "Good app"}, got); diff != "" {
		t.Errorf("cbe rows mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(cfg.Dirs.Processed, "boa_processed_reviews.csv")); err != nil {
		t.Errorf("expected boa file: %v", err)
	}
}

func TestRun_NoRawFiles(t *testing.T) {
	cfg := config.Default()
	cfg.Dirs.Raw = t.TempDir()
	cfg.Dirs.Processed = t.TempDir()

	_, err := New(cfg, logging.Discard()).Run(context.Background())
	if !errors.Is(err, ErrNoRawFiles) {
		t.Fatalf("expected ErrNoRawFiles, got %v", err)
	}
}
