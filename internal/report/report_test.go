package report

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/logging"
	"github.com/reviewlens/reviewlens/internal/review"
	"github.com/reviewlens/reviewlens/internal/sentiment"
	"github.com/reviewlens/reviewlens/internal/themes"
)

func row(id, bank, date, label string, score float64, rating int, themes ...string) review.Enriched {
	return review.Enriched{
		SentimentRecord: review.SentimentRecord{
			ReviewID: id, ReviewText: "text", Rating: rating, Bank: bank,
			Date: date, Label: label, Score: score,
		},
		Themes: themes,
	}
}

func sample() []review.Enriched {
	return []review.Enriched{
		row("1", "CBE", "2024-01-10", review.LabelNegative, 0.2, 1, "Transaction Issues", "App Performance"),
		row("2", "CBE", "2024-01-20", review.LabelPositive, 0.9, 5, "User Interface"),
		row("3", "BOA", "2024-02-05", review.LabelPositive, 0.8, 4, "User Interface", "App Performance"),
		row("4", "BOA", "2024-02-07", review.LabelError, 0, 2, "Other"),
	}
}

func TestCompute(t *testing.T) {
	r := Compute(sample())

	if r.Total != 4 || r.Errors != 1 {
		t.Errorf("unexpected totals %d/%d", r.Total, r.Errors)
	}
	if math.Abs(r.MeanScore-(0.2+0.9+0.8)/3) > 1e-9 {
		t.Errorf("mean score excludes errors, got %f", r.MeanScore)
	}
	if r.MeanRating != 3 {
		t.Errorf("mean rating = %f, want 3", r.MeanRating)
	}

	wantBanks := []BankStats{
		{Bank: "BOA", Reviews: 2, Positive: 1, Errors: 1, MeanScore: 0.8, MeanRating: 3},
		{Bank: "CBE", Reviews: 2, Positive: 1, Negative: 1, MeanScore: 0.55, MeanRating: 3},
	}
	approx := cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-9 })
	if diff := cmp.Diff(wantBanks, r.Banks, approx); diff != "" {
		t.Errorf("banks mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"App Performance", "User Interface", "Other", "Transaction Issues"}, r.ThemeNames()); diff != "" {
		t.Errorf("theme order mismatch (-want +got):\n%s", diff)
	}
	if r.CoOccurrence["App Performance"]["User Interface"] != 1 || r.CoOccurrence["App Performance"]["Transaction Issues"] != 1 {
		t.Errorf("unexpected co-occurrence %v", r.CoOccurrence)
	}
	if _, self := r.CoOccurrence["App Performance"]["App Performance"]; self {
		t.Error("a theme must not co-occur with itself")
	}
	if r.HighRatingThemes["User Interface"] != 2 || r.LowRatingThemes["Other"] != 1 || r.LowRatingThemes["Transaction Issues"] != 1 {
		t.Errorf("unexpected rating buckets high=%v low=%v", r.HighRatingThemes, r.LowRatingThemes)
	}

	if len(r.Monthly) != 2 || r.Monthly[0].Month != "2024-01" || r.Monthly[1].Reviews != 2 {
		t.Fatalf("unexpected monthly %+v", r.Monthly)
	}
	if r.Trend == nil || math.Abs(r.Trend.ScoreChange-(0.8-0.55)) > 1e-9 || r.Trend.RatingChange != 0 {
		t.Errorf("unexpected trend %+v", r.Trend)
	}
	if r.Correlation == nil || *r.Correlation <= 0 {
		t.Errorf("expected positive correlation, got %v", r.Correlation)
	}
}

func TestPearson(t *testing.T) {
	if r, ok := Pearson([]float64{1, 2, 3}, []float64{2, 4, 6}); !ok || math.Abs(r-1) > 1e-9 {
		t.Errorf("perfect correlation = %f, %v", r, ok)
	}
	if r, ok := Pearson([]float64{1, 2, 3}, []float64{3, 2, 1}); !ok || math.Abs(r+1) > 1e-9 {
		t.Errorf("inverse correlation = %f, %v", r, ok)
	}
	if _, ok := Pearson([]float64{1, 1}, []float64{2, 3}); ok {
		t.Error("constant series has no correlation")
	}
	if _, ok := Pearson([]float64{1}, []float64{1}); ok {
		t.Error("single pair has no correlation")
	}
}

func TestDirection(t *testing.T) {
	for delta, want := range map[float64]string{0.3: "Improving", -0.1: "Declining", 0: "Stable"} {
		if got := Direction(delta); got != want {
			t.Errorf("Direction(%v) = %s, want %s", delta, got, want)
		}
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), JSONFile)
	rep := Compute(sample())
	if err := WriteJSON(rep, path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	loaded, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if loaded.Total != 4 || len(loaded.Themes) != 4 || loaded.Trend == nil {
		t.Errorf("unexpected round trip %+v", loaded)
	}
}

func TestFormatText(t *testing.T) {
	text := FormatText(Compute(sample()))
	for _, want := range []string{"Sentiment by Bank", "CBE", "Transaction Issues", "Theme Co-occurrence", "2024-02", "Improving"} {
		if !strings.Contains(text, want) {
			t.Errorf("report text missing %q", want)
		}
	}
}

func TestFormatText_Empty(t *testing.T) {
	text := FormatText(Compute(nil))
	if !strings.Contains(text, "Reviews analyzed:        0") {
		t.Errorf("unexpected empty report:\n%s", text)
	}
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), WorkbookFile)
	if err := WriteWorkbook(Compute(sample()), path); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{"Summary", "Banks", "Themes", "Co-occurrence", "Monthly"}, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}
	rows, err := f.GetRows("Banks")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[1][0] != "BOA" {
		t.Errorf("unexpected bank rows %v", rows)
	}
}

func TestWriteCharts(t *testing.T) {
	dir := t.TempDir()
	files, err := WriteCharts(Compute(sample()), dir)
	if err != nil {
		t.Fatalf("WriteCharts: %v", err)
	}
	if len(files) != 5 {
		t.Fatalf("expected 5 charts, got %v", files)
	}
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || info.Size() == 0 {
			t.Errorf("chart %s missing or empty", f)
		}
	}

	empty, err := WriteCharts(Compute(nil), t.TempDir())
	if err != nil || len(empty) != 0 {
		t.Errorf("expected no charts without data, got %v, %v", empty, err)
	}
}

func TestGenerator_Run(t *testing.T) {
	cfg := config.Default()
	cfg.Dirs.Processed = t.TempDir()
	cfg.Dirs.Visualizations = t.TempDir()

	var sents []review.SentimentRecord
	var ths []review.ThemeRecord
	for _, e := range sample() {
		sents = append(sents, e.SentimentRecord)
		ths = append(ths, review.ThemeRecord{
			ReviewID: e.ReviewID, ReviewText: e.ReviewText, Rating: e.Rating,
			Bank: e.Bank, Date: e.Date, Themes: e.Themes,
		})
	}
	if err := review.WriteSentiment(filepath.Join(cfg.Dirs.Processed, sentiment.OutputFile), sents); err != nil {
		t.Fatal(err)
	}
	if err := review.WriteThemes(filepath.Join(cfg.Dirs.Processed, themes.OutputFile), ths); err != nil {
		t.Fatal(err)
	}

	res, err := NewGenerator(cfg, logging.Discard()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Report.Total != 4 || len(res.Files) != 8 {
		t.Errorf("unexpected result: total=%d files=%v", res.Report.Total, res.Files)
	}
	if _, err := os.Stat(filepath.Join(cfg.Dirs.Visualizations, TextFile)); err != nil {
		t.Errorf("text report missing: %v", err)
	}
}

func TestGenerator_MissingInput(t *testing.T) {
	cfg := config.Default()
	cfg.Dirs.Processed = t.TempDir()
	_, err := NewGenerator(cfg, logging.Discard()).Run(context.Background())
	if !errors.Is(err, review.ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
}
