package keywords

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reviewlens/reviewlens/internal/config"
)

func defaultVectorizer() *Vectorizer {
	return NewVectorizer(config.KeywordConfig{MaxFeatures: 1000, TopN: 20, MinNgram: 1, MaxNgram: 2})
}

func TestAnalyze(t *testing.T) {
	got := defaultVectorizer().Analyze("The App keeps crashing, I can't login!")
	want := []string{"app", "keeps", "crashing", "login", "app keeps", "keeps crashing", "crashing login"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
	}
}

func TestFitTransform_IDFAndNormalization(t *testing.T) {
	docs := []string{"app crash", "app slow", "slow transfer"}
	m, err := defaultVectorizer().FitTransform(docs)
	if err != nil {
		t.Fatalf("FitTransform() error: %v", err)
	}

	idf := map[string]float64{}
	for i, term := range m.Terms {
		idf[term] = m.IDF[i]
	}
	// app appears in 2 of 3 documents
	if want := math.Log(4.0/3.0) + 1; math.Abs(idf["app"]-want) > 1e-12 {
		t.Errorf("idf(app) = %f, want %f", idf["app"], want)
	}
	if want := math.Log(4.0/2.0) + 1; math.Abs(idf["crash"]-want) > 1e-12 {
		t.Errorf("idf(crash) = %f, want %f", idf["crash"], want)
	}
	if _, ok := idf["app crash"]; !ok {
		t.Error("expected bigram in vocabulary")
	}

	for d, row := range m.Rows {
		var sq float64
		for _, w := range row {
			sq += w * w
		}
		if math.Abs(sq-1) > 1e-9 {
			t.Errorf("row %d not L2-normalized: %f", d, sq)
		}
	}
}

func TestFitTransform_MaxFeatures(t *testing.T) {
	v := NewVectorizer(config.KeywordConfig{MaxFeatures: 2, MinNgram: 1, MaxNgram: 1})
	m, err := v.FitTransform([]string{"login login transfer", "login screen", "transfer"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"login", "transfer"}, m.Terms); diff != "" {
		t.Errorf("vocabulary mismatch (-want +got):\n%s", diff)
	}
}

func TestFitTransform_EmptyVocabulary(t *testing.T) {
	_, err := defaultVectorizer().FitTransform([]string{"the and of", "a"})
	if !errors.Is(err, ErrEmptyVocabulary) {
		t.Fatalf("expected ErrEmptyVocabulary, got %v", err)
	}
}

func TestTopTerms(t *testing.T) {
	docs := []string{
		"crash crash crash",
		"crash again",
		"login issue",
		"transfer failed",
	}
	m, err := defaultVectorizer().FitTransform(docs)
	if err != nil {
		t.Fatal(err)
	}
	top := m.TopTerms(3)
	if len(top) != 3 {
		t.Fatalf("expected 3 terms, got %v", top)
	}
	if top[0] != "crash" {
		t.Errorf("expected crash first, got %v", top)
	}
	if all := m.TopTerms(100); len(all) != len(m.Terms) {
		t.Errorf("expected %d terms, got %d", len(m.Terms), len(all))
	}
}

func TestExtract_Deterministic(t *testing.T) {
	cfg := config.KeywordConfig{MaxFeatures: 1000, TopN: 5, MinNgram: 1, MaxNgram: 2}
	docs := []string{"slow app", "fast app", "app ui design", "support help"}
	a, err := Extract(cfg, docs)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Extract(cfg, docs)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Extract not deterministic:\n%s", diff)
	}
}
