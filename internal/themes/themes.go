// Package themes assigns keyword-based topical themes to reviews.
package themes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/reviewlens/reviewlens/internal/cleaner"
	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/keywords"
	"github.com/reviewlens/reviewlens/internal/logging"
	"github.com/reviewlens/reviewlens/internal/review"
)

const (
	OutputFile   = "thematic_analysis_results.csv"
	KeywordsFile = "theme_keywords.csv"
)

// ErrEmptyText is returned when a review has no text to classify.
var ErrEmptyText = errors.New("empty review text")

// Category is a theme and the keywords that signal it.
type Category struct {
	Name     string
	Keywords []string
}

// Categories are checked in this order.
var Categories = []Category{
	{"Account Access", []string{"login", "password", "authentication", "access", "account", "sign", "credentials"}},
	{"Transaction Issues", []string{"transfer", "payment", "transaction", "send", "receive", "money", "balance"}},
	{"App Performance", []string{"slow", "crash", "bug", "error", "loading", "freeze", "performance"}},
	{"Customer Support", []string{"support", "service", "help", "contact", "response", "assistance", "agent"}},
	{"User Interface", []string{"interface", "design", "ui", "layout", "button", "screen", "menu", "navigation"}},
}

// Classify returns every category with a keyword occurring in text, matched
// as a lowercase substring. Text matching nothing yields [Other].
func Classify(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	lower := strings.ToLower(text)
	var out []string
	for _, c := range Categories {
		for _, k := range c.Keywords {
			if strings.Contains(lower, k) {
				out = append(out, c.Name)
				break
			}
		}
	}
	if len(out) == 0 {
		return []string{review.ThemeOther}, nil
	}
	return out, nil
}

// Result is the outcome for one row. On failure Record carries [Error].
type Result struct {
	Record review.ThemeRecord
	Err    error
}

// OK reports whether the row was classified.
func (r Result) OK() bool { return r.Err == nil }

// Output holds the classified rows and the theme keyword side output.
type Output struct {
	Keywords      []string
	Results       []Result
	ThemeKeywords []review.ThemeKeywords
}

// Summary is the theme distribution overall and per bank.
type Summary struct {
	Total   int
	Errors  int
	Counts  map[string]int
	Banks   []string
	Percent map[string]map[string]float64 // bank -> theme -> share of that bank's labels
}

// Analyzer runs keyword extraction and classification over the processed file.
type Analyzer struct {
	Config config.Config
	Logger *slog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg config.Config, logger *slog.Logger) *Analyzer {
	return &Analyzer{Config: cfg, Logger: logger}
}

// Analyze extracts corpus keywords, classifies every row, and collects for
// each real theme the corpus keywords literally present in its reviews.
func (a *Analyzer) Analyze(ctx context.Context, rows []review.ProcessedReview) (Output, error) {
	docs := make([]string, len(rows))
	for i, r := range rows {
		docs[i] = r.Review
	}
	var out Output
	kw, err := keywords.Extract(a.Config.Keywords, docs)
	if err != nil {
		a.Logger.Error("error extracting keywords", "error", err)
	} else {
		out.Keywords = kw
		a.Logger.Info("extracted keywords", "count", len(kw), "top", strings.Join(kw[:min(10, len(kw))], ", "))
	}

	sets := map[string]map[string]bool{}
	var order []string
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return Output{}, err
		}
		rec := review.ThemeRecord{
			ReviewID:   row.ReviewID,
			ReviewText: row.Review,
			Rating:     row.Rating,
			Bank:       row.Bank,
			Date:       row.Date,
		}
		themes, err := Classify(row.Review)
		if err != nil {
			a.Logger.Warn("error classifying themes", "review_id", row.ReviewID, "text", logging.Excerpt(row.Review), "error", err)
			rec.Themes = []string{review.ThemeError}
			out.Results = append(out.Results, Result{Record: rec, Err: err})
			continue
		}
		rec.Themes = themes
		out.Results = append(out.Results, Result{Record: rec})

		lower := strings.ToLower(row.Review)
		for _, th := range themes {
			if th == review.ThemeOther || th == review.ThemeError {
				continue
			}
			set, ok := sets[th]
			if !ok {
				set = map[string]bool{}
				sets[th] = set
				order = append(order, th)
			}
			for _, k := range out.Keywords {
				if strings.Contains(lower, k) {
					set[k] = true
				}
			}
		}
	}

	for _, th := range order {
		words := make([]string, 0, len(sets[th]))
		for k := range sets[th] {
			words = append(words, k)
		}
		sort.Strings(words)
		out.ThemeKeywords = append(out.ThemeKeywords, review.ThemeKeywords{Theme: th, Keywords: words})
	}
	return out, nil
}

// Run analyzes the processed file and writes the results and keyword files.
func (a *Analyzer) Run(ctx context.Context) (Summary, error) {
	in := filepath.Join(a.Config.Dirs.Processed, cleaner.ProcessedFile)
	a.Logger.Info("loading processed reviews", "file", in)
	rows, err := review.ReadProcessed(in)
	if err != nil {
		return Summary{}, fmt.Errorf("loading processed reviews: %w", err)
	}

	a.Logger.Info("starting thematic analysis", "reviews", len(rows))
	out, err := a.Analyze(ctx, rows)
	if err != nil {
		return Summary{}, err
	}

	records := make([]review.ThemeRecord, len(out.Results))
	for i, r := range out.Results {
		records[i] = r.Record
	}
	resultsPath := filepath.Join(a.Config.Dirs.Processed, OutputFile)
	if err := review.WriteThemes(resultsPath, records); err != nil {
		return Summary{}, fmt.Errorf("writing thematic results: %w", err)
	}
	keywordsPath := filepath.Join(a.Config.Dirs.Processed, KeywordsFile)
	if err := review.WriteThemeKeywords(keywordsPath, out.ThemeKeywords); err != nil {
		return Summary{}, fmt.Errorf("writing theme keywords: %w", err)
	}

	sum := Summarize(records)
	a.Logger.Info("completed thematic analysis", "reviews", sum.Total, "errors", sum.Errors, "file", resultsPath, "keywords_file", keywordsPath)
	for _, c := range append(Categories, Category{Name: review.ThemeOther}, Category{Name: review.ThemeError}) {
		if n := sum.Counts[c.Name]; n > 0 {
			a.Logger.Info("theme distribution", "theme", c.Name, "count", n)
		}
	}
	for _, bank := range sum.Banks {
		for th, pct := range sum.Percent[bank] {
			a.Logger.Debug("theme distribution by bank", "bank", bank, "theme", th, "percent", fmt.Sprintf("%.2f", pct))
		}
	}
	return sum, nil
}

// Summarize counts theme labels overall and as a percentage per bank.
func Summarize(records []review.ThemeRecord) Summary {
	sum := Summary{
		Total:   len(records),
		Counts:  map[string]int{},
		Percent: map[string]map[string]float64{},
	}
	perBank := map[string]map[string]int{}
	labels := map[string]int{}
	for _, r := range records {
		if perBank[r.Bank] == nil {
			perBank[r.Bank] = map[string]int{}
			sum.Banks = append(sum.Banks, r.Bank)
		}
		for _, th := range r.Themes {
			if th == review.ThemeError {
				sum.Errors++
			}
			sum.Counts[th]++
			perBank[r.Bank][th]++
			labels[r.Bank]++
		}
	}
	sort.Strings(sum.Banks)
	for bank, counts := range perBank {
		pct := map[string]float64{}
		for th, n := range counts {
			pct[th] = 100 * float64(n) / float64(labels[bank])
		}
		sum.Percent[bank] = pct
	}
	return sum
}
