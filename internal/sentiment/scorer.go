package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/reviewlens/reviewlens/internal/cleaner"
	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/logging"
	"github.com/reviewlens/reviewlens/internal/review"
)

// OutputFile is the sentiment results file inside the processed directory.
const OutputFile = "sentiment_analysis_results.csv"

// Result is the outcome for one row. Record is always populated; on failure
// it carries the error label and a zero score.
type Result struct {
	Record review.SentimentRecord
	Err    error
}

// OK reports whether the row was classified.
func (r Result) OK() bool { return r.Err == nil }

// Summary aggregates scored rows.
type Summary struct {
	Total     int
	Errors    int
	Banks     []string
	Counts    map[string]map[string]int // bank -> label -> count
	MeanScore map[string]float64        // bank -> mean score
}

// Scorer classifies the canonical processed file.
type Scorer struct {
	Config     config.Config
	Classifier Classifier
	Logger     *slog.Logger
}

// NewScorer creates a Scorer.
func NewScorer(cfg config.Config, cls Classifier, logger *slog.Logger) *Scorer {
	return &Scorer{Config: cfg, Classifier: cls, Logger: logger}
}

// ScoreRows classifies rows in order. A row failure is recorded in its Result
// and never stops the batch; only cancellation returns an error.
func (s *Scorer) ScoreRows(ctx context.Context, rows []review.ProcessedReview) ([]Result, error) {
	results := make([]Result, 0, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		rec := review.SentimentRecord{
			ReviewID:   row.ReviewID,
			ReviewText: row.Review,
			Rating:     row.Rating,
			Bank:       row.Bank,
			Date:       row.Date,
		}
		pred, err := s.classify(ctx, row.Review)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			s.Logger.Warn("error analyzing sentiment", "review_id", row.ReviewID, "text", logging.Excerpt(row.Review), "error", err)
			rec.Label = review.LabelError
			rec.Score = 0
			results = append(results, Result{Record: rec, Err: err})
			continue
		}
		rec.Label = pred.Label
		rec.Score = pred.Confidence()
		results = append(results, Result{Record: rec})

		if (i+1)%100 == 0 {
			s.Logger.Debug("sentiment progress", "done", i+1, "total", len(rows))
		}
	}
	return results, nil
}

func (s *Scorer) classify(ctx context.Context, text string) (Prediction, error) {
	if text == "" {
		return Prediction{}, ErrEmptyText
	}
	return s.Classifier.Classify(ctx, Truncate(text, s.Config.Sentiment.MaxTokens))
}

// Run scores the processed file and writes the sentiment results file.
func (s *Scorer) Run(ctx context.Context) (Summary, error) {
	in := filepath.Join(s.Config.Dirs.Processed, cleaner.ProcessedFile)
	s.Logger.Info("loading processed reviews", "file", in)
	rows, err := review.ReadProcessed(in)
	if err != nil {
		return Summary{}, fmt.Errorf("loading processed reviews: %w", err)
	}

	s.Logger.Info("starting sentiment analysis", "reviews", len(rows), "backend", s.Config.Sentiment.Backend)
	results, err := s.ScoreRows(ctx, rows)
	if err != nil {
		return Summary{}, err
	}

	records := make([]review.SentimentRecord, len(results))
	for i, r := range results {
		records[i] = r.Record
	}
	out := filepath.Join(s.Config.Dirs.Processed, OutputFile)
	if err := review.WriteSentiment(out, records); err != nil {
		return Summary{}, fmt.Errorf("writing sentiment results: %w", err)
	}

	sum := Summarize(records)
	s.Logger.Info("completed sentiment analysis", "reviews", sum.Total, "errors", sum.Errors, "file", out)
	for _, bank := range sum.Banks {
		s.Logger.Info("sentiment by bank", "bank", bank,
			"positive", sum.Counts[bank][review.LabelPositive],
			"negative", sum.Counts[bank][review.LabelNegative],
			"error", sum.Counts[bank][review.LabelError],
			"mean_score", fmt.Sprintf("%.3f", sum.MeanScore[bank]))
	}
	return sum, nil
}

// Summarize counts labels and averages scores per bank.
func Summarize(records []review.SentimentRecord) Summary {
	sum := Summary{
		Total:     len(records),
		Counts:    map[string]map[string]int{},
		MeanScore: map[string]float64{},
	}
	totals := map[string]float64{}
	n := map[string]int{}
	for _, r := range records {
		if r.Label == review.LabelError {
			sum.Errors++
		}
		if sum.Counts[r.Bank] == nil {
			sum.Counts[r.Bank] = map[string]int{}
			sum.Banks = append(sum.Banks, r.Bank)
		}
		sum.Counts[r.Bank][r.Label]++
		totals[r.Bank] += r.Score
		n[r.Bank]++
	}
	for bank, t := range totals {
		sum.MeanScore[bank] = t / float64(n[bank])
	}
	sort.Strings(sum.Banks)
	return sum
}
