// Package cleaner merges raw review files into the canonical processed file.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/review"
)

const (
	rawPattern    = "*_reviews_*.csv"
	ProcessedFile = "processed_reviews.csv"
)

// ErrNoRawFiles is returned when the raw directory holds no review files.
var ErrNoRawFiles = errors.New("no raw review files found")

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"01/02/2006",
}

// Stats records what happened to the rows of one cleaning run.
type Stats struct {
	Files       int
	Input       int
	Duplicates  int
	EmptyReview int
	BadDate     int
	BadRating   int
	Output      int
	PerBank     map[string]int
	Banks       []string // distinct banks in order of first appearance
}

// Cleaner loads raw files and writes the processed outputs.
type Cleaner struct {
	Config config.Config
	Logger *slog.Logger
}

// New creates a Cleaner.
func New(cfg config.Config, logger *slog.Logger) *Cleaner {
	return &Cleaner{Config: cfg, Logger: logger}
}

// Load reads every raw review file in the raw directory, in name order.
func (c *Cleaner) Load() ([]review.RawReview, int, error) {
	files, err := filepath.Glob(filepath.Join(c.Config.Dirs.Raw, rawPattern))
	if err != nil {
		return nil, 0, fmt.Errorf("listing raw files: %w", err)
	}
	if len(files) == 0 {
		return nil, 0, fmt.Errorf("%w in %s", ErrNoRawFiles, c.Config.Dirs.Raw)
	}
	sort.Strings(files)

	var rows []review.RawReview
	for _, f := range files {
		got, err := review.ReadRaw(f)
		if err != nil {
			return nil, 0, fmt.Errorf("loading %s: %w", f, err)
		}
		c.Logger.Debug("loaded raw file", "file", f, "rows", len(got))
		rows = append(rows, got...)
	}
	c.Logger.Info("loaded raw reviews", "files", len(files), "rows", len(rows))
	return rows, len(files), nil
}

// Run cleans all raw files and writes the combined and per-bank outputs.
func (c *Cleaner) Run(ctx context.Context) (Stats, error) {
	rows, files, err := c.Load()
	if err != nil {
		return Stats{}, err
	}
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	out, stats := Clean(rows)
	stats.Files = files
	c.Logger.Info("cleaned reviews",
		"input", stats.Input,
		"duplicates", stats.Duplicates,
		"empty_review", stats.EmptyReview,
		"bad_date", stats.BadDate,
		"bad_rating", stats.BadRating,
		"output", stats.Output)

	dir := c.Config.Dirs.Processed
	combined := filepath.Join(dir, ProcessedFile)
	if err := review.WriteProcessed(combined, out); err != nil {
		return stats, fmt.Errorf("writing processed reviews: %w", err)
	}

	byBank := make(map[string][]review.ProcessedReview, len(stats.Banks))
	for _, r := range out {
		byBank[r.Bank] = append(byBank[r.Bank], r)
	}
	for _, bank := range stats.Banks {
		path := filepath.Join(dir, BankFile(bank))
		if err := review.WriteProcessed(path, byBank[bank]); err != nil {
			return stats, fmt.Errorf("writing processed reviews for %s: %w", bank, err)
		}
		c.Logger.Info("reviews per bank", "bank", bank, "count", stats.PerBank[bank])
	}
	c.Logger.Info("processed data saved", "file", combined)
	return stats, nil
}

// BankFile is the per-bank processed file name.
func BankFile(bank string) string {
	return strings.ToLower(bank) + "_processed_reviews.csv"
}

type dedupKey struct {
	review, bank, date string
}

// Clean applies the cleaning steps in order: exact-duplicate removal on
// (review, bank, calendar day), blank-review removal, date validation, rating
// validation, and finally whitespace trimming. Trimming runs last, so review
// and bank values differing only by surrounding whitespace are distinct
// during dedup. Surviving rows receive stable review IDs.
func Clean(rows []review.RawReview) ([]review.ProcessedReview, Stats) {
	stats := Stats{Input: len(rows), PerBank: map[string]int{}}

	seen := make(map[dedupKey]bool, len(rows))
	out := make([]review.ProcessedReview, 0, len(rows))
	for _, r := range rows {
		// Raw dates may carry a time of day; the output keeps only the day.
		date, dateOK := NormalizeDate(r.Date)
		k := dedupKey{r.ReviewText, r.BankName, r.Date}
		if dateOK {
			k.date = date
		}
		if seen[k] {
			stats.Duplicates++
			continue
		}
		seen[k] = true

		if strings.TrimSpace(r.ReviewText) == "" {
			stats.EmptyReview++
			continue
		}
		if !dateOK {
			stats.BadDate++
			continue
		}
		rating, ok := ParseRating(r.Rating)
		if !ok {
			stats.BadRating++
			continue
		}

		out = append(out, review.ProcessedReview{
			Review: strings.TrimSpace(r.ReviewText),
			Rating: rating,
			Date:   date,
			Bank:   strings.TrimSpace(r.BankName),
			Source: r.Source,
		})
	}

	review.AssignIDs(out)
	for _, r := range out {
		if _, ok := stats.PerBank[r.Bank]; !ok {
			stats.Banks = append(stats.Banks, r.Bank)
		}
		stats.PerBank[r.Bank]++
	}
	stats.Output = len(out)
	return out, stats
}

// NormalizeDate parses a date in any accepted layout and returns YYYY-MM-DD.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// ParseRating accepts integral values in [1,5], including forms like "4.0".
func ParseRating(s string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f < 1 || f > 5 {
		return 0, false
	}
	return int(f), true
}
