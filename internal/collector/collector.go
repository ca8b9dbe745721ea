// Package collector scrapes reviews for each configured bank and writes them
// as raw CSV files with a JSON metadata sidecar.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/review"
)

const fileTimestamp = "20060102_150405"

// Collector fetches reviews for every configured bank.
type Collector struct {
	Config config.Config
	Source Source
	Logger *slog.Logger

	// Timer drives retry sleeps; nil uses real time.
	Timer backoff.Timer
	// Now stamps output files; nil uses time.Now.
	Now func() time.Time
}

// New creates a Collector.
func New(cfg config.Config, src Source, logger *slog.Logger) *Collector {
	return &Collector{Config: cfg, Source: src, Logger: logger}
}

// BankResult is the outcome for one bank.
type BankResult struct {
	Bank     config.Bank
	Reviews  int
	Attempts int
	CSVPath  string
	MetaPath string
	Err      error
}

// Result summarizes a collection run.
type Result struct {
	RunID string
	Banks []BankResult
	Total int
}

// Failed returns the number of banks whose fetch was exhausted.
func (r Result) Failed() int {
	n := 0
	for _, b := range r.Banks {
		if b.Err != nil {
			n++
		}
	}
	return n
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// FetchWithRetry calls the source up to MaxAttempts times, sleeping RetryDelay
// between attempts. It returns the reviews, the number of attempts made, and
// the last error when every attempt failed.
func (c *Collector) FetchWithRetry(ctx context.Context, bank config.Bank) ([]Fetched, int, error) {
	s := c.Config.Scraper
	req := FetchRequest{
		AppID:   bank.AppID,
		Lang:    s.Lang,
		Country: s.Country,
		Sort:    SortNewest,
		Count:   s.TargetReviews,
	}

	var (
		out      []Fetched
		attempts int
	)
	op := func() error {
		attempts++
		c.Logger.Info("fetching reviews", "bank", bank.Code, "app_id", bank.AppID, "attempt", attempts, "max_attempts", s.MaxAttempts)
		got, err := c.Source.Fetch(ctx, req)
		if err != nil {
			return err
		}
		out = got
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.Logger.Warn("fetch failed, retrying", "bank", bank.Code, "attempt", attempts, "error", err, "wait", wait)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.RetryDelay), uint64(s.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.RetryNotifyWithTimer(op, policy, notify, c.Timer); err != nil {
		return nil, attempts, err
	}
	return out, attempts, nil
}

// Collect fetches every bank in configuration order. A bank whose attempts are
// exhausted is logged and reported with zero reviews; the remaining banks are
// still processed. Only cancellation and output failures return an error.
func (c *Collector) Collect(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	c.Logger.Info("starting collection", "run_id", res.RunID, "banks", len(c.Config.Banks), "target", c.Config.Scraper.TargetReviews)

	for _, bank := range c.Config.Banks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		br := BankResult{Bank: bank}
		fetched, attempts, err := c.FetchWithRetry(ctx, bank)
		br.Attempts = attempts
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			c.Logger.Error("all fetch attempts failed", "bank", bank.Code, "attempts", attempts, "error", err)
			br.Err = err
			res.Banks = append(res.Banks, br)
			continue
		}
		if len(fetched) == 0 {
			c.Logger.Warn("no reviews returned", "bank", bank.Code)
			res.Banks = append(res.Banks, br)
			continue
		}

		csvPath, metaPath, err := c.write(bank, res.RunID, fetched)
		if err != nil {
			return res, err
		}
		br.Reviews = len(fetched)
		br.CSVPath = csvPath
		br.MetaPath = metaPath
		res.Total += len(fetched)
		res.Banks = append(res.Banks, br)
		c.Logger.Info("saved reviews", "bank", bank.Code, "count", len(fetched), "file", csvPath)
	}

	c.Logger.Info("collection complete", "run_id", res.RunID, "total", res.Total, "failed_banks", res.Failed())
	return res, nil
}

func (c *Collector) write(bank config.Bank, runID string, fetched []Fetched) (string, string, error) {
	now := c.now()
	ts := now.Format(fileTimestamp)
	prefix := strings.ToLower(bank.Code)
	dir := c.Config.Dirs.Raw

	rows := make([]review.RawReview, len(fetched))
	for i, f := range fetched {
		rows[i] = review.RawReview{
			ReviewText: f.Content,
			Rating:     strconv.Itoa(f.Score),
			Date:       f.At.Format("2006-01-02"),
			BankName:   bank.Code,
			Source:     review.SourceGooglePlay,
		}
	}
	csvPath := filepath.Join(dir, fmt.Sprintf("%s_reviews_%s.csv", prefix, ts))
	if err := review.WriteRaw(csvPath, rows); err != nil {
		return "", "", fmt.Errorf("writing reviews for %s: %w", bank.Code, err)
	}

	s := c.Config.Scraper
	meta := review.Metadata{
		Bank:         bank.Code,
		AppID:        bank.AppID,
		RunID:        runID,
		TotalReviews: len(fetched),
		ScrapeDate:   now.Format(time.RFC3339),
		ConfigUsed: map[string]interface{}{
			"app_id":       bank.AppID,
			"name":         bank.Name,
			"lang":         s.Lang,
			"country":      s.Country,
			"sort":         "newest",
			"count":        s.TargetReviews,
			"max_attempts": s.MaxAttempts,
			"retry_delay":  s.RetryDelay.String(),
		},
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshaling metadata for %s: %w", bank.Code, err)
	}
	metaPath := filepath.Join(dir, fmt.Sprintf("%s_metadata_%s.json", prefix, ts))
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("writing metadata for %s: %w", bank.Code, err)
	}
	return csvPath, metaPath, nil
}
