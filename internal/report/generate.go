package report

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/review"
	"github.com/reviewlens/reviewlens/internal/sentiment"
	"github.com/reviewlens/reviewlens/internal/themes"
)

// Result is a generated report and the files written for it.
type Result struct {
	Report *Report
	Files  []string
}

// Generator builds reports from the processed sentiment and theme files.
type Generator struct {
	Config config.Config
	Logger *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(cfg config.Config, logger *slog.Logger) *Generator {
	return &Generator{Config: cfg, Logger: logger}
}

// Load joins the sentiment and theme files on review_id.
func (g *Generator) Load() ([]review.Enriched, error) {
	dir := g.Config.Dirs.Processed
	sents, err := review.ReadSentiment(filepath.Join(dir, sentiment.OutputFile))
	if err != nil {
		return nil, fmt.Errorf("loading sentiment results: %w", err)
	}
	ths, err := review.ReadThemes(filepath.Join(dir, themes.OutputFile))
	if err != nil {
		return nil, fmt.Errorf("loading thematic results: %w", err)
	}
	joined, onlySent, onlyThemes := review.Join(sents, ths)
	if onlySent > 0 || onlyThemes > 0 {
		g.Logger.Warn("unmatched review ids", "only_sentiment", onlySent, "only_themes", onlyThemes)
	}
	g.Logger.Info("loaded reviews", "count", len(joined))
	return joined, nil
}

// Run computes the report and writes JSON, text, workbook and charts into
// the visualizations directory.
func (g *Generator) Run(ctx context.Context) (Result, error) {
	rows, err := g.Load()
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	rep := Compute(rows)
	res := Result{Report: rep}
	dir := g.Config.Dirs.Visualizations

	writers := []struct {
		file  string
		write func(*Report, string) error
	}{
		{JSONFile, WriteJSON},
		{TextFile, WriteText},
		{WorkbookFile, WriteWorkbook},
	}
	for _, w := range writers {
		path := filepath.Join(dir, w.file)
		if err := w.write(rep, path); err != nil {
			return res, fmt.Errorf("writing %s: %w", w.file, err)
		}
		res.Files = append(res.Files, path)
	}

	charts, err := WriteCharts(rep, dir)
	res.Files = append(res.Files, charts...)
	if err != nil {
		return res, err
	}

	g.Logger.Info("report generated", "reviews", rep.Total, "files", len(res.Files), "dir", dir)
	return res, nil
}
