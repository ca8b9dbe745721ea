package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	return t
}

// WriteText writes the report as human-readable text.
func WriteText(report *Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return os.WriteFile(path, []byte(FormatText(report)), 0o644)
}

// FormatText renders the report as text tables.
func FormatText(report *Report) string {
	var b strings.Builder

	b.WriteString("=== Bank App Review Report ===\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339)))

	b.WriteString("Key Metrics:\n")
	b.WriteString(fmt.Sprintf("  Reviews analyzed:        %d\n", report.Total))
	b.WriteString(fmt.Sprintf("  Average sentiment score: %.2f\n", report.MeanScore))
	b.WriteString(fmt.Sprintf("  Average rating:          %.2f\n", report.MeanRating))
	if report.Correlation != nil {
		b.WriteString(fmt.Sprintf("  Score/rating correlation: %.2f\n", *report.Correlation))
	}
	if report.Errors > 0 {
		b.WriteString(fmt.Sprintf("  Sentiment errors:        %d\n", report.Errors))
	}
	b.WriteString("\n")

	banks := newTable("Sentiment by Bank")
	banks.AppendHeader(table.Row{"Bank", "Reviews", "Positive", "Negative", "Errors", "Mean Score", "Mean Rating"})
	for _, s := range report.Banks {
		banks.AppendRow(table.Row{s.Bank, s.Reviews, s.Positive, s.Negative, s.Errors,
			fmt.Sprintf("%.3f", s.MeanScore), fmt.Sprintf("%.2f", s.MeanRating)})
	}
	b.WriteString(banks.Render())
	b.WriteString("\n\n")

	themes := newTable("Themes")
	themes.AppendHeader(table.Row{"Theme", "Mentions", "Mean Score", "High Ratings", "Low Ratings"})
	for _, s := range report.Themes {
		themes.AppendRow(table.Row{s.Theme, s.Count, fmt.Sprintf("%.3f", s.MeanScore),
			report.HighRatingThemes[s.Theme], report.LowRatingThemes[s.Theme]})
	}
	b.WriteString(themes.Render())
	b.WriteString("\n\n")

	if len(report.CoOccurrence) > 0 {
		names := report.ThemeNames()
		co := newTable("Theme Co-occurrence")
		header := table.Row{""}
		for _, n := range names {
			header = append(header, n)
		}
		co.AppendHeader(header)
		for _, row := range names {
			r := table.Row{row}
			for _, col := range names {
				r = append(r, report.CoOccurrence[row][col])
			}
			co.AppendRow(r)
		}
		b.WriteString(co.Render())
		b.WriteString("\n\n")
	}

	monthly := newTable("Monthly")
	monthly.AppendHeader(table.Row{"Month", "Reviews", "Mean Score", "Mean Rating"})
	for _, m := range report.Monthly {
		monthly.AppendRow(table.Row{m.Month, m.Reviews, fmt.Sprintf("%.3f", m.MeanScore), fmt.Sprintf("%.2f", m.MeanRating)})
	}
	monthly.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignLeft}})
	b.WriteString(monthly.Render())
	b.WriteString("\n\n")

	if report.Trend != nil {
		t := report.Trend
		b.WriteString(fmt.Sprintf("Trend (%s to %s):\n", t.FirstMonth, t.LastMonth))
		b.WriteString(fmt.Sprintf("  Sentiment: %s (%+.2f)\n", Direction(t.ScoreChange), t.ScoreChange))
		b.WriteString(fmt.Sprintf("  Rating:    %s (%+.2f)\n", Direction(t.RatingChange), t.RatingChange))
	}

	if low := topN(report.LowRatingThemes, 3); len(low) > 0 {
		b.WriteString("\nMost mentioned in low ratings:\n")
		for i, name := range low {
			b.WriteString(fmt.Sprintf("  %d. %s (%d)\n", i+1, name, report.LowRatingThemes[name]))
		}
	}
	return b.String()
}

// topN returns up to n keys by descending count, ties by name.
func topN(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
