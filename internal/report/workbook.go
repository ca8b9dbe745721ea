package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook writes one sheet per aggregate.
func WriteWorkbook(report *Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{"Summary", summaryRows(report)},
		{"Banks", bankRows(report)},
		{"Themes", themeRows(report)},
		{"Co-occurrence", coOccurrenceRows(report)},
		{"Monthly", monthlyRows(report)},
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("renaming sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", s.name, err)
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			row := row
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return fmt.Errorf("writing sheet %s: %w", s.name, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func summaryRows(r *Report) [][]interface{} {
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Reviews analyzed", r.Total},
		{"Sentiment errors", r.Errors},
		{"Average sentiment score", r.MeanScore},
		{"Average rating", r.MeanRating},
	}
	if r.Correlation != nil {
		rows = append(rows, []interface{}{"Score/rating correlation", *r.Correlation})
	}
	if r.Trend != nil {
		rows = append(rows,
			[]interface{}{"Sentiment change", r.Trend.ScoreChange},
			[]interface{}{"Rating change", r.Trend.RatingChange})
	}
	return rows
}

func bankRows(r *Report) [][]interface{} {
	rows := [][]interface{}{{"Bank", "Reviews", "Positive", "Negative", "Errors", "Mean Score", "Mean Rating"}}
	for _, b := range r.Banks {
		rows = append(rows, []interface{}{b.Bank, b.Reviews, b.Positive, b.Negative, b.Errors, b.MeanScore, b.MeanRating})
	}
	return rows
}

func themeRows(r *Report) [][]interface{} {
	rows := [][]interface{}{{"Theme", "Mentions", "Mean Score", "High Ratings", "Low Ratings"}}
	for _, t := range r.Themes {
		rows = append(rows, []interface{}{t.Theme, t.Count, t.MeanScore, r.HighRatingThemes[t.Theme], r.LowRatingThemes[t.Theme]})
	}
	return rows
}

func coOccurrenceRows(r *Report) [][]interface{} {
	names := r.ThemeNames()
	header := []interface{}{""}
	for _, n := range names {
		header = append(header, n)
	}
	rows := [][]interface{}{header}
	for _, a := range names {
		row := []interface{}{a}
		for _, b := range names {
			row = append(row, r.CoOccurrence[a][b])
		}
		rows = append(rows, row)
	}
	return rows
}

func monthlyRows(r *Report) [][]interface{} {
	rows := [][]interface{}{{"Month", "Reviews", "Mean Score", "Mean Rating"}}
	for _, m := range r.Monthly {
		rows = append(rows, []interface{}{m.Month, m.Reviews, m.MeanScore, m.MeanRating})
	}
	return rows
}
