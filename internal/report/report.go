// Package report aggregates enriched reviews into summary statistics, tables
// and charts.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/reviewlens/reviewlens/internal/review"
)

// Output file names, written into the visualizations directory.
const (
	JSONFile     = "report.json"
	TextFile     = "report.txt"
	WorkbookFile = "report.xlsx"
)

// Report is the aggregate view of one set of enriched reviews.
type Report struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`

	Total       int      `json:"total"`
	Errors      int      `json:"sentiment_errors"`
	MeanScore   float64  `json:"mean_sentiment_score"`
	MeanRating  float64  `json:"mean_rating"`
	// Correlation is Pearson's r between score and rating; nil when undefined.
	Correlation *float64 `json:"score_rating_correlation,omitempty"`

	Banks            []BankStats               `json:"banks"`
	Themes           []ThemeStats              `json:"themes"`
	CoOccurrence     map[string]map[string]int `json:"theme_co_occurrence"`
	Monthly          []MonthStats              `json:"monthly"`
	HighRatingThemes map[string]int            `json:"high_rating_themes"`
	LowRatingThemes  map[string]int            `json:"low_rating_themes"`
	Trend            *Trend                    `json:"trend,omitempty"`

	points [][2]float64 // (score, rating) pairs for the scatter chart
}

// BankStats summarizes one bank.
type BankStats struct {
	Bank       string  `json:"bank"`
	Reviews    int     `json:"reviews"`
	Positive   int     `json:"positive"`
	Negative   int     `json:"negative"`
	Errors     int     `json:"errors"`
	MeanScore  float64 `json:"mean_sentiment_score"`
	MeanRating float64 `json:"mean_rating"`
}

// ThemeStats summarizes one theme.
type ThemeStats struct {
	Theme     string  `json:"theme"`
	Count     int     `json:"count"`
	MeanScore float64 `json:"mean_sentiment_score"`
}

// MonthStats summarizes one calendar month.
type MonthStats struct {
	Month      string  `json:"month"`
	Reviews    int     `json:"reviews"`
	MeanScore  float64 `json:"mean_sentiment_score"`
	MeanRating float64 `json:"mean_rating"`
}

// Trend compares the first and last month.
type Trend struct {
	FirstMonth   string  `json:"first_month"`
	LastMonth    string  `json:"last_month"`
	ScoreChange  float64 `json:"sentiment_change"`
	RatingChange float64 `json:"rating_change"`
}

// Direction describes a change as a word.
func Direction(delta float64) string {
	switch {
	case delta > 0:
		return "Improving"
	case delta < 0:
		return "Declining"
	default:
		return "Stable"
	}
}

// mean accumulates a running average.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) { m.sum += v; m.n++ }

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// Compute aggregates joined reviews. Rows whose sentiment failed count
// toward totals and ratings but not toward score averages.
func Compute(rows []review.Enriched) *Report {
	r := &Report{
		Version:          "1",
		GeneratedAt:      time.Now(),
		Total:            len(rows),
		CoOccurrence:     map[string]map[string]int{},
		HighRatingThemes: map[string]int{},
		LowRatingThemes:  map[string]int{},
	}

	var score, rating mean
	banks := map[string]*BankStats{}
	bankScore := map[string]*mean{}
	bankRating := map[string]*mean{}
	themeCount := map[string]int{}
	themeScore := map[string]*mean{}
	monthScore := map[string]*mean{}
	monthRating := map[string]*mean{}
	var xs, ys []float64

	for _, row := range rows {
		scored := row.Label != review.LabelError
		rating.add(float64(row.Rating))

		b, ok := banks[row.Bank]
		if !ok {
			b = &BankStats{Bank: row.Bank}
			banks[row.Bank] = b
			bankScore[row.Bank] = &mean{}
			bankRating[row.Bank] = &mean{}
		}
		b.Reviews++
		bankRating[row.Bank].add(float64(row.Rating))
		switch row.Label {
		case review.LabelPositive:
			b.Positive++
		case review.LabelNegative:
			b.Negative++
		default:
			b.Errors++
		}

		if scored {
			score.add(row.Score)
			bankScore[row.Bank].add(row.Score)
			xs = append(xs, row.Score)
			ys = append(ys, float64(row.Rating))
		} else {
			r.Errors++
		}

		if m := review.Month(row.Date); m != "" {
			if monthRating[m] == nil {
				monthRating[m] = &mean{}
				monthScore[m] = &mean{}
			}
			monthRating[m].add(float64(row.Rating))
			if scored {
				monthScore[m].add(row.Score)
			}
		}

		for _, t := range row.Themes {
			themeCount[t]++
			if themeScore[t] == nil {
				themeScore[t] = &mean{}
			}
			if scored {
				themeScore[t].add(row.Score)
			}
			switch {
			case row.Rating >= 4:
				r.HighRatingThemes[t]++
			case row.Rating <= 2:
				r.LowRatingThemes[t]++
			}
			for _, other := range row.Themes {
				if other == t {
					continue
				}
				if r.CoOccurrence[t] == nil {
					r.CoOccurrence[t] = map[string]int{}
				}
				r.CoOccurrence[t][other]++
			}
		}
	}

	r.MeanScore = score.value()
	r.MeanRating = rating.value()
	if c, ok := Pearson(xs, ys); ok {
		r.Correlation = &c
	}
	for i := range xs {
		r.points = append(r.points, [2]float64{xs[i], ys[i]})
	}

	for name, b := range banks {
		b.MeanScore = bankScore[name].value()
		b.MeanRating = bankRating[name].value()
		r.Banks = append(r.Banks, *b)
	}
	sort.Slice(r.Banks, func(i, j int) bool { return r.Banks[i].Bank < r.Banks[j].Bank })

	for t, n := range themeCount {
		r.Themes = append(r.Themes, ThemeStats{Theme: t, Count: n, MeanScore: themeScore[t].value()})
	}
	sort.Slice(r.Themes, func(i, j int) bool {
		if r.Themes[i].Count != r.Themes[j].Count {
			return r.Themes[i].Count > r.Themes[j].Count
		}
		return r.Themes[i].Theme < r.Themes[j].Theme
	})

	for m, rm := range monthRating {
		r.Monthly = append(r.Monthly, MonthStats{
			Month:      m,
			Reviews:    rm.n,
			MeanScore:  monthScore[m].value(),
			MeanRating: rm.value(),
		})
	}
	sort.Slice(r.Monthly, func(i, j int) bool { return r.Monthly[i].Month < r.Monthly[j].Month })

	if n := len(r.Monthly); n > 0 {
		first, last := r.Monthly[0], r.Monthly[n-1]
		r.Trend = &Trend{
			FirstMonth:   first.Month,
			LastMonth:    last.Month,
			ScoreChange:  last.MeanScore - first.MeanScore,
			RatingChange: last.MeanRating - first.MeanRating,
		}
	}
	return r
}

// Pearson returns the correlation coefficient of xs and ys. ok is false when
// fewer than two pairs exist or either series is constant.
func Pearson(xs, ys []float64) (r float64, ok bool) {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0, false
	}
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	return sxy / math.Sqrt(sxx*syy), true
}

// ThemeNames returns the themes in frequency order.
func (r *Report) ThemeNames() []string {
	names := make([]string, len(r.Themes))
	for i, t := range r.Themes {
		names[i] = t.Theme
	}
	return names
}

// WriteJSON writes the report as JSON.
func WriteJSON(report *Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON reads a report from a JSON file.
func ReadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &Report{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}
