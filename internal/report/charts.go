package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	_ "gonum.org/v1/plot/vg/vgimg" // png output
)

// Chart file names.
const (
	ThemeFrequencyChart   = "theme_frequency.png"
	ThemeSentimentChart   = "theme_sentiment.png"
	MonthlySentimentChart = "monthly_sentiment.png"
	MonthlyRatingChart    = "monthly_rating.png"
	ScoreRatingChart      = "sentiment_vs_rating.png"
)

var (
	barColor      = color.RGBA{R: 76, G: 114, B: 176, A: 255}
	positiveColor = color.RGBA{R: 85, G: 168, B: 104, A: 255}
	negativeColor = color.RGBA{R: 196, G: 78, B: 82, A: 255}
)

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 6 * vg.Inch
)

// WriteCharts renders every chart that has data into dir and returns the
// paths written.
func WriteCharts(report *Report, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating chart directory: %w", err)
	}

	charts := []struct {
		file  string
		build func(*Report) (*plot.Plot, error)
	}{
		{ThemeFrequencyChart, themeFrequencyPlot},
		{ThemeSentimentChart, themeSentimentPlot},
		{MonthlySentimentChart, monthlyPlot("Average Sentiment Score Over Time", "Average Sentiment Score", func(m MonthStats) float64 { return m.MeanScore })},
		{MonthlyRatingChart, monthlyPlot("Average Rating Over Time", "Average Rating", func(m MonthStats) float64 { return m.MeanRating })},
		{ScoreRatingChart, scoreRatingPlot},
	}

	var written []string
	for _, c := range charts {
		p, err := c.build(report)
		if err != nil {
			return written, fmt.Errorf("building %s: %w", c.file, err)
		}
		if p == nil {
			continue
		}
		path := filepath.Join(dir, c.file)
		if err := p.Save(chartWidth, chartHeight, path); err != nil {
			return written, fmt.Errorf("saving %s: %w", c.file, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func themeFrequencyPlot(r *Report) (*plot.Plot, error) {
	if len(r.Themes) == 0 {
		return nil, nil
	}
	values := make(plotter.Values, len(r.Themes))
	for i, t := range r.Themes {
		values[i] = float64(t.Count)
	}
	p := plot.New()
	p.Title.Text = "Theme Frequency Analysis"
	p.Y.Label.Text = "Number of Mentions"
	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return nil, err
	}
	bars.Color = barColor
	p.Add(bars)
	p.NominalX(r.ThemeNames()...)
	return p, nil
}

// themeSentimentPlot colours themes below 0.5 as negative.
func themeSentimentPlot(r *Report) (*plot.Plot, error) {
	if len(r.Themes) == 0 {
		return nil, nil
	}
	p := plot.New()
	p.Title.Text = "Average Sentiment Score by Theme"
	p.Y.Label.Text = "Average Sentiment"
	p.Y.Min, p.Y.Max = 0, 1

	for i, t := range r.Themes {
		values := make(plotter.Values, len(r.Themes))
		values[i] = t.MeanScore
		bars, err := plotter.NewBarChart(values, vg.Points(30))
		if err != nil {
			return nil, err
		}
		bars.Color = positiveColor
		if t.MeanScore < 0.5 {
			bars.Color = negativeColor
		}
		bars.LineStyle.Width = 0
		p.Add(bars)
	}
	p.NominalX(r.ThemeNames()...)
	return p, nil
}

func monthlyPlot(title, ylabel string, value func(MonthStats) float64) func(*Report) (*plot.Plot, error) {
	return func(r *Report) (*plot.Plot, error) {
		if len(r.Monthly) == 0 {
			return nil, nil
		}
		pts := make(plotter.XYs, len(r.Monthly))
		months := make([]string, len(r.Monthly))
		for i, m := range r.Monthly {
			pts[i].X = float64(i)
			pts[i].Y = value(m)
			months[i] = m.Month
		}
		p := plot.New()
		p.Title.Text = title
		p.X.Label.Text = "Month"
		p.Y.Label.Text = ylabel
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, err
		}
		line.Color = barColor
		points.Color = barColor
		p.Add(plotter.NewGrid(), line, points)
		p.NominalX(months...)
		return p, nil
	}
}

func scoreRatingPlot(r *Report) (*plot.Plot, error) {
	var pts plotter.XYs
	for _, s := range r.points {
		pts = append(pts, plotter.XY{X: s[0], Y: s[1]})
	}
	if len(pts) == 0 {
		return nil, nil
	}
	p := plot.New()
	p.Title.Text = "Correlation between Sentiment Score and Rating"
	if r.Correlation != nil {
		p.Title.Text += fmt.Sprintf(" (r = %.2f)", *r.Correlation)
	}
	p.X.Label.Text = "Sentiment Score"
	p.Y.Label.Text = "User Rating"
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.Color = color.RGBA{R: 76, G: 114, B: 176, A: 128}
	p.Add(plotter.NewGrid(), scatter)
	return p, nil
}
