package review

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoInput is returned when a stage's input file does not exist.
var ErrNoInput = errors.New("input file not found")

var (
	RawHeader       = []string{"review_text", "rating", "date", "bank_name", "source"}
	ProcessedHeader = []string{"review_id", "review", "rating", "date", "bank", "source"}
	SentimentHeader = []string{"review_id", "review_text", "rating", "bank", "date", "sentiment_label", "sentiment_score"}
	ThemeHeader     = []string{"review_id", "review_text", "rating", "bank", "date", "themes"}
	KeywordHeader   = []string{"theme", "keywords"}
)

// legacy column names accepted when loading raw files
var columnAliases = map[string]string{
	"review_text": "review",
	"bank_name":   "bank",
}

// table is a CSV file read into rows addressed by column name.
type table struct {
	path    string
	columns map[string]int
	rows    [][]string
}

func (t *table) get(row []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (t *table) require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := t.columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing columns %s", t.path, strings.Join(missing, ", "))
	}
	return nil
}

func readTable(path string, aliases map[string]string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoInput, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return &table{path: path, columns: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	t := &table{path: path, columns: make(map[string]int, len(header))}
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		t.columns[name] = i
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func writeTable(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("writing header of %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// ReadRaw loads a raw review file. Both legacy (review_text, bank_name) and
// canonical (review, bank) column names are accepted.
func ReadRaw(path string) ([]RawReview, error) {
	t, err := readTable(path, columnAliases)
	if err != nil {
		return nil, err
	}
	if len(t.rows) == 0 && len(t.columns) == 0 {
		return nil, nil
	}
	if err := t.require("review", "rating", "date", "bank"); err != nil {
		return nil, err
	}
	out := make([]RawReview, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, RawReview{
			ReviewText: t.get(row, "review"),
			Rating:     t.get(row, "rating"),
			Date:       t.get(row, "date"),
			BankName:   t.get(row, "bank"),
			Source:     t.get(row, "source"),
		})
	}
	return out, nil
}

// WriteRaw writes collector output.
func WriteRaw(path string, rows []RawReview) error {
	recs := make([][]string, len(rows))
	for i, r := range rows {
		recs[i] = []string{r.ReviewText, r.Rating, r.Date, r.BankName, r.Source}
	}
	return writeTable(path, RawHeader, recs)
}

// ReadProcessed loads the canonical processed file.
func ReadProcessed(path string) ([]ProcessedReview, error) {
	t, err := readTable(path, nil)
	if err != nil {
		return nil, err
	}
	if len(t.columns) == 0 {
		return nil, nil
	}
	if err := t.require(ProcessedHeader...); err != nil {
		return nil, err
	}
	out := make([]ProcessedReview, 0, len(t.rows))
	for i, row := range t.rows {
		rating, err := strconv.Atoi(t.get(row, "rating"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: rating: %w", path, i+2, err)
		}
		out = append(out, ProcessedReview{
			ReviewID: t.get(row, "review_id"),
			Review:   t.get(row, "review"),
			Rating:   rating,
			Date:     t.get(row, "date"),
			Bank:     t.get(row, "bank"),
			Source:   t.get(row, "source"),
		})
	}
	return out, nil
}

// WriteProcessed writes cleaned reviews.
func WriteProcessed(path string, rows []ProcessedReview) error {
	recs := make([][]string, len(rows))
	for i, r := range rows {
		recs[i] = []string{r.ReviewID, r.Review, strconv.Itoa(r.Rating), r.Date, r.Bank, r.Source}
	}
	return writeTable(path, ProcessedHeader, recs)
}

// ReadSentiment loads sentiment results.
func ReadSentiment(path string) ([]SentimentRecord, error) {
	t, err := readTable(path, nil)
	if err != nil {
		return nil, err
	}
	if len(t.columns) == 0 {
		return nil, nil
	}
	if err := t.require(SentimentHeader...); err != nil {
		return nil, err
	}
	out := make([]SentimentRecord, 0, len(t.rows))
	for i, row := range t.rows {
		rating, err := strconv.Atoi(t.get(row, "rating"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: rating: %w", path, i+2, err)
		}
		score, err := strconv.ParseFloat(t.get(row, "sentiment_score"), 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: sentiment_score: %w", path, i+2, err)
		}
		out = append(out, SentimentRecord{
			ReviewID:   t.get(row, "review_id"),
			ReviewText: t.get(row, "review_text"),
			Rating:     rating,
			Bank:       t.get(row, "bank"),
			Date:       t.get(row, "date"),
			Label:      t.get(row, "sentiment_label"),
			Score:      score,
		})
	}
	return out, nil
}

// WriteSentiment writes sentiment results.
func WriteSentiment(path string, rows []SentimentRecord) error {
	recs := make([][]string, len(rows))
	for i, r := range rows {
		recs[i] = []string{
			r.ReviewID, r.ReviewText, strconv.Itoa(r.Rating), r.Bank, r.Date,
			r.Label, strconv.FormatFloat(r.Score, 'f', -1, 64),
		}
	}
	return writeTable(path, SentimentHeader, recs)
}

// ReadThemes loads thematic results. The themes column is decoded with
// SplitThemes; an empty column yields a nil slice.
func ReadThemes(path string) ([]ThemeRecord, error) {
	t, err := readTable(path, nil)
	if err != nil {
		return nil, err
	}
	if len(t.columns) == 0 {
		return nil, nil
	}
	if err := t.require(ThemeHeader...); err != nil {
		return nil, err
	}
	out := make([]ThemeRecord, 0, len(t.rows))
	for i, row := range t.rows {
		rating, err := strconv.Atoi(t.get(row, "rating"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: rating: %w", path, i+2, err)
		}
		out = append(out, ThemeRecord{
			ReviewID:   t.get(row, "review_id"),
			ReviewText: t.get(row, "review_text"),
			Rating:     rating,
			Bank:       t.get(row, "bank"),
			Date:       t.get(row, "date"),
			Themes:     SplitThemes(t.get(row, "themes")),
		})
	}
	return out, nil
}

// WriteThemes writes thematic results.
func WriteThemes(path string, rows []ThemeRecord) error {
	recs := make([][]string, len(rows))
	for i, r := range rows {
		recs[i] = []string{r.ReviewID, r.ReviewText, strconv.Itoa(r.Rating), r.Bank, r.Date, JoinThemes(r.Themes)}
	}
	return writeTable(path, ThemeHeader, recs)
}

// ThemeKeywords pairs a theme with the corpus keywords seen in its reviews.
type ThemeKeywords struct {
	Theme    string
	Keywords []string
}

// WriteThemeKeywords writes the theme keyword side output.
func WriteThemeKeywords(path string, rows []ThemeKeywords) error {
	recs := make([][]string, len(rows))
	for i, r := range rows {
		recs[i] = []string{r.Theme, strings.Join(r.Keywords, ", ")}
	}
	return writeTable(path, KeywordHeader, recs)
}

// ReadThemeKeywords loads the theme keyword side output.
func ReadThemeKeywords(path string) ([]ThemeKeywords, error) {
	t, err := readTable(path, nil)
	if err != nil {
		return nil, err
	}
	if len(t.columns) == 0 {
		return nil, nil
	}
	if err := t.require(KeywordHeader...); err != nil {
		return nil, err
	}
	out := make([]ThemeKeywords, 0, len(t.rows))
	for _, row := range t.rows {
		tk := ThemeKeywords{Theme: t.get(row, "theme")}
		for _, k := range strings.Split(t.get(row, "keywords"), ",") {
			if k = strings.TrimSpace(k); k != "" {
				tk.Keywords = append(tk.Keywords, k)
			}
		}
		out = append(out, tk)
	}
	return out, nil
}

// Join pairs sentiment and theme records on ReviewID, in sentiment order.
// It also reports how many records had no counterpart on either side.
func Join(sentiments []SentimentRecord, themes []ThemeRecord) (joined []Enriched, onlySentiment, onlyThemes int) {
	byID := make(map[string]ThemeRecord, len(themes))
	for _, t := range themes {
		byID[t.ReviewID] = t
	}
	matched := make(map[string]bool, len(sentiments))
	for _, s := range sentiments {
		t, ok := byID[s.ReviewID]
		if !ok {
			onlySentiment++
			continue
		}
		matched[s.ReviewID] = true
		joined = append(joined, Enriched{SentimentRecord: s, Themes: t.Themes})
	}
	for id := range byID {
		if !matched[id] {
			onlyThemes++
		}
	}
	return joined, onlySentiment, onlyThemes
}
