// Package review holds the record types exchanged between pipeline stages
// and their CSV encodings.
package review

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Sentiment labels.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelError    = "error"
)

// Theme fallbacks.
const (
	ThemeOther = "Other"
	ThemeError = "Error"
)

// SourceGooglePlay is the value of the source column for scraped rows.
const SourceGooglePlay = "Google Play"

// RawReview is one scraped review as written by the collector. Values are kept
// as text; validation happens in the cleaner.
type RawReview struct {
	ReviewText string
	Rating     string
	Date       string
	BankName   string
	Source     string
}

// ProcessedReview is one cleaned review in the canonical processed file.
type ProcessedReview struct {
	ReviewID string
	Review   string
	Rating   int
	Date     string // YYYY-MM-DD
	Bank     string
	Source   string
}

// SentimentRecord is one scored review.
type SentimentRecord struct {
	ReviewID   string
	ReviewText string
	Rating     int
	Bank       string
	Date       string
	Label      string
	Score      float64
}

// ThemeRecord is one review with its assigned themes.
type ThemeRecord struct {
	ReviewID   string
	ReviewText string
	Rating     int
	Bank       string
	Date       string
	Themes     []string
}

// Enriched is a sentiment record joined with its themes.
type Enriched struct {
	SentimentRecord
	Themes []string
}

// Metadata is the JSON sidecar written next to each raw review file.
type Metadata struct {
	Bank         string      `json:"bank"`
	AppID        string      `json:"app_id"`
	RunID        string      `json:"run_id"`
	TotalReviews int         `json:"total_reviews"`
	ScrapeDate   string      `json:"scrape_date"`
	ConfigUsed   interface{} `json:"config_used"`
}

const themeSeparator = "; "

// JoinThemes encodes a theme list for storage.
func JoinThemes(themes []string) string {
	return strings.Join(themes, themeSeparator)
}

// SplitThemes decodes a stored theme list. Blank entries are dropped.
func SplitThemes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ContentID derives the stable identifier of a cleaned review.
func ContentID(bank, date, text string) string {
	sum := sha256.Sum256([]byte(bank + "\x1f" + date + "\x1f" + text))
	return hex.EncodeToString(sum[:8])
}

// AssignIDs sets ReviewID on every row, suffixing collisions in row order.
func AssignIDs(rows []ProcessedReview) {
	seen := make(map[string]int, len(rows))
	for i := range rows {
		id := ContentID(rows[i].Bank, rows[i].Date, rows[i].Review)
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s-%d", id, n)
		}
		rows[i].ReviewID = id
	}
}

// Month returns the YYYY-MM bucket of an ISO date, or "" when unparseable.
func Month(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return t.Format("2006-01")
}
