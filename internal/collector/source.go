package collector

import (
	"context"
	"time"
)

// Sort orders supported by review sources.
type Sort int

const (
	SortMostRelevant Sort = 1
	SortNewest       Sort = 2
	SortRating       Sort = 3
)

// FetchRequest describes one review fetch for an application.
type FetchRequest struct {
	AppID   string
	Lang    string
	Country string
	Sort    Sort
	Count   int
}

// Fetched is one review as returned by a source.
type Fetched struct {
	ID         string
	UserName   string
	Content    string
	Score      int
	At         time.Time
	ThumbsUp   int
	AppVersion string
}

// Source fetches reviews from an external store. Implementations are treated
// as unreliable; the collector retries them.
type Source interface {
	Fetch(ctx context.Context, req FetchRequest) ([]Fetched, error)
}
