// Package persist loads enriched reviews into the relational store.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/logging"
	"github.com/reviewlens/reviewlens/internal/mirror"
	"github.com/reviewlens/reviewlens/internal/review"
	"github.com/reviewlens/reviewlens/internal/sentiment"
	"github.com/reviewlens/reviewlens/internal/store"
	"github.com/reviewlens/reviewlens/internal/themes"
)

// Stats summarizes one persist run.
type Stats struct {
	Joined             int
	Inserted           int
	SkippedUnknownBank int
	SkippedInvalid     int
	OnlySentiment      int
	OnlyThemes         int
	BanksSeeded        int
	Mirrored           int
	TotalInStore       int64
}

// Persister writes joined records through a Repository and, when set, a
// mirror Writer.
type Persister struct {
	Config config.Config
	Repo   store.Repository
	Mirror mirror.Writer
	Logger *slog.Logger
}

// New creates a Persister. mw may be nil.
func New(cfg config.Config, repo store.Repository, mw mirror.Writer, logger *slog.Logger) *Persister {
	return &Persister{Config: cfg, Repo: repo, Mirror: mw, Logger: logger}
}

// SeedBanks inserts the configured banks, ignoring names already present.
func (p *Persister) SeedBanks(ctx context.Context) (int, error) {
	banks := make([]store.Bank, len(p.Config.Banks))
	for i, b := range p.Config.Banks {
		banks[i] = store.Bank{Name: b.Name, AppID: b.AppID}
	}
	n, err := p.Repo.SeedBanks(ctx, banks)
	if err != nil {
		return n, fmt.Errorf("seeding banks: %w", err)
	}
	p.Logger.Info("bank information inserted", "new", n, "configured", len(banks))
	return n, nil
}

// resolver maps a row's bank label to a bank_id.
type resolver struct {
	cfg    config.Config
	byApp  map[string]store.Bank
	byName map[string]store.Bank
}

func newResolver(cfg config.Config, banks []store.Bank) *resolver {
	r := &resolver{cfg: cfg, byApp: map[string]store.Bank{}, byName: map[string]store.Bank{}}
	for _, b := range banks {
		r.byApp[b.AppID] = b
		r.byName[b.Name] = b
	}
	return r
}

// resolve accepts a configured bank code or name, or a stored bank name.
func (r *resolver) resolve(label string) (store.Bank, bool) {
	if cb, ok := r.cfg.BankByLabel(label); ok {
		if b, ok := r.byApp[cb.AppID]; ok {
			return b, true
		}
		if b, ok := r.byName[cb.Name]; ok {
			return b, true
		}
		return store.Bank{}, false
	}
	b, ok := r.byName[label]
	return b, ok
}

// Insert upserts every joined record whose bank resolves. Unknown banks are
// skipped silently, rows without themes or with a bad date are skipped with a
// warning; either way later rows continue. Store errors abort.
func (p *Persister) Insert(ctx context.Context, joined []review.Enriched) (Stats, error) {
	st := Stats{Joined: len(joined)}
	banks, err := p.Repo.Banks(ctx)
	if err != nil {
		return st, fmt.Errorf("loading banks: %w", err)
	}
	res := newResolver(p.Config, banks)

	var docs []mirror.Document
	for _, e := range joined {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		bank, ok := res.resolve(e.Bank)
		if !ok {
			st.SkippedUnknownBank++
			continue
		}
		if len(e.Themes) == 0 {
			p.Logger.Warn("skipping review without themes", "review_id", e.ReviewID, "text", logging.Excerpt(e.ReviewText))
			st.SkippedInvalid++
			continue
		}
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			p.Logger.Warn("skipping review with invalid date", "review_id", e.ReviewID, "date", e.Date)
			st.SkippedInvalid++
			continue
		}

		row := store.ReviewRow{
			Key:       e.ReviewID,
			BankID:    bank.ID,
			Text:      e.ReviewText,
			Rating:    e.Rating,
			Date:      date,
			Sentiment: e.Label,
			Score:     e.Score,
			Themes:    review.JoinThemes(e.Themes),
		}
		if err := p.Repo.UpsertReview(ctx, row); err != nil {
			return st, err
		}
		st.Inserted++

		if p.Mirror != nil {
			docs = append(docs, mirror.Document{
				ReviewID:       e.ReviewID,
				Bank:           bank.Name,
				AppID:          bank.AppID,
				ReviewText:     e.ReviewText,
				Rating:         e.Rating,
				ReviewDate:     date,
				Sentiment:      e.Label,
				SentimentScore: e.Score,
				Themes:         e.Themes,
			})
		}
	}

	if p.Mirror != nil && len(docs) > 0 {
		if err := p.Mirror.EnsureIndexes(ctx); err != nil {
			return st, err
		}
		n, err := p.Mirror.Upsert(ctx, docs)
		if err != nil {
			return st, err
		}
		st.Mirrored = n
		p.Logger.Info("mirrored reviews", "count", n)
	}
	return st, nil
}

// Run seeds banks, joins the sentiment and theme files on review_id and
// inserts the result. Migrations are applied by the caller.
func (p *Persister) Run(ctx context.Context) (Stats, error) {
	dir := p.Config.Dirs.Processed
	sents, err := review.ReadSentiment(filepath.Join(dir, sentiment.OutputFile))
	if err != nil {
		return Stats{}, fmt.Errorf("loading sentiment results: %w", err)
	}
	ths, err := review.ReadThemes(filepath.Join(dir, themes.OutputFile))
	if err != nil {
		return Stats{}, fmt.Errorf("loading thematic results: %w", err)
	}

	seeded, err := p.SeedBanks(ctx)
	if err != nil {
		return Stats{}, err
	}

	joined, onlySent, onlyThemes := review.Join(sents, ths)
	if onlySent > 0 || onlyThemes > 0 {
		p.Logger.Warn("unmatched review ids", "only_sentiment", onlySent, "only_themes", onlyThemes)
	}

	st, err := p.Insert(ctx, joined)
	st.OnlySentiment = onlySent
	st.OnlyThemes = onlyThemes
	st.BanksSeeded = seeded
	if err != nil {
		return st, fmt.Errorf("inserting reviews: %w", err)
	}

	if st.TotalInStore, err = p.Repo.CountReviews(ctx); err != nil {
		return st, err
	}
	p.Logger.Info("inserted reviews",
		"joined", st.Joined,
		"inserted", st.Inserted,
		"skipped_unknown_bank", st.SkippedUnknownBank,
		"skipped_invalid", st.SkippedInvalid,
		"total_in_store", st.TotalInStore)
	return st, nil
}
