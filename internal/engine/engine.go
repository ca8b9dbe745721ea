// Package engine runs the review pipeline stages and records their progress.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reviewlens/reviewlens/internal/aws"
	"github.com/reviewlens/reviewlens/internal/cleaner"
	"github.com/reviewlens/reviewlens/internal/collector"
	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/dump"
	"github.com/reviewlens/reviewlens/internal/lock"
	"github.com/reviewlens/reviewlens/internal/mirror"
	"github.com/reviewlens/reviewlens/internal/persist"
	"github.com/reviewlens/reviewlens/internal/report"
	"github.com/reviewlens/reviewlens/internal/sentiment"
	"github.com/reviewlens/reviewlens/internal/state"
	"github.com/reviewlens/reviewlens/internal/store"
	"github.com/reviewlens/reviewlens/internal/themes"
)

// Store is the database handle used by the persist stage.
type Store interface {
	store.Ledger
	store.Repository
	Close()
}

// Engine is the pipeline shared by every command.
type Engine struct {
	Config config.Config
	Logger *slog.Logger
	State  *state.State

	// Constructors for external systems.
	NewSource     func(cfg config.Config) collector.Source
	NewClassifier func(cfg config.Config) (sentiment.Classifier, error)
	OpenStore     func(ctx context.Context, cfg config.Config) (Store, error)
	OpenMirror    func(ctx context.Context, cfg config.Config) (mirror.Writer, error)
	NewUploader   func(ctx context.Context, cfg config.Config) (dump.Uploader, error)
	Runner        dump.Runner

	statePath string
	lockPath  string
}

// New creates an Engine wired to the real external systems.
func New(cfg config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		Config:        cfg,
		Logger:        logger,
		NewSource:     defaultSource,
		NewClassifier: defaultClassifier,
		OpenStore:     defaultStore,
		OpenMirror:    defaultMirror,
		NewUploader:   defaultUploader,
		Runner:        dump.ExecRunner{},
		statePath:     state.Path(cfg),
		lockPath:      lock.Path(cfg),
	}
}

func defaultSource(cfg config.Config) collector.Source {
	s := cfg.Scraper
	return collector.NewPlayStore(s.BaseURL, s.PageSize, s.RequestsPerSecond)
}

func defaultClassifier(cfg config.Config) (sentiment.Classifier, error) {
	return sentiment.New(cfg.Sentiment)
}

func defaultStore(ctx context.Context, cfg config.Config) (Store, error) {
	return store.Connect(ctx, cfg.Database.DSN())
}

func defaultMirror(ctx context.Context, cfg config.Config) (mirror.Writer, error) {
	return mirror.NewMongoWriter(ctx, cfg.Mirror.URI, cfg.Mirror.Database)
}

func defaultUploader(ctx context.Context, cfg config.Config) (dump.Uploader, error) {
	client, err := aws.NewSDKClient(ctx, cfg.Dump.AWSProfile, cfg.Dump.AWSRegion)
	if err != nil {
		return nil, err
	}
	return aws.NewDumpUploader(client, cfg.Dump.S3Bucket, cfg.Dump.S3Prefix), nil
}

// LoadState loads the stage state from disk.
func (e *Engine) LoadState() (*state.State, error) {
	st, err := state.Load(e.statePath)
	if err != nil {
		return nil, err
	}
	e.State = st
	return st, nil
}

// SaveState persists the current stage state to disk.
func (e *Engine) SaveState() error {
	if e.State == nil {
		return fmt.Errorf("no state to save")
	}
	return e.State.Save(e.statePath)
}

// Lock acquires the run lock. The returned func releases it.
func (e *Engine) Lock() (func(), error) {
	if err := lock.Acquire(e.lockPath); err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Release(e.lockPath); err != nil {
			e.Logger.Warn("releasing lock", "error", err)
		}
	}, nil
}

// track records a stage as running, then as complete or failed.
func (e *Engine) track(stage state.Stage, fn func() (records int, outputs []string, err error)) error {
	if e.State == nil {
		if _, err := e.LoadState(); err != nil {
			return err
		}
	}
	e.State.Start(stage)
	e.saveState()

	e.Logger.Info("stage started", "stage", stage)
	records, outputs, err := fn()
	if err != nil {
		e.State.Fail(stage, err)
		e.saveState()
		e.Logger.Error("stage failed", "stage", stage, "error", err)
		return err
	}
	e.State.Complete(stage, records, outputs...)
	e.saveState()
	e.Logger.Info("stage complete", "stage", stage, "records", records)
	return nil
}

func (e *Engine) saveState() {
	if err := e.SaveState(); err != nil {
		e.Logger.Warn("saving state", "error", err)
	}
}

// Collect scrapes every configured bank.
func (e *Engine) Collect(ctx context.Context) (collector.Result, error) {
	var res collector.Result
	err := e.track(state.StageCollect, func() (int, []string, error) {
		var err error
		res, err = collector.New(e.Config, e.NewSource(e.Config), e.Logger).Collect(ctx)
		if err != nil {
			return 0, nil, err
		}
		if e.State != nil {
			e.State.LastRunID = res.RunID
		}
		var files []string
		for _, b := range res.Banks {
			if b.CSVPath != "" {
				files = append(files, b.CSVPath)
			}
		}
		if len(files) == 0 {
			return 0, nil, fmt.Errorf("no reviews collected for any bank")
		}
		return res.Total, files, nil
	})
	return res, err
}

// Clean deduplicates and normalizes the raw files.
func (e *Engine) Clean(ctx context.Context) (cleaner.Stats, error) {
	var st cleaner.Stats
	err := e.track(state.StageClean, func() (int, []string, error) {
		var err error
		st, err = cleaner.New(e.Config, e.Logger).Run(ctx)
		return st.Output, []string{cleaner.ProcessedFile}, err
	})
	return st, err
}

// Sentiment scores the processed reviews.
func (e *Engine) Sentiment(ctx context.Context) (sentiment.Summary, error) {
	var sum sentiment.Summary
	err := e.track(state.StageSentiment, func() (int, []string, error) {
		cls, err := e.NewClassifier(e.Config)
		if err != nil {
			return 0, nil, fmt.Errorf("creating classifier: %w", err)
		}
		sum, err = sentiment.NewScorer(e.Config, cls, e.Logger).Run(ctx)
		return sum.Total, []string{sentiment.OutputFile}, err
	})
	return sum, err
}

// Themes extracts keywords and assigns themes.
func (e *Engine) Themes(ctx context.Context) (themes.Summary, error) {
	var sum themes.Summary
	err := e.track(state.StageThemes, func() (int, []string, error) {
		var err error
		sum, err = themes.NewAnalyzer(e.Config, e.Logger).Run(ctx)
		return sum.Total, []string{themes.OutputFile, themes.KeywordsFile}, err
	})
	return sum, err
}

// Migrate applies pending schema migrations and returns the versions run.
func (e *Engine) Migrate(ctx context.Context) ([]string, error) {
	db, err := e.OpenStore(ctx, e.Config)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return e.migrate(ctx, db)
}

func (e *Engine) migrate(ctx context.Context, db Store) ([]string, error) {
	m := store.NewMigrator(db, store.MigrationsFS(e.Config.Database.MigrationsDir), e.Logger)
	ran, err := m.Up(ctx)
	if err != nil {
		return ran, fmt.Errorf("applying migrations: %w", err)
	}
	return ran, nil
}

// Persist loads the enriched reviews into the database, applying migrations
// first unless skipMigrate is set. One connection serves the whole stage.
func (e *Engine) Persist(ctx context.Context, skipMigrate bool) (persist.Stats, error) {
	var st persist.Stats
	err := e.track(state.StagePersist, func() (int, []string, error) {
		db, err := e.OpenStore(ctx, e.Config)
		if err != nil {
			return 0, nil, err
		}
		defer db.Close()

		if !skipMigrate {
			if _, err := e.migrate(ctx, db); err != nil {
				return 0, nil, err
			}
		}

		var mw mirror.Writer
		if e.Config.Mirror.URI != "" {
			if mw, err = e.OpenMirror(ctx, e.Config); err != nil {
				return 0, nil, err
			}
			defer func() {
				if err := mw.Close(ctx); err != nil {
					e.Logger.Warn("closing mirror", "error", err)
				}
			}()
		}

		st, err = persist.New(e.Config, db, mw, e.Logger).Run(ctx)
		return st.Inserted, nil, err
	})
	return st, err
}

// Dump writes schema and data dumps, uploading them when a bucket is set.
func (e *Engine) Dump(ctx context.Context) (dump.Result, error) {
	var res dump.Result
	err := e.track(state.StageDump, func() (int, []string, error) {
		var up dump.Uploader
		if e.Config.Dump.S3Bucket != "" {
			var err error
			if up, err = e.NewUploader(ctx, e.Config); err != nil {
				return 0, nil, fmt.Errorf("creating uploader: %w", err)
			}
		}
		var err error
		res, err = dump.New(e.Config, e.Runner, up, e.Logger).Dump(ctx)
		return 2, []string{res.SchemaPath, res.DumpPath}, err
	})
	return res, err
}

// Report generates the aggregate report and charts.
func (e *Engine) Report(ctx context.Context) (report.Result, error) {
	var res report.Result
	err := e.track(state.StageReport, func() (int, []string, error) {
		var err error
		res, err = report.NewGenerator(e.Config, e.Logger).Run(ctx)
		if err != nil {
			return 0, res.Files, err
		}
		return res.Report.Total, res.Files, nil
	})
	return res, err
}

// RunOptions selects optional pipeline behaviour.
type RunOptions struct {
	SkipCollect bool
	SkipMigrate bool
	Dump        bool
}

// RunResult collects every stage result of a pipeline run.
type RunResult struct {
	Collect   collector.Result
	Clean     cleaner.Stats
	Sentiment sentiment.Summary
	Themes    themes.Summary
	Persist   persist.Stats
	Report    report.Result
	Dump      dump.Result
	Completed []state.Stage
}

// Run executes the pipeline in order under the run lock and stops at the
// first failing stage. Outputs of earlier stages stay on disk.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	release, err := e.Lock()
	if err != nil {
		return nil, err
	}
	defer release()

	res := &RunResult{}
	steps := []struct {
		stage state.Stage
		skip  bool
		run   func() error
	}{
		{state.StageCollect, opts.SkipCollect, func() (err error) { res.Collect, err = e.Collect(ctx); return }},
		{state.StageClean, false, func() (err error) { res.Clean, err = e.Clean(ctx); return }},
		{state.StageSentiment, false, func() (err error) { res.Sentiment, err = e.Sentiment(ctx); return }},
		{state.StageThemes, false, func() (err error) { res.Themes, err = e.Themes(ctx); return }},
		{state.StagePersist, false, func() (err error) { res.Persist, err = e.Persist(ctx, opts.SkipMigrate); return }},
		{state.StageReport, false, func() (err error) { res.Report, err = e.Report(ctx); return }},
		{state.StageDump, !opts.Dump, func() (err error) { res.Dump, err = e.Dump(ctx); return }},
	}

	for _, s := range steps {
		if s.skip {
			e.Logger.Info("stage skipped", "stage", s.stage)
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.run(); err != nil {
			return res, fmt.Errorf("%s stage: %w", s.stage, err)
		}
		res.Completed = append(res.Completed, s.stage)
	}
	return res, nil
}
