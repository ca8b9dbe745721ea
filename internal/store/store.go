// Package store persists banks and enriched reviews in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Bank is a row of the banks table.
type Bank struct {
	ID    int
	Name  string
	AppID string
}

// ReviewRow is a row of the reviews table. Key is the stable review id
// assigned during cleaning.
type ReviewRow struct {
	Key       string
	BankID    int
	Text      string
	Rating    int
	Date      time.Time
	Sentiment string
	Score     float64
	Themes    string
}

// Repository is the data access used by the persist stage.
type Repository interface {
	SeedBanks(ctx context.Context, banks []Bank) (int, error)
	Banks(ctx context.Context) ([]Bank, error)
	UpsertReview(ctx context.Context, r ReviewRow) error
	CountReviews(ctx context.Context) (int64, error)
}

// DB is a single-connection pool shared by every statement of a run.
type DB struct {
	pool *pgxpool.Pool
}

// Connect opens and pings the database.
func Connect(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.MaxConns = 1
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close releases the pool.
func (d *DB) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

func (d *DB) EnsureTable(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     VARCHAR(50) PRIMARY KEY,
			applied_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}
	return nil
}

func (d *DB) IsApplied(ctx context.Context, version string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("querying schema_migrations: %w", err)
	}
	return exists, nil
}

func (d *DB) Apply(ctx context.Context, m Migration) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("executing %s: %w", m.FileName(), err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
		m.Version, m.Description); err != nil {
		return fmt.Errorf("recording migration %s: %w", m.Version, err)
	}
	return tx.Commit(ctx)
}

func (d *DB) Applied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT version, COALESCE(description, ''), applied_at FROM schema_migrations ORDER BY applied_at, version`)
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AppliedMigration, error) {
		var a AppliedMigration
		err := row.Scan(&a.Version, &a.Description, &a.AppliedAt)
		return a, err
	})
}

// SeedBanks inserts banks, skipping any whose name or app id is already
// stored. A renamed bank keeps its original row.
func (d *DB) SeedBanks(ctx context.Context, banks []Bank) (int, error) {
	inserted := 0
	for _, b := range banks {
		tag, err := d.pool.Exec(ctx,
			`INSERT INTO banks (bank_name, app_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			b.Name, b.AppID)
		if err != nil {
			return inserted, fmt.Errorf("inserting bank %s: %w", b.Name, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (d *DB) Banks(ctx context.Context) ([]Bank, error) {
	rows, err := d.pool.Query(ctx, `SELECT bank_id, bank_name, app_id FROM banks ORDER BY bank_id`)
	if err != nil {
		return nil, fmt.Errorf("listing banks: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Bank, error) {
		var b Bank
		err := row.Scan(&b.ID, &b.Name, &b.AppID)
		return b, err
	})
}

func (d *DB) UpsertReview(ctx context.Context, r ReviewRow) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO reviews (review_key, bank_id, review_text, rating, review_date, sentiment, sentiment_score, themes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (review_key) DO UPDATE SET
			bank_id = EXCLUDED.bank_id,
			review_text = EXCLUDED.review_text,
			rating = EXCLUDED.rating,
			review_date = EXCLUDED.review_date,
			sentiment = EXCLUDED.sentiment,
			sentiment_score = EXCLUDED.sentiment_score,
			themes = EXCLUDED.themes`,
		r.Key, r.BankID, r.Text, r.Rating, r.Date, r.Sentiment, r.Score, r.Themes)
	if err != nil {
		return fmt.Errorf("upserting review %s: %w", r.Key, err)
	}
	return nil
}

func (d *DB) CountReviews(ctx context.Context) (int64, error) {
	var n int64
	if err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting reviews: %w", err)
	}
	return n, nil
}
