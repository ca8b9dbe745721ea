package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strconv"
	"time"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// ErrMigrationFileMissing is returned when no file exists for a version.
var ErrMigrationFileMissing = errors.New("migration file not found")

var migrationFileName = regexp.MustCompile(`^V(\d+)__(.+)\.sql$`)

// Migration is one versioned schema script.
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// FileName is the conventional file name of the migration.
func (m Migration) FileName() string {
	return FileName(m.Version, m.Description)
}

// FileName builds V<version>__<description>.sql.
func FileName(version, description string) string {
	return fmt.Sprintf("V%s__%s.sql", version, description)
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version     string
	Description string
	AppliedAt   time.Time
}

// Ledger records which migrations have run. Apply must execute the SQL and
// record the version atomically.
type Ledger interface {
	EnsureTable(ctx context.Context) error
	IsApplied(ctx context.Context, version string) (bool, error)
	Apply(ctx context.Context, m Migration) error
	Applied(ctx context.Context) ([]AppliedMigration, error)
}

// MigrationsFS returns the migration directory: dir when set, else the
// embedded set.
func MigrationsFS(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Discover lists the migrations in fsys ordered by numeric version.
func Discover(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	var out []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := migrationFileName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		out = append(out, Migration{Version: m[1], Description: m[2]})
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].Version)
		b, _ := strconv.Atoi(out[j].Version)
		return a < b
	})
	return out, nil
}

// Migrator applies migrations from a file set through a Ledger.
type Migrator struct {
	ledger Ledger
	fsys   fs.FS
	logger *slog.Logger
}

// NewMigrator creates a Migrator.
func NewMigrator(ledger Ledger, fsys fs.FS, logger *slog.Logger) *Migrator {
	return &Migrator{ledger: ledger, fsys: fsys, logger: logger}
}

// Apply runs one migration. A version already recorded succeeds without
// executing anything; applied reports whether SQL ran.
func (m *Migrator) Apply(ctx context.Context, version, description string) (applied bool, err error) {
	if err := m.ledger.EnsureTable(ctx); err != nil {
		return false, fmt.Errorf("initializing migrations table: %w", err)
	}
	done, err := m.ledger.IsApplied(ctx, version)
	if err != nil {
		return false, fmt.Errorf("checking migration %s: %w", version, err)
	}
	if done {
		m.logger.Info("migration already applied", "version", version)
		return false, nil
	}

	name := FileName(version, description)
	sql, err := fs.ReadFile(m.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", ErrMigrationFileMissing, name)
		}
		return false, fmt.Errorf("reading %s: %w", name, err)
	}

	if err := m.ledger.Apply(ctx, Migration{Version: version, Description: description, SQL: string(sql)}); err != nil {
		return false, fmt.Errorf("applying migration %s: %w", version, err)
	}
	m.logger.Info("applied migration", "version", version, "description", description)
	return true, nil
}

// Up applies every discovered migration in version order and returns the
// versions that ran.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	migrations, err := Discover(m.fsys)
	if err != nil {
		return nil, err
	}
	var ran []string
	for _, mig := range migrations {
		applied, err := m.Apply(ctx, mig.Version, mig.Description)
		if err != nil {
			return ran, err
		}
		if applied {
			ran = append(ran, mig.Version)
		}
	}
	return ran, nil
}
