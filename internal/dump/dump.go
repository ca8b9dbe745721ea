// Package dump snapshots the review database with pg_dump.
package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/reviewlens/reviewlens/internal/config"
)

const (
	SchemaFile = "schema.sql"
	LatestFile = "latest_dump.sql"
	dumpsDir   = "dumps"
)

// Uploader publishes dump files. Satisfied by aws.DumpUploader.
type Uploader interface {
	Upload(ctx context.Context, files ...string) ([]string, error)
	Prune(ctx context.Context) (int, error)
}

// Result lists the files written by one dump.
type Result struct {
	SchemaPath string
	DumpPath   string
	LatestPath string
	Copied     bool // latest is a copy, not a symlink
	Pruned     int  // objects removed from the upload prefix first
	Uploaded   []string
}

// Dumper writes schema and data dumps under the database directory.
type Dumper struct {
	Config   config.Config
	Runner   Runner
	Uploader Uploader
	Logger   *slog.Logger
	Now      func() time.Time
}

// New creates a Dumper. up may be nil to skip uploads.
func New(cfg config.Config, runner Runner, up Uploader, logger *slog.Logger) *Dumper {
	return &Dumper{Config: cfg, Runner: runner, Uploader: up, Logger: logger, Now: time.Now}
}

// DumpFileName is the timestamped file name of a full dump.
func DumpFileName(t time.Time) string {
	return "bank_reviews_dump_" + t.Format("20060102_150405") + ".sql"
}

func (d *Dumper) baseArgs() []string {
	db := d.Config.Database
	return []string{
		"-h", db.Host,
		"-p", strconv.Itoa(db.Port),
		"-U", db.User,
		"-d", db.Name,
		"--no-owner",
		"--no-privileges",
	}
}

func (d *Dumper) env() []string {
	if d.Config.Database.Password == "" {
		return nil
	}
	return []string{"PGPASSWORD=" + d.Config.Database.Password}
}

// pgDump runs pg_dump with extra args, streaming output to path.
func (d *Dumper) pgDump(ctx context.Context, path string, extra ...string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	args := append(d.baseArgs(), extra...)
	runErr := d.Runner.Run(ctx, Command{
		Name:   d.Config.Dump.PgDumpPath,
		Args:   args,
		Env:    d.env(),
		Stdout: f,
	})
	closeErr := f.Close()
	if runErr != nil {
		os.Remove(path)
		return runErr
	}
	return closeErr
}

// Dump writes the schema-only dump, the full timestamped dump and refreshes
// the latest pointer, then uploads both files when an Uploader is set. With
// dump.s3_prune the upload prefix is cleared first, so it only ever holds the
// newest pair.
func (d *Dumper) Dump(ctx context.Context) (Result, error) {
	base := d.Config.Dirs.Database
	if err := os.MkdirAll(filepath.Join(base, dumpsDir), 0o755); err != nil {
		return Result{}, fmt.Errorf("creating dump directory: %w", err)
	}

	res := Result{
		SchemaPath: filepath.Join(base, SchemaFile),
		DumpPath:   filepath.Join(base, dumpsDir, DumpFileName(d.Now())),
		LatestPath: filepath.Join(base, dumpsDir, LatestFile),
	}

	d.Logger.Info("dumping schema", "path", res.SchemaPath)
	if err := d.pgDump(ctx, res.SchemaPath, "--schema-only"); err != nil {
		return res, fmt.Errorf("dumping schema: %w", err)
	}

	d.Logger.Info("dumping database", "path", res.DumpPath)
	if err := d.pgDump(ctx, res.DumpPath, "--clean", "--if-exists"); err != nil {
		return res, fmt.Errorf("dumping database: %w", err)
	}

	copied, err := refreshLatest(res.DumpPath, res.LatestPath)
	if err != nil {
		return res, fmt.Errorf("updating %s: %w", LatestFile, err)
	}
	res.Copied = copied

	if d.Uploader != nil {
		if d.Config.Dump.S3Prune {
			n, err := d.Uploader.Prune(ctx)
			res.Pruned = n
			if err != nil {
				return res, fmt.Errorf("pruning uploaded dumps: %w", err)
			}
			d.Logger.Info("pruned uploaded dumps", "objects", n)
		}
		uris, err := d.Uploader.Upload(ctx, res.SchemaPath, res.DumpPath)
		res.Uploaded = uris
		if err != nil {
			return res, fmt.Errorf("uploading dumps: %w", err)
		}
		d.Logger.Info("uploaded dumps", "objects", uris)
	}
	return res, nil
}

// refreshLatest points latest at target, copying when symlinks fail.
func refreshLatest(target, latest string) (copied bool, err error) {
	if err := os.Remove(latest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.Symlink(filepath.Base(target), latest); err == nil {
		return false, nil
	}
	return true, copyFile(target, latest)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
