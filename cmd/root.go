package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/engine"
	"github.com/reviewlens/reviewlens/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "reviewlens",
	Short: "reviewlens: bank app review analytics pipeline",
	Long: `reviewlens collects Google Play reviews for banking apps, cleans them,
scores sentiment, assigns themes, stores the results in PostgreSQL and
renders a report.

Run "reviewlens run" for the whole pipeline or a stage command on its own.`,
	SilenceUsage: true,
}

func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./reviewlens.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
}

// session is what every stage command needs: config, a stage logger and an
// engine, plus a signal-aware context.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	engine *engine.Engine
	ctx    context.Context

	closers []io.Closer
	stop    context.CancelFunc
}

func newSession(stage string) (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, closer, err := logging.Setup(level, cfg.Logging.Directory, stage)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return &session{
		cfg:     cfg,
		logger:  logger,
		engine:  engine.New(cfg, logger),
		ctx:     ctx,
		closers: []io.Closer{closer},
		stop:    stop,
	}, nil
}

func (s *session) Close() {
	s.stop()
	for _, c := range s.closers {
		c.Close()
	}
}

// runStage wraps a single stage command in a session holding the run lock.
func runStage(stage string, fn func(s *session) error) error {
	s, err := newSession(stage)
	if err != nil {
		return err
	}
	defer s.Close()

	release, err := s.engine.Lock()
	if err != nil {
		return err
	}
	defer release()
	return fn(s)
}
