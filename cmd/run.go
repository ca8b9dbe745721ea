package cmd

import (
	"github.com/spf13/cobra"

	"github.com/reviewlens/reviewlens/internal/engine"
	"github.com/reviewlens/reviewlens/internal/state"
)

var (
	runSkipCollect bool
	runSkipMigrate bool
	runDump        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole pipeline",
	Long: `Run collect, clean, sentiment, themes, persist and report in order,
then dump when --dump is set. The run stops at the first failing stage;
outputs of earlier stages are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession("pipeline")
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.engine.Run(s.ctx, engine.RunOptions{
			SkipCollect: runSkipCollect,
			SkipMigrate: runSkipMigrate,
			Dump:        runDump,
		})
		if res != nil {
			for _, stage := range res.Completed {
				switch stage {
				case state.StageCollect:
					printCollect(res.Collect)
				case state.StageClean:
					printClean(res.Clean)
				case state.StageSentiment:
					printSentiment(res.Sentiment)
				case state.StageThemes:
					printThemes(res.Themes)
				case state.StagePersist:
					printPersist(res.Persist)
				case state.StageReport:
					printReport(res.Report)
				case state.StageDump:
					printDump(res.Dump)
				}
			}
		}
		if err != nil {
			printFail("pipeline stopped: %v", err)
			return err
		}
		printOK("pipeline complete")
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runSkipCollect, "skip-collect", false, "reuse the raw files already on disk")
	runCmd.Flags().BoolVar(&runSkipMigrate, "skip-migrate", false, "do not apply schema migrations before persisting")
	runCmd.Flags().BoolVar(&runDump, "dump", false, "dump the database after the report")
	rootCmd.AddCommand(runCmd)
}
