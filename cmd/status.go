package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/lock"
	"github.com/reviewlens/reviewlens/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the outcome of each pipeline stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		st, err := state.Load(state.Path(cfg))
		if err != nil {
			return fmt.Errorf("loading state: %w", err)
		}

		printTitle("Pipeline status")
		if held, pid, _ := lock.IsHeld(lock.Path(cfg)); held {
			printWarn("run in progress (PID %d)", pid)
		}
		if st.LastRunID != "" {
			printField("Last collection run", st.LastRunID)
		}

		for i, stage := range state.Stages {
			label := fmt.Sprintf("%d. %s", i+1, stage)
			ss, ok := st.Stages[stage]
			switch {
			case !ok:
				fmt.Println(dimStyle.Render("  [  ] " + label))
			case ss.Status == state.StatusComplete:
				printOK("%s: %d records, %s", label, ss.Records, ss.CompletedAt.Format(time.DateTime))
			case ss.Status == state.StatusFailed:
				printFail("%s: %s", label, ss.Error)
			default:
				printWarn("%s: %s since %s", label, ss.Status, ss.StartedAt.Format(time.DateTime))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
