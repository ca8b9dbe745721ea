package cmd

import (
	"github.com/spf13/cobra"

	"github.com/reviewlens/reviewlens/internal/collector"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Scrape Google Play reviews for every configured bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("collect", func(s *session) error {
			res, err := s.engine.Collect(s.ctx)
			printCollect(res)
			return err
		})
	},
}

func printCollect(res collector.Result) {
	printTitle("Collect")
	for _, b := range res.Banks {
		if b.Err != nil {
			printFail("%s: failed after %d attempts: %v", b.Bank.Code, b.Attempts, b.Err)
			continue
		}
		printOK("%s: %d reviews → %s", b.Bank.Code, b.Reviews, b.CSVPath)
	}
	printField("Total reviews", res.Total)
	if n := res.Failed(); n > 0 {
		printWarn("%d bank(s) failed", n)
	}
}

func init() {
	rootCmd.AddCommand(collectCmd)
}
