package cmd

import (
	"github.com/spf13/cobra"

	"github.com/reviewlens/reviewlens/internal/cleaner"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Deduplicate and normalize the raw review files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("clean", func(s *session) error {
			st, err := s.engine.Clean(s.ctx)
			if err != nil {
				return err
			}
			printClean(st)
			return nil
		})
	},
}

func printClean(st cleaner.Stats) {
	printTitle("Clean")
	printField("Raw files", st.Files)
	printField("Input rows", st.Input)
	printField("Duplicates removed", st.Duplicates)
	printField("Empty reviews dropped", st.EmptyReview)
	printField("Bad dates dropped", st.BadDate)
	printField("Bad ratings dropped", st.BadRating)
	printField("Output rows", st.Output)
	printCounts("  ", st.PerBank)
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
