package cmd

import (
	"github.com/spf13/cobra"

	"github.com/reviewlens/reviewlens/internal/themes"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Extract keywords and assign themes to processed reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("themes", func(s *session) error {
			sum, err := s.engine.Themes(s.ctx)
			if err != nil {
				return err
			}
			printThemes(sum)
			return nil
		})
	},
}

func printThemes(sum themes.Summary) {
	printTitle("Themes")
	printField("Reviews classified", sum.Total)
	if sum.Errors > 0 {
		printWarn("%d review(s) could not be classified", sum.Errors)
	}
	printCounts("  ", sum.Counts)
}

func init() {
	rootCmd.AddCommand(themesCmd)
}
