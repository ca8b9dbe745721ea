package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reviewlens/reviewlens/internal/sentiment"
)

var sentimentCmd = &cobra.Command{
	Use:   "sentiment",
	Short: "Score the sentiment of processed reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("sentiment", func(s *session) error {
			sum, err := s.engine.Sentiment(s.ctx)
			if err != nil {
				return err
			}
			printSentiment(sum)
			return nil
		})
	},
}

func printSentiment(sum sentiment.Summary) {
	printTitle("Sentiment")
	printField("Reviews scored", sum.Total)
	if sum.Errors > 0 {
		printWarn("%d review(s) could not be scored", sum.Errors)
	}
	for _, bank := range sum.Banks {
		printField(bank, fmt.Sprintf("mean %.3f", sum.MeanScore[bank]))
		printCounts("  ", sum.Counts[bank])
	}
}

func init() {
	rootCmd.AddCommand(sentimentCmd)
}
