package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reviewlens/reviewlens/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate enriched reviews into a report and charts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("report", func(s *session) error {
			res, err := s.engine.Report(s.ctx)
			if err != nil {
				return err
			}
			printReport(res)
			return nil
		})
	},
}

func printReport(res report.Result) {
	r := res.Report
	printTitle("Report")
	printField("Reviews analyzed", r.Total)
	printField("Average sentiment score", fmt.Sprintf("%.2f", r.MeanScore))
	printField("Average rating", fmt.Sprintf("%.2f", r.MeanRating))
	if r.Correlation != nil {
		printField("Score/rating correlation", fmt.Sprintf("%.2f", *r.Correlation))
	}
	if r.Trend != nil {
		printField("Sentiment trend", fmt.Sprintf("%s (%+.2f)", report.Direction(r.Trend.ScoreChange), r.Trend.ScoreChange))
		printField("Rating trend", fmt.Sprintf("%s (%+.2f)", report.Direction(r.Trend.RatingChange), r.Trend.RatingChange))
	}
	for _, f := range res.Files {
		fmt.Println(dimStyle.Render("  " + f))
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
