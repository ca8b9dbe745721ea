package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reviewlens/reviewlens/internal/dump"
)

var dumpPrune bool

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write schema and full database dumps with pg_dump",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("dump", func(s *session) error {
			if dumpPrune {
				if s.engine.Config.Dump.S3Bucket == "" {
					return fmt.Errorf("--prune requires dump.s3_bucket")
				}
				s.engine.Config.Dump.S3Prune = true
			}
			res, err := s.engine.Dump(s.ctx)
			if err != nil {
				return err
			}
			printDump(res)
			return nil
		})
	},
}

func printDump(res dump.Result) {
	printTitle("Dump")
	printOK("schema → %s", res.SchemaPath)
	printOK("data   → %s", res.DumpPath)
	if res.Copied {
		printField("Latest (copy)", res.LatestPath)
	} else {
		printField("Latest", res.LatestPath)
	}
	if res.Pruned > 0 {
		printField("Pruned", fmt.Sprintf("%d old objects", res.Pruned))
	}
	for _, u := range res.Uploaded {
		printOK("uploaded %s", u)
	}
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpPrune, "prune", false, "Clear the S3 prefix before uploading")
	rootCmd.AddCommand(dumpCmd)
}
