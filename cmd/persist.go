package cmd

import (
	"github.com/spf13/cobra"

	"github.com/reviewlens/reviewlens/internal/persist"
)

var persistSkipMigrate bool

var persistCmd = &cobra.Command{
	Use:   "persist",
	Short: "Load enriched reviews into PostgreSQL",
	Long: `Apply pending schema migrations, seed the configured banks, join the
sentiment and theme results on review_id and upsert every review whose bank
resolves. With mirror.uri set, reviews are also copied to MongoDB.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("persist", func(s *session) error {
			st, err := s.engine.Persist(s.ctx, persistSkipMigrate)
			if err != nil {
				return err
			}
			printPersist(st)
			return nil
		})
	},
}

func printPersist(st persist.Stats) {
	printTitle("Persist")
	printField("Banks seeded", st.BanksSeeded)
	printField("Joined reviews", st.Joined)
	printField("Inserted", st.Inserted)
	printField("Unknown bank skipped", st.SkippedUnknownBank)
	printField("Invalid rows skipped", st.SkippedInvalid)
	if st.OnlySentiment > 0 || st.OnlyThemes > 0 {
		printWarn("unmatched review ids: %d sentiment only, %d themes only", st.OnlySentiment, st.OnlyThemes)
	}
	if st.Mirrored > 0 {
		printField("Mirrored to MongoDB", st.Mirrored)
	}
	printField("Reviews in database", st.TotalInStore)
}

func init() {
	persistCmd.Flags().BoolVar(&persistSkipMigrate, "skip-migrate", false, "do not apply schema migrations first")
	rootCmd.AddCommand(persistCmd)
}
