package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database schema migrations",
	Long: `Apply every V<version>__<description>.sql migration not yet recorded in
schema_migrations, in version order. Re-running is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("migrate", func(s *session) error {
			ran, err := s.engine.Migrate(s.ctx)
			printTitle("Migrate")
			if len(ran) > 0 {
				printOK("applied versions %s", strings.Join(ran, ", "))
			} else if err == nil {
				printOK("schema up to date")
			}
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
