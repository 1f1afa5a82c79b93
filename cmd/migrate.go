package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelgate/modelgate/internal/actions"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the run-history database schema",
	Long: `Applies the ClickHouse schema migrations for the pipeline run history.
Requires CLICKHOUSE_HOST to be configured.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := actions.Migrate(); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
