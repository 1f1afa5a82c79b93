package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelgate/modelgate/internal/actions"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <key>",
	Short: "Deploy an approved model artifact to the serving endpoint",
	Long: `Runs one deployment attempt for the approved model artifact at the given
object key: validate the archive, register the model, create or update the
endpoint, wait for it to become healthy and roll back on failure.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := actions.Deploy(cmd.Context(), Logger, args[0]); err != nil {
			return fmt.Errorf("deploy failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
}
