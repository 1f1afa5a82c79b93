package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelgate/modelgate/internal/actions"
)

var forceSweep bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete stale models and endpoint configs from past deployments",
	Long: `Deletes model and endpoint-config resources created by past deployments,
keeping whatever the endpoint is currently serving. Resources still in use
are left alone.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// For CLI mode, we pass skipConfirm=true if --force is used
		// Otherwise the action will just show what is live and return
		if !forceSweep {
			if err := actions.Sweep(cmd.Context(), Logger, false); err != nil {
				return err
			}
			fmt.Println("\nUse --force flag to proceed with the sweep")
			return nil
		}

		if err := actions.Sweep(cmd.Context(), Logger, true); err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVarP(&forceSweep, "force", "f", false, "Skip confirmation and proceed with the sweep")
	rootCmd.AddCommand(sweepCmd)
}
