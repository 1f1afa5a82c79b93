package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelgate/modelgate/internal/actions"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <job-name>",
	Short: "Evaluate a finished training job and run the approval workflow",
	Long: `Looks up the training job, extracts the model's metrics and checks them
against the configured quality thresholds. Models passing every threshold are
copied to the approved model path.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := actions.Evaluate(cmd.Context(), Logger, args[0]); err != nil {
			return fmt.Errorf("evaluate failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}
