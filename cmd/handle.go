package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelgate/modelgate/internal/actions"
)

var handleCmd = &cobra.Command{
	Use:   "handle <event-file>",
	Short: "Process a raw pipeline event from a JSON file",
	Long: `Reads a storage upload or training state-change event from a JSON file and
dispatches it to the matching pipeline flow. Useful for replaying events.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := actions.Handle(cmd.Context(), Logger, args[0]); err != nil {
			return fmt.Errorf("handle failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(handleCmd)
}
