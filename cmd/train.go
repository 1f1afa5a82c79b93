package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelgate/modelgate/internal/actions"
)

var trainCmd = &cobra.Command{
	Use:   "train <key>",
	Short: "Submit a training job for uploaded training data",
	Long: `Submits a training job as if the given object key had just been uploaded.
Keys outside the training data path are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := actions.Train(cmd.Context(), Logger, args[0]); err != nil {
			return fmt.Errorf("train failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
}
