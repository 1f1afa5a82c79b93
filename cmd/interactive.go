package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/modelgate/modelgate/internal/actions"
	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/interactive"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Launch interactive TUI mode",
	Long:  `Launches the interactive Terminal User Interface for ModelGate.`,
	Run: func(_ *cobra.Command, _ []string) {
		RunInteractive()
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

// RunInteractive runs the interactive TUI loop until the user exits.
func RunInteractive() {
	fmt.Println("ModelGate - Interactive Mode")
	fmt.Println("============================")
	fmt.Println()

	ctx := context.Background()

	for {
		options := []interactive.MenuOption{
			{
				Name:        "📋 Show Config",
				Description: "Display current environment configuration",
				Action: func() error {
					if err := actions.ShowConfig(); err != nil {
						fmt.Printf("\n❌ Error: %v\n", err)
					}
					interactive.PauseForEnter()
					return nil
				},
			},
			{
				Name:        "🚀 Train",
				Description: "Submit a training job for uploaded training data",
				Action: func() error {
					return promptAndRun("Training data key:", config.TrainingDataPrefix,
						func(key string) error {
							return actions.Train(ctx, Logger, key)
						})
				},
			},
			{
				Name:        "🔎 Evaluate",
				Description: "Evaluate a finished training job and run approval",
				Action: func() error {
					return promptAndRun("Training job name:", "",
						func(jobName string) error {
							return actions.Evaluate(ctx, Logger, jobName)
						})
				},
			},
			{
				Name:        "📦 Deploy",
				Description: "Deploy an approved model artifact to the endpoint",
				Action: func() error {
					return promptAndRun("Approved model key:", config.ApprovedModelPrefix,
						func(key string) error {
							return actions.Deploy(ctx, Logger, key)
						})
				},
			},
			{
				Name:        "🧹 Sweep",
				Description: "Delete stale models and endpoint configs",
				Action: func() error {
					// First show what is live and get confirmation
					if err := actions.Sweep(ctx, Logger, false); err != nil {
						fmt.Printf("\n❌ Error: %v\n", err)
						interactive.PauseForEnter()
						return nil
					}

					if !interactive.Confirm("Do you want to proceed with the sweep?") {
						fmt.Println("Sweep canceled.")
						interactive.PauseForEnter()
						return nil
					}

					if err := actions.Sweep(ctx, Logger, true); err != nil {
						fmt.Printf("\n❌ Error: %v\n", err)
					}

					interactive.PauseForEnter()
					return nil
				},
			},
			{
				Name:        "🗄️  Migrate",
				Description: "Apply the run-history database schema",
				Action: func() error {
					if err := actions.Migrate(); err != nil {
						fmt.Printf("\n❌ Error: %v\n", err)
					}
					interactive.PauseForEnter()
					return nil
				},
			},
		}

		if err := interactive.ShowMainMenu(options); err != nil {
			if errors.Is(err, interactive.ErrExit) {
				fmt.Println("Goodbye!")
				return
			}
			log.Fatal(err)
		}

		fmt.Println()
	}
}

func promptAndRun(message, defaultValue string, run func(string) error) error {
	value, err := interactive.Prompt(message, defaultValue)
	if err != nil {
		fmt.Println("Input canceled.")
		interactive.PauseForEnter()
		return nil
	}

	if err := run(value); err != nil {
		fmt.Printf("\n❌ Error: %v\n", err)
	}

	interactive.PauseForEnter()
	return nil
}
