// Package train handles one-shot classifier training from the command line.
package train

import (
	"context"

	"ledgercat/cmd/root"
	"ledgercat/internal/container"

	"github.com/spf13/cobra"
)

// Cmd represents the train command
var Cmd = &cobra.Command{
	Use:   "train",
	Short: "Train the classifier from the categorized ledger",
	Long: `Export the categorized ledger rows as training examples, train a new
classifier over the current taxonomy vocabulary, and persist the model
artifact for future runs.`,
	RunE: trainFunc,
}

func trainFunc(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	c, err := container.NewContainer(ctx, root.Cfg)
	if err != nil {
		return err
	}
	if err := c.Initialize(ctx); err != nil {
		return err
	}

	if err := c.GetPipeline().Run(ctx, c.GetTasks().Train()); err != nil {
		return err
	}

	c.GetLogger().Info("Training finished, model artifact persisted")
	return c.Close(ctx)
}
