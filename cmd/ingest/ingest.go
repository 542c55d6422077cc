// Package ingest handles one-shot CSV ingestion from the command line.
package ingest

import (
	"context"
	"fmt"
	"os"

	"ledgercat/cmd/root"
	"ledgercat/internal/container"
	"ledgercat/internal/ledger"
	"ledgercat/internal/logging"

	"github.com/spf13/cobra"
)

var inputFile string

// Cmd represents the ingest command
var Cmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a CSV export into the ledger",
	Long: `Parse a bank CSV export, append the new transactions to the ledger
(duplicates are dropped), and classify the added rows before exiting.`,
	RunE: ingestFunc,
}

func init() {
	Cmd.Flags().StringVarP(&inputFile, "file", "f", "", "CSV file to ingest")
	_ = Cmd.MarkFlagRequired("file")
}

func ingestFunc(cmd *cobra.Command, args []string) error {
	f, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	rows, rowErrs, err := ledger.ParseRows(f)
	if err != nil {
		return err
	}
	for _, re := range rowErrs {
		root.Log.WithFields(
			logging.F("row", re.Row),
			logging.F("error", re.Err),
		).Warn("Skipping malformed row")
	}

	ctx := context.Background()
	c, err := container.NewContainer(ctx, root.Cfg)
	if err != nil {
		return err
	}
	if err := c.Initialize(ctx); err != nil {
		return err
	}

	ingest := c.GetTasks().Ingest(rows)
	if err := c.GetPipeline().Run(ctx, ingest); err != nil {
		return err
	}

	if len(ingest.Result.Added) > 0 {
		if err := c.GetPipeline().Run(ctx, c.GetTasks().Classify(ingest.Result.Added)); err != nil {
			return err
		}
	}

	c.GetLogger().WithFields(
		logging.F("file", inputFile),
		logging.F("added", len(ingest.Result.Added)),
		logging.F("duplicates", ingest.Result.Duplicates),
		logging.F("total", ingest.Result.TotalRows),
	).Info("Ingestion finished")

	return c.Close(ctx)
}
