// Package serve runs the HTTP API server.
package serve

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ledgercat/cmd/root"
	"ledgercat/internal/container"
	"ledgercat/internal/logging"
	"ledgercat/internal/server"

	"github.com/spf13/cobra"
)

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledger HTTP API",
	Long: `Start the HTTP server: uploads are deduplicated into the ledger and
classified in the background, taxonomy edits and training run through
the same task pipeline.`,
	RunE: serveFunc,
}

func serveFunc(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(ctx, root.Cfg)
	if err != nil {
		return err
	}

	// The pipeline worker outlives the signal context so queued tasks
	// still drain during shutdown.
	if err := c.Initialize(context.Background()); err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Config:   c.GetConfig(),
		Ledger:   c.GetLedger(),
		Taxonomy: c.GetTaxonomy(),
		Pipeline: c.GetPipeline(),
		Tasks:    c.GetTasks(),
		Log:      c.GetLogger(),
	})

	httpServer := &http.Server{
		Addr:              root.Cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		c.GetLogger().Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			c.GetLogger().WithError(err).Warn("HTTP server shutdown failed")
		}
	}()

	c.GetLogger().WithField("addr", root.Cfg.Server.Addr).Info("HTTP server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	// The server no longer accepts requests; drain whatever is queued.
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.Close(drainCtx); err != nil {
		c.GetLogger().WithError(err).Warn("Pipeline drain did not finish in time")
		return err
	}

	if dead := c.GetPipeline().DeadLetters(); len(dead) > 0 {
		c.GetLogger().WithField("count", len(dead)).Warn("Tasks failed during this run")
		for _, d := range dead {
			c.GetLogger().WithFields(
				logging.F("task", d.Task),
				logging.F("id", d.ID),
				logging.F("error", d.Err),
			).Warn("Dead-lettered task")
		}
	}
	return nil
}
