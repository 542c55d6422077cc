// Package container provides dependency injection for the application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"ledgercat/internal/classify"
	"ledgercat/internal/config"
	"ledgercat/internal/ledger"
	"ledgercat/internal/logging"
	"ledgercat/internal/pipeline"
	"ledgercat/internal/tasks"
	"ledgercat/internal/taxonomy"
)

// Container holds all application dependencies and provides methods to
// access them. It acts as the central registry for dependency injection:
// every component receives its collaborators through the container rather
// than constructing them itself.
//
// Container is immutable after creation - all fields are private and can
// only be accessed through getter methods.
type Container struct {
	logger     logging.Logger
	config     *config.Config
	ledger     *ledger.Store
	taxonomy   *taxonomy.Store
	pipeline   *pipeline.Pipeline
	classifier *classify.Handle
	trainer    classify.Trainer
	remote     classify.Classifier
	tasks      *tasks.Factory

	initOnce sync.Once
}

// NewContainer creates and wires all application dependencies. The context
// is used to construct the remote AI classifier when one is configured.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	// Create logger first as it's needed by other components
	logger := logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)

	if err := os.MkdirAll(cfg.Data.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	ledgerStore := ledger.NewStore(cfg.LedgerFile(), logger)
	taxonomyStore := taxonomy.NewStore(cfg.TaxonomyFile(), logger)
	handle := classify.NewHandle(nil)
	trainer := classify.NewNameTrainer(cfg.ModelFile(), logger)
	pipe := pipeline.New(cfg.Pipeline.QueueSize, logger)

	// Remote classifier (if enabled)
	var remote classify.Classifier
	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		gemini, err := classify.NewGeminiClassifier(
			ctx,
			cfg.AI.APIKey,
			cfg.AI.Model,
			time.Duration(cfg.AI.TimeoutSeconds)*time.Second,
			func() []string {
				tax, err := taxonomyStore.Load()
				if err != nil {
					logger.WithError(err).Warn("Failed to load taxonomy for AI labels")
					return nil
				}
				return tax.Labels()
			},
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create AI classifier: %w", err)
		}
		remote = gemini
		logger.Info("AI classification enabled")
	} else {
		logger.Info("AI classification disabled")
	}

	factory := &tasks.Factory{
		Ledger:       ledgerStore,
		Taxonomy:     taxonomyStore,
		Classifier:   handle,
		Trainer:      trainer,
		ModelFile:    cfg.ModelFile(),
		KeywordsFile: cfg.KeywordsFile(),
		Remote:       remote,
		Log:          logger,
	}

	logger.WithFields(
		logging.F("data_dir", cfg.Data.Directory),
		logging.F("queue_size", cfg.Pipeline.QueueSize),
		logging.F("ai_enabled", cfg.AI.Enabled),
	).Info("Container initialized successfully")

	return &Container{
		logger:     logger,
		config:     cfg,
		ledger:     ledgerStore,
		taxonomy:   taxonomyStore,
		pipeline:   pipe,
		classifier: handle,
		trainer:    trainer,
		remote:     remote,
		tasks:      factory,
	}, nil
}

// Initialize starts the pipeline worker and runs the initialization task:
// taxonomy load (seeding the default on first run) and classifier
// installation. It is safe to call more than once; only the first call
// does anything.
func (c *Container) Initialize(ctx context.Context) error {
	var err error
	c.initOnce.Do(func() {
		c.pipeline.Start(ctx)
		err = c.pipeline.Run(ctx, c.tasks.Init())
	})
	return err
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLedger returns the master transactions store.
func (c *Container) GetLedger() *ledger.Store {
	return c.ledger
}

// GetTaxonomy returns the category taxonomy store.
func (c *Container) GetTaxonomy() *taxonomy.Store {
	return c.taxonomy
}

// GetPipeline returns the task pipeline.
func (c *Container) GetPipeline() *pipeline.Pipeline {
	return c.pipeline
}

// GetClassifier returns the swappable classifier handle.
func (c *Container) GetClassifier() *classify.Handle {
	return c.classifier
}

// GetTasks returns the task factory.
func (c *Container) GetTasks() *tasks.Factory {
	return c.tasks
}

// Close drains and stops the pipeline. It should be called when the
// container is no longer needed; ctx bounds the drain.
func (c *Container) Close(ctx context.Context) error {
	if err := c.pipeline.Shutdown(ctx); err != nil {
		return err
	}
	c.logger.Info("Container closed")
	return nil
}
