package container

import (
	"context"
	"testing"

	"ledgercat/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Data.Directory = t.TempDir()
	cfg.Pipeline.QueueSize = 16
	return cfg
}

func TestNewContainerRequiresConfig(t *testing.T) {
	c, err := NewContainer(context.Background(), nil)
	assert.Nil(t, c)
	assert.EqualError(t, err, "configuration cannot be nil")
}

func TestNewContainerWiresDependencies(t *testing.T) {
	cfg := testConfig(t)

	c, err := NewContainer(context.Background(), cfg)
	require.NoError(t, err)

	assert.NotNil(t, c.GetLogger())
	assert.Equal(t, cfg, c.GetConfig())
	assert.NotNil(t, c.GetLedger())
	assert.NotNil(t, c.GetTaxonomy())
	assert.NotNil(t, c.GetPipeline())
	assert.NotNil(t, c.GetClassifier())
	assert.NotNil(t, c.GetTasks())
}

func TestInitializeInstallsClassifierOnce(t *testing.T) {
	cfg := testConfig(t)

	c, err := NewContainer(context.Background(), cfg)
	require.NoError(t, err)

	require.Nil(t, c.GetClassifier().Load())
	require.NoError(t, c.Initialize(context.Background()))
	first := c.GetClassifier().Load()
	require.NotNil(t, first)

	// A second Initialize is a no-op, not a second Init task.
	require.NoError(t, c.Initialize(context.Background()))
	assert.Equal(t, first, c.GetClassifier().Load())

	require.NoError(t, c.Close(context.Background()))
}

func TestCloseDrainsPipeline(t *testing.T) {
	cfg := testConfig(t)

	c, err := NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, c.Initialize(context.Background()))

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
}
