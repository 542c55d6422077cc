package tasks

import (
	"context"
	"path/filepath"
	"testing"

	"ledgercat/internal/classify"
	"ledgercat/internal/ledger"
	"ledgercat/internal/logging"
	"ledgercat/internal/models"
	"ledgercat/internal/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ledger   *ledger.Store
	taxonomy *taxonomy.Store
	handle   *classify.Handle
	dir      string
	log      *logging.MockLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	log := &logging.MockLogger{}
	return &fixture{
		ledger:   ledger.NewStore(filepath.Join(dir, "master_transactions.csv"), log),
		taxonomy: taxonomy.NewStore(filepath.Join(dir, "category_data.json"), log),
		handle:   classify.NewHandle(nil),
		dir:      dir,
		log:      log,
	}
}

// fixedClassifier labels every name with the same label.
type fixedClassifier struct{ label string }

func (f fixedClassifier) Name() string { return "fixed" }

func (f fixedClassifier) Classify(context.Context, string) ([]classify.Prediction, error) {
	if f.label == "" {
		return nil, nil
	}
	return []classify.Prediction{{Label: f.label, Score: 1.0}}, nil
}

func TestIngestCapturesResult(t *testing.T) {
	fx := newFixture(t)
	task := &Ingest{
		Rows: []models.Row{
			{Date: "01/01/2024", Transaction: "debit", Name: "Amazon", Memo: "MEMO", Amount: "-20.00"},
		},
		Ledger: fx.ledger,
	}

	require.NoError(t, task.Execute(context.Background()))
	assert.Len(t, task.Result.Added, 1)
	assert.Equal(t, 0, task.Result.Duplicates)

	rerun := &Ingest{Rows: task.Rows, Ledger: fx.ledger}
	require.NoError(t, rerun.Execute(context.Background()))
	assert.Empty(t, rerun.Result.Added)
	assert.Equal(t, 1, rerun.Result.Duplicates)
}

func TestClassifyAnnotatesAndUpdatesLedger(t *testing.T) {
	fx := newFixture(t)
	rows := []models.Row{
		{Date: "01/01/2024", Transaction: "debit", Name: "SHELL OIL", Amount: "-45.10"},
	}
	_, err := fx.ledger.AddRows(rows)
	require.NoError(t, err)

	fx.handle.Swap(fixedClassifier{label: "Gas"})
	task := &Classify{
		Rows:       rows,
		Classifier: fx.handle,
		Taxonomy:   fx.taxonomy,
		Ledger:     fx.ledger,
		Log:        fx.log,
	}
	require.NoError(t, task.Execute(context.Background()))

	_, persisted, err := fx.ledger.ReadAll()
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "Car", persisted[0].Category) // Gas lives under Car in the default taxonomy
	assert.Equal(t, "Gas", persisted[0].SubCategory)
}

func TestClassifyWithoutLabelMarksUnknown(t *testing.T) {
	fx := newFixture(t)
	rows := []models.Row{
		{Date: "01/01/2024", Transaction: "debit", Name: "MYSTERY", Amount: "-1.00"},
	}
	_, err := fx.ledger.AddRows(rows)
	require.NoError(t, err)

	fx.handle.Swap(fixedClassifier{})
	task := &Classify{Rows: rows, Classifier: fx.handle, Taxonomy: fx.taxonomy, Ledger: fx.ledger, Log: fx.log}
	require.NoError(t, task.Execute(context.Background()))

	_, persisted, err := fx.ledger.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, models.CategoryUnknown, persisted[0].Category)
	assert.Equal(t, models.CategoryUnknown, persisted[0].SubCategory)
}

func TestClassifyRequiresInitializedClassifier(t *testing.T) {
	fx := newFixture(t)
	task := &Classify{
		Rows:       []models.Row{{Date: "01/01/2024", Name: "X", Amount: "-1.00"}},
		Classifier: fx.handle,
		Taxonomy:   fx.taxonomy,
		Ledger:     fx.ledger,
		Log:        fx.log,
	}
	assert.Error(t, task.Execute(context.Background()))
}

func TestTaxonomyEditRenamePropagation(t *testing.T) {
	fx := newFixture(t)
	row := models.Row{Date: "01/01/2024", Transaction: "debit", Name: "SHELL OIL", Amount: "-45.10"}
	_, err := fx.ledger.AddRows([]models.Row{row})
	require.NoError(t, err)

	categorized := row
	categorized.Category = "Car"
	categorized.SubCategory = "Gas"
	require.NoError(t, fx.ledger.UpdateRowsByKey([]models.Row{categorized}))

	task := &TaxonomyEdit{
		Edits: []models.TaxonomyEdit{
			{Type: models.EditUpdate, Change: models.EditChange{SubCategory: "Gas", NewName: "Fuel"}},
		},
		Ledger:   fx.ledger,
		Taxonomy: fx.taxonomy,
		Log:      fx.log,
	}
	require.NoError(t, task.Execute(context.Background()))

	_, persisted, err := fx.ledger.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "Fuel", persisted[0].SubCategory)

	tax, err := fx.taxonomy.Load()
	require.NoError(t, err)
	assert.NotContains(t, tax.Subcategories("Car"), "Gas")
	assert.Contains(t, tax.Subcategories("Car"), "Fuel")
}

func TestTaxonomyEditDeletePropagation(t *testing.T) {
	fx := newFixture(t)
	row := models.Row{Date: "01/01/2024", Transaction: "debit", Name: "SHELL OIL", Amount: "-45.10"}
	_, err := fx.ledger.AddRows([]models.Row{row})
	require.NoError(t, err)

	categorized := row
	categorized.Category = "Car"
	categorized.SubCategory = "Gas"
	require.NoError(t, fx.ledger.UpdateRowsByKey([]models.Row{categorized}))

	task := &TaxonomyEdit{
		Edits: []models.TaxonomyEdit{
			{Type: models.EditDelete, Change: models.EditChange{SubCategory: "Gas"}},
		},
		Ledger:   fx.ledger,
		Taxonomy: fx.taxonomy,
		Log:      fx.log,
	}
	require.NoError(t, task.Execute(context.Background()))

	_, persisted, err := fx.ledger.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, persisted[0].Category)
	assert.Empty(t, persisted[0].SubCategory)
}

func TestTaxonomyEditAddHasNoLedgerEffect(t *testing.T) {
	fx := newFixture(t)
	row := models.Row{Date: "01/01/2024", Transaction: "debit", Name: "SHELL OIL", Amount: "-45.10"}
	_, err := fx.ledger.AddRows([]models.Row{row})
	require.NoError(t, err)

	task := &TaxonomyEdit{
		Edits: []models.TaxonomyEdit{
			{Type: models.EditAdd, Change: models.EditChange{Category: "Pets", SubCategory: "Vet"}},
		},
		Ledger:   fx.ledger,
		Taxonomy: fx.taxonomy,
		Log:      fx.log,
	}
	require.NoError(t, task.Execute(context.Background()))

	_, persisted, err := fx.ledger.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, persisted[0].SubCategory)

	tax, err := fx.taxonomy.Load()
	require.NoError(t, err)
	assert.Equal(t, "Pets", tax.CategoryOf("Vet"))
}

func TestTrainSwapsClassifier(t *testing.T) {
	fx := newFixture(t)
	rows := []models.Row{
		{Date: "01/01/2024", Transaction: "debit", Name: "SHELL OIL", Amount: "-45.10"},
		{Date: "01/02/2024", Transaction: "debit", Name: "AMAZON MKTP", Amount: "-20.00"},
	}
	_, err := fx.ledger.AddRows(rows)
	require.NoError(t, err)

	labeled := []models.Row{rows[0], rows[1]}
	labeled[0].Category, labeled[0].SubCategory = "Car", "Gas"
	labeled[1].Category, labeled[1].SubCategory = "Miscellaneous", "Amazon"
	require.NoError(t, fx.ledger.UpdateRowsByKey(labeled))

	modelPath := filepath.Join(fx.dir, "classifier_model.json")
	task := &Train{
		Ledger:     fx.ledger,
		Taxonomy:   fx.taxonomy,
		Trainer:    classify.NewNameTrainer(modelPath, fx.log),
		Classifier: fx.handle,
		Log:        fx.log,
	}
	require.NoError(t, task.Execute(context.Background()))

	active := fx.handle.Load()
	require.NotNil(t, active)
	preds, err := active.Classify(context.Background(), "SHELL OIL")
	require.NoError(t, err)
	require.NotEmpty(t, preds)
	assert.Equal(t, "Gas", preds[0].Label)

	// Artifact exists for the next Init.
	_, err = classify.LoadModel(modelPath)
	assert.NoError(t, err)
}

func TestInitBootstrapsWithoutArtifact(t *testing.T) {
	fx := newFixture(t)
	task := &Init{
		Taxonomy:   fx.taxonomy,
		Classifier: fx.handle,
		ModelFile:  filepath.Join(fx.dir, "classifier_model.json"),
		Log:        fx.log,
	}
	require.NoError(t, task.Execute(context.Background()))

	active := fx.handle.Load()
	require.NotNil(t, active)
	assert.Equal(t, "keyword", active.Name())

	// The label vocabulary drives the bootstrap classifier.
	preds, err := active.Classify(context.Background(), "UBER TRIP")
	require.NoError(t, err)
	require.NotEmpty(t, preds)
	assert.Equal(t, "Uber", preds[0].Label)
}

func TestInitLoadsPersistedArtifact(t *testing.T) {
	fx := newFixture(t)
	modelPath := filepath.Join(fx.dir, "classifier_model.json")

	model := &classify.NameModel{
		Labels: []string{"Gas"},
		Exact:  map[string]string{"shell oil": "Gas"},
		Tokens: map[string]map[string]float64{"Gas": {"shell": 1.0}},
	}
	require.NoError(t, model.Save(modelPath))

	task := &Init{
		Taxonomy:   fx.taxonomy,
		Classifier: fx.handle,
		ModelFile:  modelPath,
		Log:        fx.log,
	}
	require.NoError(t, task.Execute(context.Background()))

	active := fx.handle.Load()
	require.NotNil(t, active)
	assert.Equal(t, "model", active.Name())
}
