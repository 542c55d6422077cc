// Package tasks holds the units of work executed by the pipeline: ledger
// ingestion, classification of freshly added rows, taxonomy edits with
// their ledger propagation, classifier training, and startup
// initialization. Each task owns references to the stores and capabilities
// it needs; side effects are the only observable outcome.
package tasks

import (
	"context"
	"fmt"
	"os"

	"ledgercat/internal/classify"
	"ledgercat/internal/ledger"
	"ledgercat/internal/logging"
	"ledgercat/internal/models"
	"ledgercat/internal/taxonomy"
)

// Ingest appends uploaded rows to the ledger. It runs through the pipeline
// like every other mutation, so an upload can never interleave with a
// classification or taxonomy rewrite computed from a stale snapshot. The
// result is captured on the task for the synchronous caller.
type Ingest struct {
	Rows   []models.Row
	Ledger *ledger.Store

	// Result is populated by Execute for the caller that submitted the
	// task synchronously.
	Result ledger.AddResult
}

func (t *Ingest) Name() string { return "ingest" }

func (t *Ingest) Execute(context.Context) error {
	result, err := t.Ledger.AddRows(t.Rows)
	if err != nil {
		return err
	}
	t.Result = result
	return nil
}

// Classify labels a batch of rows with the active classifier and writes
// the categories back to the ledger in one update.
type Classify struct {
	Rows       []models.Row
	Classifier *classify.Handle
	Taxonomy   *taxonomy.Store
	Ledger     *ledger.Store
	Log        logging.Logger
}

func (t *Classify) Name() string { return "classify" }

func (t *Classify) Execute(ctx context.Context) error {
	if len(t.Rows) == 0 {
		return nil
	}

	classifier := t.Classifier.Load()
	if classifier == nil {
		return fmt.Errorf("classifier not initialized")
	}

	tax, err := t.Taxonomy.Load()
	if err != nil {
		return err
	}

	rows := append([]models.Row(nil), t.Rows...)
	for i := range rows {
		label := ""
		preds, err := classifier.Classify(ctx, rows[i].Name)
		if err != nil {
			// A classifier with no answer is never a hard failure; the
			// row just stays Unknown.
			t.Log.WithError(err).WithField("name", rows[i].Name).Warn("Classification failed for row")
		} else if len(preds) > 0 {
			label = preds[0].Label
		}

		if label != "" {
			rows[i].Category = tax.CategoryOf(label)
			rows[i].SubCategory = label
		} else {
			rows[i].Category = models.CategoryUnknown
			rows[i].SubCategory = models.CategoryUnknown
		}
	}

	if err := t.Ledger.UpdateRowsByKey(rows); err != nil {
		return err
	}

	t.Log.WithField("rows", len(rows)).Info("Classified ledger rows")
	return nil
}

// TaxonomyEdit applies an ordered edit sequence. The ledger is rewritten
// first: renamed subcategories propagate to matching rows, deleted ones
// clear both category fields, adds have no ledger effect. The taxonomy
// file is then rewritten and republished for subsequent lookups.
type TaxonomyEdit struct {
	Edits    []models.TaxonomyEdit
	Ledger   *ledger.Store
	Taxonomy *taxonomy.Store
	Log      logging.Logger
}

func (t *TaxonomyEdit) Name() string { return "taxonomy-edit" }

func (t *TaxonomyEdit) Execute(context.Context) error {
	_, rows, err := t.Ledger.ReadAll()
	if err != nil {
		return err
	}

	var touched []models.Row
	for _, edit := range t.Edits {
		for i := range rows {
			switch {
			case edit.Type == models.EditUpdate && edit.Change.SubCategory == rows[i].SubCategory:
				rows[i].SubCategory = edit.Change.NewName
				touched = append(touched, rows[i])
			case edit.Type == models.EditDelete && edit.Change.SubCategory == rows[i].SubCategory:
				rows[i].Category = ""
				rows[i].SubCategory = ""
				touched = append(touched, rows[i])
			}
		}
	}

	if len(touched) > 0 {
		if err := t.Ledger.UpdateRowsByKey(touched); err != nil {
			return err
		}
	}

	if _, err := t.Taxonomy.ApplyEdits(t.Edits); err != nil {
		return err
	}

	t.Log.WithFields(
		logging.F("edits", len(t.Edits)),
		logging.F("rows", len(touched)),
	).Info("Applied taxonomy edits to ledger and taxonomy")
	return nil
}

// Train exports the ledger as name/label pairs, trains a new classifier
// over the current label vocabulary, and atomically swaps it in for all
// future classification tasks.
type Train struct {
	Ledger     *ledger.Store
	Taxonomy   *taxonomy.Store
	Trainer    classify.Trainer
	Classifier *classify.Handle
	Log        logging.Logger
}

func (t *Train) Name() string { return "train" }

func (t *Train) Execute(ctx context.Context) error {
	_, rows, err := t.Ledger.ReadAll()
	if err != nil {
		return err
	}

	tax, err := t.Taxonomy.Load()
	if err != nil {
		return err
	}

	var examples []classify.Example
	for _, row := range rows {
		if row.SubCategory == "" || row.SubCategory == models.CategoryUnknown {
			continue
		}
		examples = append(examples, classify.Example{Text: row.Name, Label: row.SubCategory})
	}

	classifier, err := t.Trainer.Train(ctx, examples, tax.Labels())
	if err != nil {
		return err
	}

	t.Classifier.Swap(classifier)
	t.Log.WithField("examples", len(examples)).Info("Swapped in newly trained classifier")
	return nil
}

// Init loads the taxonomy (file or default seed) and installs the initial
// classifier: the persisted model artifact when one exists, otherwise a
// keyword classifier bootstrapped from the label vocabulary. An optional
// remote classifier is chained in as a fallback strategy. The
// once-per-process guard lives at the enqueue site.
type Init struct {
	Taxonomy     *taxonomy.Store
	Classifier   *classify.Handle
	ModelFile    string
	KeywordsFile string
	Remote       classify.Classifier
	Log          logging.Logger
}

func (t *Init) Name() string { return "initialize" }

func (t *Init) Execute(context.Context) error {
	tax, err := t.Taxonomy.Load()
	if err != nil {
		return err
	}

	var local classify.Classifier
	if _, statErr := os.Stat(t.ModelFile); statErr == nil {
		model, err := classify.LoadModel(t.ModelFile)
		if err != nil {
			return err
		}
		t.Log.WithField("artifact", t.ModelFile).Info("Loaded persisted classifier model")
		local = model
	} else {
		t.Log.WithField("artifact", t.ModelFile).Info("No model artifact, bootstrapping keyword classifier")
		keyword := classify.NewKeywordClassifier(tax.Labels(), t.Log)
		if t.KeywordsFile != "" {
			if err := keyword.LoadRules(t.KeywordsFile); err != nil {
				t.Log.WithError(err).Warn("Failed to load keyword rules")
			}
		}
		local = keyword
	}

	if t.Remote != nil {
		t.Classifier.Swap(classify.NewChain(t.Log, local, t.Remote))
	} else {
		t.Classifier.Swap(local)
	}

	t.Log.Info("Classifier initialized")
	return nil
}
