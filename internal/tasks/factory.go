package tasks

import (
	"ledgercat/internal/classify"
	"ledgercat/internal/ledger"
	"ledgercat/internal/logging"
	"ledgercat/internal/models"
	"ledgercat/internal/taxonomy"
)

// Factory builds tasks with their store and capability references already
// wired, so submission sites only supply the per-request payload.
type Factory struct {
	Ledger       *ledger.Store
	Taxonomy     *taxonomy.Store
	Classifier   *classify.Handle
	Trainer      classify.Trainer
	ModelFile    string
	KeywordsFile string
	Remote       classify.Classifier
	Log          logging.Logger
}

// Ingest builds an ingestion task for uploaded rows.
func (f *Factory) Ingest(rows []models.Row) *Ingest {
	return &Ingest{Rows: rows, Ledger: f.Ledger}
}

// Classify builds a classification task for freshly added rows.
func (f *Factory) Classify(rows []models.Row) *Classify {
	return &Classify{
		Rows:       rows,
		Classifier: f.Classifier,
		Taxonomy:   f.Taxonomy,
		Ledger:     f.Ledger,
		Log:        f.Log,
	}
}

// TaxonomyEdit builds an edit task for an ordered edit sequence.
func (f *Factory) TaxonomyEdit(edits []models.TaxonomyEdit) *TaxonomyEdit {
	return &TaxonomyEdit{
		Edits:    edits,
		Ledger:   f.Ledger,
		Taxonomy: f.Taxonomy,
		Log:      f.Log,
	}
}

// Train builds a training task over the current ledger and vocabulary.
func (f *Factory) Train() *Train {
	return &Train{
		Ledger:     f.Ledger,
		Taxonomy:   f.Taxonomy,
		Trainer:    f.Trainer,
		Classifier: f.Classifier,
		Log:        f.Log,
	}
}

// Init builds the startup initialization task.
func (f *Factory) Init() *Init {
	return &Init{
		Taxonomy:     f.Taxonomy,
		Classifier:   f.Classifier,
		ModelFile:    f.ModelFile,
		KeywordsFile: f.KeywordsFile,
		Remote:       f.Remote,
		Log:          f.Log,
	}
}
