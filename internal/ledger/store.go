// Package ledger owns the master transactions CSV: a single deduplicated
// table of every transaction the system has seen. All mutations are
// full-file read-modify-write operations guarded by one mutex per store,
// so individual operations never interleave. Cross-operation ordering is
// the task pipeline's job; every mutation is routed through it.
package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ledgercat/internal/logging"
	"ledgercat/internal/models"

	"github.com/gocarina/gocsv"
)

// Store manages the master transactions CSV file.
type Store struct {
	path string
	mu   sync.Mutex
	log  logging.Logger
}

// AddResult reports the outcome of an AddRows call.
type AddResult struct {
	// TotalRows is the row count of the ledger after the append.
	TotalRows int `json:"total_rows"`
	// Added holds the rows that were actually appended, with empty
	// category fields, for downstream classification.
	Added []models.Row `json:"added_rows"`
	// Duplicates is the number of candidate rows dropped because their
	// natural key was already present.
	Duplicates int `json:"duplicate_rows"`
}

// NewStore creates a ledger store backed by the CSV file at path.
func NewStore(path string, log logging.Logger) *Store {
	if log == nil {
		log = logging.NewLogrusAdapter("info", "text")
	}
	return &Store{path: path, log: log}
}

// Path returns the path of the backing CSV file.
func (s *Store) Path() string {
	return s.path
}

// ReadAll returns the persisted header and all rows. A missing file is not
// an error: it yields empty columns and rows.
func (s *Store) ReadAll() ([]string, []models.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("error reading ledger file: %w", err)
	}

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading ledger header: %w", err)
	}

	var rows []models.Row
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, nil, fmt.Errorf("error parsing ledger file: %w", err)
	}

	return header, rows, nil
}

// AddRows appends the candidate rows whose natural key is not already in
// the ledger. Appended rows get empty category fields; rows matching an
// existing natural key are dropped as duplicates. The whole file is
// rewritten with the updated row set.
//
// The natural key of a candidate is computed exactly like the key of an
// existing row, category fields stripped, so re-uploading an export that
// already carries categories still deduplicates.
func (s *Store) AddRows(newRows []models.Row) (AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readLocked()
	if err != nil {
		return AddResult{}, err
	}

	seen := make(map[models.Key]struct{}, len(existing))
	for _, row := range existing {
		seen[row.Key()] = struct{}{}
	}

	var added []models.Row
	for _, row := range newRows {
		key := row.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		row.Category = ""
		row.SubCategory = ""
		existing = append(existing, row)
		seen[key] = struct{}{}
		added = append(added, row)
	}

	if len(existing) > 0 {
		if err := s.writeLocked(existing); err != nil {
			return AddResult{}, err
		}
	}

	s.log.WithFields(
		logging.F("total", len(existing)),
		logging.F("added", len(added)),
		logging.F("duplicates", len(newRows)-len(added)),
	).Info("Appended rows to ledger")

	return AddResult{
		TotalRows:  len(existing),
		Added:      added,
		Duplicates: len(newRows) - len(added),
	}, nil
}

// UpdateRowsByKey overwrites the category fields of every existing row
// whose natural key matches one of the updated rows. First match wins; an
// updated row with no match is ignored. The row count never changes.
func (s *Store) UpdateRowsByKey(updated []models.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readLocked()
	if err != nil {
		return err
	}

	for _, row := range updated {
		key := row.Key()
		for i := range existing {
			if existing[i].Key() == key {
				existing[i].Category = row.Category
				existing[i].SubCategory = row.SubCategory
				break
			}
		}
	}

	if err := s.writeLocked(existing); err != nil {
		return err
	}

	s.log.WithField("count", len(updated)).Debug("Updated ledger categories")
	return nil
}

// readLocked loads all rows from disk. Callers must hold s.mu.
func (s *Store) readLocked() ([]models.Row, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error opening ledger file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.log.WithError(err).Warn("Failed to close ledger file")
		}
	}()

	var rows []models.Row
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("error parsing ledger file: %w", err)
	}
	return rows, nil
}

// writeLocked rewrites the whole file, header included, in the fixed
// column order. Callers must hold s.mu.
func (s *Store) writeLocked(rows []models.Row) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("error creating ledger directory: %w", err)
	}

	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("error creating ledger file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.log.WithError(err).Warn("Failed to close ledger file")
		}
	}()

	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(file))
	if err := gocsv.MarshalCSV(&rows, writer); err != nil {
		return fmt.Errorf("error writing ledger file: %w", err)
	}
	return nil
}
