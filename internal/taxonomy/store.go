package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ledgercat/internal/logging"
	"ledgercat/internal/models"
)

// Store manages loading, editing and persisting the taxonomy JSON file.
// One mutex guards the whole read-modify-write-persist sequence so edits
// never interleave with each other or with loads.
type Store struct {
	path string
	mu   sync.Mutex
	log  logging.Logger
}

// NewStore creates a taxonomy store backed by the JSON file at path.
func NewStore(path string, log logging.Logger) *Store {
	if log == nil {
		log = logging.NewLogrusAdapter("info", "text")
	}
	return &Store{path: path, log: log}
}

// Path returns the path of the backing JSON file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted taxonomy, or the built-in default when the
// file does not exist yet. On first load the default seed is written to
// disk so subsequent edits rewrite a real file.
func (s *Store) Load() (*Taxonomy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// ApplyEdits applies the ordered edit sequence to the persisted taxonomy
// and writes the result back, all under the store lock. It returns the
// taxonomy after the edits.
func (s *Store) ApplyEdits(edits []models.TaxonomyEdit) (*Taxonomy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tax, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	for _, edit := range edits {
		if err := tax.Apply(edit); err != nil {
			return nil, err
		}
	}

	if err := s.saveLocked(tax); err != nil {
		return nil, err
	}

	s.log.WithField("edits", len(edits)).Info("Applied taxonomy edits")
	return tax, nil
}

func (s *Store) loadLocked() (*Taxonomy, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.WithField("file", s.path).Info("Taxonomy file not found, seeding default taxonomy")
			tax := Default()
			if err := s.saveLocked(tax); err != nil {
				return nil, err
			}
			return tax, nil
		}
		return nil, fmt.Errorf("error reading taxonomy file: %w", err)
	}

	tax := New()
	if err := json.Unmarshal(data, tax); err != nil {
		return nil, fmt.Errorf("error parsing taxonomy file: %w", err)
	}
	return tax, nil
}

func (s *Store) saveLocked(tax *Taxonomy) error {
	data, err := json.MarshalIndent(tax, "", "    ")
	if err != nil {
		return fmt.Errorf("error marshaling taxonomy: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("error creating taxonomy directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("error writing taxonomy file: %w", err)
	}
	return nil
}
