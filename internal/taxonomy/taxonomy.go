// Package taxonomy maintains the category -> subcategory vocabulary. The
// taxonomy doubles as the classifier's label space: label ids are derived
// from the flattened enumeration order of all subcategories, so category
// iteration order must stay stable across save/reload cycles. Taxonomy
// therefore keeps categories in insertion order and round-trips that order
// through its JSON representation, which a plain Go map could not do.
package taxonomy

import (
	"bytes"
	"encoding/json"
	"fmt"

	"ledgercat/internal/models"
)

// Taxonomy is an insertion-ordered mapping of category name to an ordered
// list of subcategory names.
type Taxonomy struct {
	order []string
	subs  map[string][]string
}

// New returns an empty taxonomy.
func New() *Taxonomy {
	return &Taxonomy{subs: make(map[string][]string)}
}

// Categories returns the category names in insertion order.
func (t *Taxonomy) Categories() []string {
	return append([]string(nil), t.order...)
}

// Subcategories returns the subcategory list of the given category.
func (t *Taxonomy) Subcategories(category string) []string {
	return append([]string(nil), t.subs[category]...)
}

// Add appends a subcategory under the named category, creating the
// category if absent. Adding a subcategory that already exists under that
// category is a no-op.
func (t *Taxonomy) Add(category, sub string) {
	subs, ok := t.subs[category]
	if !ok {
		t.order = append(t.order, category)
	}
	for _, existing := range subs {
		if existing == sub {
			return
		}
	}
	t.subs[category] = append(subs, sub)
}

// Rename replaces a subcategory name in place wherever it appears. Unknown
// names are a no-op.
func (t *Taxonomy) Rename(oldName, newName string) {
	for _, category := range t.order {
		subs := t.subs[category]
		for i, sub := range subs {
			if sub == oldName {
				subs[i] = newName
			}
		}
	}
}

// Delete removes a subcategory from every category containing it. Unknown
// names are a no-op.
func (t *Taxonomy) Delete(name string) {
	for _, category := range t.order {
		subs := t.subs[category]
		filtered := subs[:0]
		for _, sub := range subs {
			if sub != name {
				filtered = append(filtered, sub)
			}
		}
		t.subs[category] = filtered
	}
}

// CategoryOf returns the category containing the given subcategory, or
// "Unknown" when no category contains it. When the same subcategory name
// appears under several categories the first one in taxonomy order wins.
func (t *Taxonomy) CategoryOf(sub string) string {
	for _, category := range t.order {
		for _, s := range t.subs[category] {
			if s == sub {
				return category
			}
		}
	}
	return models.CategoryUnknown
}

// Labels returns all subcategories flattened in enumeration order. This is
// the classifier's label vocabulary; its order defines the label ids.
func (t *Taxonomy) Labels() []string {
	var labels []string
	for _, category := range t.order {
		labels = append(labels, t.subs[category]...)
	}
	return labels
}

// LabelToID maps each label to its id in enumeration order.
func (t *Taxonomy) LabelToID() map[string]int {
	labels := t.Labels()
	ids := make(map[string]int, len(labels))
	for i, label := range labels {
		ids[label] = i
	}
	return ids
}

// IDToLabel maps each label id back to its label.
func (t *Taxonomy) IDToLabel() map[int]string {
	labels := t.Labels()
	ids := make(map[int]string, len(labels))
	for i, label := range labels {
		ids[i] = label
	}
	return ids
}

// Clone returns a deep copy of the taxonomy.
func (t *Taxonomy) Clone() *Taxonomy {
	clone := New()
	for _, category := range t.order {
		clone.order = append(clone.order, category)
		clone.subs[category] = append([]string(nil), t.subs[category]...)
	}
	return clone
}

// Apply mutates the taxonomy according to a single edit.
func (t *Taxonomy) Apply(edit models.TaxonomyEdit) error {
	switch edit.Type {
	case models.EditUpdate:
		t.Rename(edit.Change.SubCategory, edit.Change.NewName)
	case models.EditDelete:
		t.Delete(edit.Change.SubCategory)
	case models.EditAdd:
		t.Add(edit.Change.Category, edit.Change.SubCategory)
	default:
		return fmt.Errorf("unknown taxonomy edit type: %q", edit.Type)
	}
	return nil
}

// MarshalJSON encodes the taxonomy as a JSON object whose keys appear in
// category insertion order.
func (t *Taxonomy) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, category := range t.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(category)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		subs := t.subs[category]
		if subs == nil {
			subs = []string{}
		}
		value, err := json.Marshal(subs)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving the textual key order.
func (t *Taxonomy) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("taxonomy: expected JSON object, got %v", tok)
	}

	t.order = nil
	t.subs = make(map[string][]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		category, ok := tok.(string)
		if !ok {
			return fmt.Errorf("taxonomy: expected category name, got %v", tok)
		}
		var subs []string
		if err := dec.Decode(&subs); err != nil {
			return fmt.Errorf("taxonomy: invalid subcategory list for %q: %w", category, err)
		}
		if _, dup := t.subs[category]; !dup {
			t.order = append(t.order, category)
		}
		t.subs[category] = subs
	}

	// Consume closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
