package models

// Taxonomy edit types as they arrive from the boundary layer.
const (
	EditUpdate = "update"
	EditDelete = "delete"
	EditAdd    = "add"
)

// EditChange carries the payload of a single taxonomy edit.
type EditChange struct {
	SubCategory string `json:"subCategory"`
	NewName     string `json:"newName,omitempty"`
	Category    string `json:"category,omitempty"`
}

// TaxonomyEdit is one entry of an ordered edit sequence applied to the
// taxonomy and, for update/delete, propagated to matching ledger rows.
type TaxonomyEdit struct {
	Type   string     `json:"type"`
	Change EditChange `json:"change"`
}
