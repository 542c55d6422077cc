package ledger

import (
	"fmt"
	"io"

	"ledgercat/internal/models"

	"github.com/gocarina/gocsv"
)

// RowError describes a single row that failed validation during an upload.
type RowError struct {
	// Row is the 1-based data row number, header excluded.
	Row int    `json:"row"`
	Err string `json:"error"`
}

// ParseRows parses an uploaded CSV into transaction rows. Structurally
// invalid files fail as a whole; individually malformed rows are dropped
// and reported so the remaining rows can still be ingested.
func ParseRows(r io.Reader) ([]models.Row, []RowError, error) {
	var rows []models.Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, nil, fmt.Errorf("error parsing CSV upload: %w", err)
	}

	valid := rows[:0]
	var rowErrs []RowError
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 1, Err: err.Error()})
			continue
		}
		valid = append(valid, rows[i])
	}

	return valid, rowErrs, nil
}
