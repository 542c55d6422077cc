package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ledgercat/internal/logging"
	"ledgercat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "master_transactions.csv"), &logging.MockLogger{})
}

func sampleRows() []models.Row {
	return []models.Row{
		{Date: "01/01/2024", Transaction: "debit", Name: "Amazon", Memo: "MEMO", Amount: "-20.00"},
		{Date: "01/02/2024", Transaction: "debit", Name: "Shell Oil", Memo: "POS", Amount: "-45.10"},
	}
}

func TestReadAllMissingFile(t *testing.T) {
	store := newTestStore(t)

	columns, rows, err := store.ReadAll()
	assert.NoError(t, err)
	assert.Empty(t, columns)
	assert.Empty(t, rows)
}

func TestAddRowsConcreteScenario(t *testing.T) {
	store := newTestStore(t)
	upload := []models.Row{
		{Date: "01/01/2024", Transaction: "debit", Name: "Amazon", Memo: "MEMO", Amount: "-20.00"},
	}

	result, err := store.AddRows(upload)
	require.NoError(t, err)
	assert.Len(t, result.Added, 1)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, 1, result.TotalRows)

	// Re-uploading the same row is a pure duplicate.
	result, err = store.AddRows(upload)
	require.NoError(t, err)
	assert.Empty(t, result.Added)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 1, result.TotalRows)
}

func TestAddRowsIdempotent(t *testing.T) {
	store := newTestStore(t)
	rows := sampleRows()

	first, err := store.AddRows(rows)
	require.NoError(t, err)
	assert.Len(t, first.Added, len(rows))

	second, err := store.AddRows(rows)
	require.NoError(t, err)
	assert.Empty(t, second.Added)
	assert.Equal(t, len(rows), second.Duplicates)
	assert.Equal(t, len(rows), second.TotalRows)
}

func TestAddRowsClearsCategoryFields(t *testing.T) {
	store := newTestStore(t)
	rows := []models.Row{
		{Date: "01/01/2024", Transaction: "debit", Name: "Shell Oil", Amount: "-45.10", Category: "Car", SubCategory: "Gas"},
	}

	result, err := store.AddRows(rows)
	require.NoError(t, err)
	require.Len(t, result.Added, 1)
	assert.Empty(t, result.Added[0].Category)
	assert.Empty(t, result.Added[0].SubCategory)
}

func TestAddRowsDedupsAgainstCategorizedRows(t *testing.T) {
	store := newTestStore(t)
	rows := sampleRows()

	_, err := store.AddRows(rows)
	require.NoError(t, err)

	// Categorize the persisted rows, then re-upload an export that
	// already carries categories. The natural key ignores them.
	categorized := rows[0]
	categorized.Category = "Miscellaneous"
	categorized.SubCategory = "Amazon"
	require.NoError(t, store.UpdateRowsByKey([]models.Row{categorized}))

	result, err := store.AddRows([]models.Row{categorized})
	require.NoError(t, err)
	assert.Empty(t, result.Added)
	assert.Equal(t, 1, result.Duplicates)
}

func TestUpdateRowsByKey(t *testing.T) {
	store := newTestStore(t)
	rows := sampleRows()
	_, err := store.AddRows(rows)
	require.NoError(t, err)

	update := rows[1]
	update.Category = "Car"
	update.SubCategory = "Gas"
	require.NoError(t, store.UpdateRowsByKey([]models.Row{update}))

	_, persisted, err := store.ReadAll()
	require.NoError(t, err)
	// Updated in place, never appended.
	require.Len(t, persisted, len(rows))
	assert.Equal(t, "Car", persisted[1].Category)
	assert.Equal(t, "Gas", persisted[1].SubCategory)
	assert.Empty(t, persisted[0].Category)
}

func TestUpdateRowsByKeyNoMatchIsNoop(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddRows(sampleRows())
	require.NoError(t, err)

	stranger := models.Row{Date: "12/12/2020", Transaction: "credit", Name: "Nobody", Amount: "1.00", Category: "Income"}
	require.NoError(t, store.UpdateRowsByKey([]models.Row{stranger}))

	_, persisted, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	for _, row := range persisted {
		assert.Empty(t, row.Category)
	}
}

func TestColumnOrderPreserved(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddRows(sampleRows())
	require.NoError(t, err)

	columns, _, err := store.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, models.Columns, columns)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Date,Transaction,Name,Memo,Amount,Category,Sub Category"))
}

func TestParseRowsPartialSuccess(t *testing.T) {
	input := strings.NewReader(
		"Date,Transaction,Name,Memo,Amount,Category,Sub Category\n" +
			"01/01/2024,debit,Amazon,MEMO,-20.00,,\n" +
			"01/02/2024,debit,,POS,-45.10,,\n" +
			"01/03/2024,debit,Shell Oil,POS,not-a-number,,\n")

	rows, rowErrs, err := ParseRows(input)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Amazon", rows[0].Name)
	require.Len(t, rowErrs, 2)
	assert.Equal(t, 2, rowErrs[0].Row)
	assert.Equal(t, 3, rowErrs[1].Row)
}
