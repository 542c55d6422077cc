package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowKeyExcludesCategoryFields(t *testing.T) {
	a := Row{Date: "01/01/2024", Transaction: "debit", Name: "Amazon", Memo: "MEMO", Amount: "-20.00"}
	b := a
	b.Category = "Miscellaneous"
	b.SubCategory = "Amazon"

	assert.Equal(t, a.Key(), b.Key())
}

func TestRowValidate(t *testing.T) {
	tests := []struct {
		name    string
		row     Row
		wantErr bool
		amount  string
	}{
		{
			name:   "valid row normalizes amount",
			row:    Row{Date: "01/01/2024", Name: "Amazon", Amount: "-20.5"},
			amount: "-20.50",
		},
		{
			name:    "missing date",
			row:     Row{Name: "Amazon", Amount: "-20.00"},
			wantErr: true,
		},
		{
			name:    "missing name",
			row:     Row{Date: "01/01/2024", Amount: "-20.00"},
			wantErr: true,
		},
		{
			name:    "missing amount",
			row:     Row{Date: "01/01/2024", Name: "Amazon"},
			wantErr: true,
		},
		{
			name:    "non-numeric amount",
			row:     Row{Date: "01/01/2024", Name: "Amazon", Amount: "twenty"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.row.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.amount, tt.row.Amount)
		})
	}
}
