// Package models provides the data structures used throughout the application.
package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryUnknown is the category and subcategory value assigned when no
// label can be resolved for a transaction.
const CategoryUnknown = "Unknown"

// Columns is the fixed column order of the master transactions CSV.
// Every rewrite of the ledger preserves this order.
var Columns = []string{
	"Date", "Transaction", "Name",
	"Memo", "Amount", "Category", "Sub Category",
}

// Row is a single transaction row in the master ledger.
//
// Date, Transaction, Name, Memo and Amount together form the natural key
// of the row: two rows agreeing on those five fields are the same
// transaction regardless of how it is categorized.
type Row struct {
	Date        string `csv:"Date" json:"Date"`
	Transaction string `csv:"Transaction" json:"Transaction"`
	Name        string `csv:"Name" json:"Name"`
	Memo        string `csv:"Memo" json:"Memo"`
	Amount      string `csv:"Amount" json:"Amount"`
	Category    string `csv:"Category" json:"Category"`
	SubCategory string `csv:"Sub Category" json:"Sub Category"`
}

// Key identifies a transaction independent of its categorization.
type Key struct {
	Date        string
	Transaction string
	Name        string
	Memo        string
	Amount      string
}

// Key returns the natural key of the row. Category and Sub Category are
// deliberately excluded so that re-uploads of already-categorized exports
// still deduplicate against the ledger.
func (r Row) Key() Key {
	return Key{
		Date:        r.Date,
		Transaction: r.Transaction,
		Name:        r.Name,
		Memo:        r.Memo,
		Amount:      r.Amount,
	}
}

// Values returns the row's fields in ledger column order.
func (r Row) Values() []string {
	return []string{r.Date, r.Transaction, r.Name, r.Memo, r.Amount, r.Category, r.SubCategory}
}

// Validate checks that the row carries the fields ingestion requires and
// normalizes the amount to a two-decimal string. A row that fails
// validation is rejected individually; the rest of the upload proceeds.
func (r *Row) Validate() error {
	if strings.TrimSpace(r.Date) == "" {
		return fmt.Errorf("missing Date")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("missing Name")
	}
	if strings.TrimSpace(r.Amount) == "" {
		return fmt.Errorf("missing Amount")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return fmt.Errorf("invalid Amount %q: %w", r.Amount, err)
	}
	r.Amount = amount.StringFixed(2)

	return nil
}
