package taxonomy

// Default returns the seed taxonomy used when no taxonomy file exists yet.
// It is persisted to disk on first load so later edits have a file to
// rewrite.
func Default() *Taxonomy {
	t := New()
	seed := []struct {
		category string
		subs     []string
	}{
		{"Income", []string{"Work", "Cash Back Rewards", "Savings Interest", "Investment"}},
		{"Investment", []string{"Charles Schwab", "Coinbase"}},
		{"Home", []string{"Rent", "Internet"}},
		{"Insurance", []string{"State Farm", "American Family Insurance"}},
		{"Medical", []string{"Urgent Care", "Pharmacy", "Dermatologist", "ER", "Checkups"}},
		{"Miscellaneous", []string{"Amazon", "Gifts", "Restaurant", "Movies", "Taxes", "Uber"}},
		{"Groceries", []string{"Groceries"}},
		{"Car", []string{"Gas", "Oil Change", "Renewal"}},
		{"Ignore", []string{"Bank Transfer", "Credit Card Payment"}},
	}
	for _, entry := range seed {
		for _, sub := range entry.subs {
			t.Add(entry.category, sub)
		}
	}
	return t
}
