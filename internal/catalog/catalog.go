// Package catalog holds the seed data the engine is constructed with: built-in
// account types and the default tag hierarchy. Callers inject this data at
// startup; nothing in the services reaches for it implicitly.
package catalog

import "github.com/raragao87/opheliahub/internal/ledger"

// TagDef describes one default tag and its children. Defaults are seeded at the
// category (level 0) and subcategory (level 1) tiers and are read-only.
type TagDef struct {
	Name     string
	Color    string
	Children []TagDef
}

// BuiltinAccountTypes returns the immutable account types every install carries.
func BuiltinAccountTypes() []ledger.AccountType {
	return []ledger.AccountType{
		{Name: "checking", Category: ledger.TypeCategoryAsset, DefaultSign: ledger.SignPositive},
		{Name: "savings", Category: ledger.TypeCategoryAsset, DefaultSign: ledger.SignPositive},
		{Name: "investment", Category: ledger.TypeCategoryAsset, DefaultSign: ledger.SignPositive},
		{Name: "credit-card", Category: ledger.TypeCategoryLiability, DefaultSign: ledger.SignNegative},
		{Name: "mortgage", Category: ledger.TypeCategoryLiability, DefaultSign: ledger.SignNegative},
		{Name: "auto-loan", Category: ledger.TypeCategoryLiability, DefaultSign: ledger.SignNegative},
	}
}

// DefaultTagTree returns the seeded two-tier tag hierarchy.
func DefaultTagTree() []TagDef {
	return []TagDef{
		{
			Name: "Income", Color: "#2e7d32",
			Children: []TagDef{
				{Name: "Salary", Color: "#388e3c"},
				{Name: "Interest", Color: "#43a047"},
				{Name: "Refunds", Color: "#4caf50"},
				{Name: "Other Income", Color: "#66bb6a"},
			},
		},
		{
			Name: "Housing", Color: "#6a1b9a",
			Children: []TagDef{
				{Name: "Rent", Color: "#7b1fa2"},
				{Name: "Mortgage", Color: "#8e24aa"},
				{Name: "Utilities", Color: "#9c27b0"},
				{Name: "Maintenance", Color: "#ab47bc"},
			},
		},
		{
			Name: "Food", Color: "#e65100",
			Children: []TagDef{
				{Name: "Groceries", Color: "#ef6c00"},
				{Name: "Eating Out", Color: "#f57c00"},
			},
		},
		{
			Name: "Transport", Color: "#1565c0",
			Children: []TagDef{
				{Name: "Fuel", Color: "#1976d2"},
				{Name: "Public Transport", Color: "#1e88e5"},
				{Name: "Car", Color: "#2196f3"},
			},
		},
		{
			Name: "Lifestyle", Color: "#ad1457",
			Children: []TagDef{
				{Name: "Shopping", Color: "#c2185b"},
				{Name: "Entertainment", Color: "#d81b60"},
				{Name: "Health", Color: "#e91e63"},
				{Name: "Education", Color: "#ec407a"},
			},
		},
	}
}
